package config

import "time"

// Application constants for the bike analysis service
const (
	// Application Info
	AppName    = "Bike Analysis"
	AppVersion = "1.4.0"
	AppVendor  = "Vacayzen"

	// Environment variable prefix for envconfig
	EnvPrefix = "BIKE"

	// Source kinds
	SourceCSV    = "csv"
	SourceXLSX   = "xlsx"
	SourceSheets = "sheets"

	// Default source files (relative to the data directory)
	DefaultRegistryFile = "Bike Analysis - Properties.csv"
	DefaultDispatchFile = "2023_DispatchActivities.csv"

	// Default Google Sheets ranges
	DefaultRegistrySheet = "Properties"
	DefaultDispatchSheet = "DispatchActivities"

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Report window used when the caller gives no dates
	DefaultStartDate = "2023-01-01"
	DefaultEndDate   = "2023-09-13"

	// Join modes
	JoinRight = "right"
	JoinLeft  = "left"
	JoinInner = "inner"

	// Pivot ordering policies
	OrderLexicographic = "lexicographic"
	OrderFirstSeen     = "first_seen"

	// Efficiency policies
	PolicyFixed        = "fixed"
	PolicyConfigurable = "configurable"

	// Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	SourceLoadTimeout   = 2 * time.Minute
	ReportBuildTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
	DefaultRateLimit    = 100
	DefaultBurstSize    = 50
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// DefaultKeywords are the office-note terms that flag a mechanical issue
var DefaultKeywords = []string{
	"CHAIN", "CHAIN GUARD", "CHAINGUARD", "TIRE", "PEDAL",
	"PEDAL ARM", "PEDALARM", "HANDLEBAR", "HANDLE BAR", "AIR",
}

// DefaultTypesOfInterest are the bike types tracked by the program analysis
var DefaultTypesOfInterest = []string{
	"2022 Vacayzen TAXI",
	"Generic New Wave",
	"Vacayzen New Wave",
	"Yellow 360 YOLO",
}

// DefaultExcludedServices are raw service-label substrings dropped at join time.
// GART rows are a known data-quality issue in the dispatch feed.
var DefaultExcludedServices = []string{"GART"}

// DefaultDenominatorServices is the fixed denominator list of the efficiency ratio
var DefaultDenominatorServices = []string{
	"DELIVERY",
	"BIKE CHECK",
	"PICK UP",
	"BIKE CHECK - ROUTINE",
	"BIKE CHECK - STORAGE",
}
