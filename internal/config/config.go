package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Sources  SourcesConfig  `yaml:"sources" envconfig:"SOURCES"`
	Report   ReportConfig   `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// SourcesConfig selects where the registry and dispatch tables are read from
type SourcesConfig struct {
	Kind            string `yaml:"kind" envconfig:"KIND" default:"csv"`
	RegistryFile    string `yaml:"registry_file" envconfig:"REGISTRY_FILE" default:"Bike Analysis - Properties.csv"`
	DispatchFile    string `yaml:"dispatch_file" envconfig:"DISPATCH_FILE" default:"2023_DispatchActivities.csv"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	RegistrySheet   string `yaml:"registry_sheet" envconfig:"REGISTRY_SHEET" default:"Properties"`
	DispatchSheet   string `yaml:"dispatch_sheet" envconfig:"DISPATCH_SHEET" default:"DispatchActivities"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// ReportConfig holds the report defaults and the pipeline policies
type ReportConfig struct {
	StartDate           string   `yaml:"start_date" envconfig:"START_DATE" default:"2023-01-01"`
	EndDate             string   `yaml:"end_date" envconfig:"END_DATE" default:"2023-09-13"`
	Keywords            []string `yaml:"keywords" envconfig:"KEYWORDS"`
	TypesOfInterest     []string `yaml:"types_of_interest" envconfig:"TYPES_OF_INTEREST"`
	ExcludedServices    []string `yaml:"excluded_services" envconfig:"EXCLUDED_SERVICES"`
	DenominatorServices []string `yaml:"denominator_services" envconfig:"DENOMINATOR_SERVICES"`
	JoinMode            string   `yaml:"join_mode" envconfig:"JOIN_MODE" default:"right"`
	RequireRegistry     bool     `yaml:"require_registry" envconfig:"REQUIRE_REGISTRY" default:"true"`
	StrictJoinKeys      bool     `yaml:"strict_join_keys" envconfig:"STRICT_JOIN_KEYS" default:"false"`
	OrderPolicy         string   `yaml:"order_policy" envconfig:"ORDER_POLICY" default:"lexicographic"`
	EfficiencyPolicy    string   `yaml:"efficiency_policy" envconfig:"EFFICIENCY_POLICY" default:"fixed"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, switches, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, *switches, cfg, os.LookupEnv)
	}

	cfg.applyListDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFile loads a YAML config file on top of the defaults
func LoadFile(filePath string) (*Config, error) {
	fileConfig, switches, err := loadFromFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg := mergeConfigs(*fileConfig, *switches, *Default(), func(string) (string, bool) { return "", false })
	cfg.applyListDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// fileSwitches holds the boolean settings of a config file. A nil pointer
// means the key is absent, so an explicit false still applies.
type fileSwitches struct {
	Security struct {
		EnableCORS *bool `yaml:"enable_cors"`
		RateLimit  struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Report struct {
		RequireRegistry *bool `yaml:"require_registry"`
		StrictJoinKeys  *bool `yaml:"strict_join_keys"`
	} `yaml:"report"`
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, *fileSwitches, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, err
	}
	var switches fileSwitches
	if err := yaml.Unmarshal(data, &switches); err != nil {
		return nil, nil, err
	}

	return &cfg, &switches, nil
}

// mergeConfigs merges file config into base config. A value set in the file
// replaces the base value unless the matching environment variable is set.
func mergeConfigs(fileConfig Config, switches fileSwitches, base Config, lookup func(string) (string, bool)) Config {
	envSet := func(key string) bool {
		_, ok := lookup(EnvPrefix + "_" + key)
		return ok
	}

	if fileConfig.Server.Port != 0 && !envSet("SERVER_PORT") {
		base.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 && !envSet("SERVER_READ_TIMEOUT") {
		base.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && !envSet("SERVER_WRITE_TIMEOUT") {
		base.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if len(fileConfig.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		base.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if v := switches.Security.EnableCORS; v != nil && !envSet("SECURITY_ENABLE_CORS") {
		base.Security.EnableCORS = *v
	}
	if v := switches.Security.RateLimit.Enabled; v != nil && !envSet("SECURITY_RATE_LIMIT_ENABLED") {
		base.Security.RateLimit.Enabled = *v
	}
	if fileConfig.Logging.Level != "" && !envSet("LOGGING_LEVEL") {
		base.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" && !envSet("LOGGING_OUTPUT") {
		base.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" && !envSet("LOGGING_FILE_PATH") {
		base.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if fileConfig.Paths.DataDir != "" && !envSet("PATHS_DATA_DIR") {
		base.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if fileConfig.Paths.ReportsDir != "" && !envSet("PATHS_REPORTS_DIR") {
		base.Paths.ReportsDir = fileConfig.Paths.ReportsDir
	}

	// Sources
	if fileConfig.Sources.Kind != "" && !envSet("SOURCES_KIND") {
		base.Sources.Kind = fileConfig.Sources.Kind
	}
	if fileConfig.Sources.RegistryFile != "" && !envSet("SOURCES_REGISTRY_FILE") {
		base.Sources.RegistryFile = fileConfig.Sources.RegistryFile
	}
	if fileConfig.Sources.DispatchFile != "" && !envSet("SOURCES_DISPATCH_FILE") {
		base.Sources.DispatchFile = fileConfig.Sources.DispatchFile
	}
	if fileConfig.Sources.SpreadsheetID != "" && !envSet("SOURCES_SPREADSHEET_ID") {
		base.Sources.SpreadsheetID = fileConfig.Sources.SpreadsheetID
	}
	if fileConfig.Sources.CredentialsFile != "" && !envSet("SOURCES_CREDENTIALS_FILE") {
		base.Sources.CredentialsFile = fileConfig.Sources.CredentialsFile
	}

	// Report
	if fileConfig.Report.StartDate != "" && !envSet("REPORT_START_DATE") {
		base.Report.StartDate = fileConfig.Report.StartDate
	}
	if fileConfig.Report.EndDate != "" && !envSet("REPORT_END_DATE") {
		base.Report.EndDate = fileConfig.Report.EndDate
	}
	if len(fileConfig.Report.Keywords) > 0 && !envSet("REPORT_KEYWORDS") {
		base.Report.Keywords = fileConfig.Report.Keywords
	}
	if len(fileConfig.Report.TypesOfInterest) > 0 && !envSet("REPORT_TYPES_OF_INTEREST") {
		base.Report.TypesOfInterest = fileConfig.Report.TypesOfInterest
	}
	if len(fileConfig.Report.ExcludedServices) > 0 && !envSet("REPORT_EXCLUDED_SERVICES") {
		base.Report.ExcludedServices = fileConfig.Report.ExcludedServices
	}
	if len(fileConfig.Report.DenominatorServices) > 0 && !envSet("REPORT_DENOMINATOR_SERVICES") {
		base.Report.DenominatorServices = fileConfig.Report.DenominatorServices
	}
	if fileConfig.Report.JoinMode != "" && !envSet("REPORT_JOIN_MODE") {
		base.Report.JoinMode = fileConfig.Report.JoinMode
	}
	if fileConfig.Report.OrderPolicy != "" && !envSet("REPORT_ORDER_POLICY") {
		base.Report.OrderPolicy = fileConfig.Report.OrderPolicy
	}
	if fileConfig.Report.EfficiencyPolicy != "" && !envSet("REPORT_EFFICIENCY_POLICY") {
		base.Report.EfficiencyPolicy = fileConfig.Report.EfficiencyPolicy
	}
	if v := switches.Report.RequireRegistry; v != nil && !envSet("REPORT_REQUIRE_REGISTRY") {
		base.Report.RequireRegistry = *v
	}
	if v := switches.Report.StrictJoinKeys; v != nil && !envSet("REPORT_STRICT_JOIN_KEYS") {
		base.Report.StrictJoinKeys = *v
	}

	return base
}

// applyListDefaults fills list settings that envconfig cannot default
func (c *Config) applyListDefaults() {
	if len(c.Report.Keywords) == 0 {
		c.Report.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if len(c.Report.TypesOfInterest) == 0 {
		c.Report.TypesOfInterest = append([]string(nil), DefaultTypesOfInterest...)
	}
	if len(c.Report.ExcludedServices) == 0 {
		c.Report.ExcludedServices = append([]string(nil), DefaultExcludedServices...)
	}
	if len(c.Report.DenominatorServices) == 0 {
		c.Report.DenominatorServices = append([]string(nil), DefaultDenominatorServices...)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Sources.Kind {
	case SourceCSV, SourceXLSX:
		if c.Sources.RegistryFile == "" || c.Sources.DispatchFile == "" {
			return fmt.Errorf("registry and dispatch files are required for %s sources", c.Sources.Kind)
		}
	case SourceSheets:
		if c.Sources.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id is required for sheets sources")
		}
	default:
		return fmt.Errorf("unsupported source kind: %q", c.Sources.Kind)
	}

	start, err := time.Parse("2006-01-02", c.Report.StartDate)
	if err != nil {
		return fmt.Errorf("invalid report start date %q: %w", c.Report.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", c.Report.EndDate)
	if err != nil {
		return fmt.Errorf("invalid report end date %q: %w", c.Report.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("report end date %s is before start date %s", c.Report.EndDate, c.Report.StartDate)
	}

	switch c.Report.JoinMode {
	case JoinRight, JoinLeft, JoinInner:
	default:
		return fmt.Errorf("unsupported join mode: %q", c.Report.JoinMode)
	}

	switch c.Report.OrderPolicy {
	case OrderLexicographic, OrderFirstSeen:
	default:
		return fmt.Errorf("unsupported order policy: %q", c.Report.OrderPolicy)
	}

	switch c.Report.EfficiencyPolicy {
	case PolicyFixed, PolicyConfigurable:
	default:
		return fmt.Errorf("unsupported efficiency policy: %q", c.Report.EfficiencyPolicy)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// ResolvePaths resolves the configured directories against the executable
// directory, or against baseDir when it is not empty.
func (c *Config) ResolvePaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		exePaths, err := GetPaths()
		if err != nil {
			return nil, err
		}
		baseDir = exePaths.BaseDir
	}
	return NewPaths(baseDir, c.Paths), nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		filepath.Join("configs", "config.yaml"),
		filepath.Join("..", "configs", "config.yaml"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		Sources: SourcesConfig{
			Kind:          SourceCSV,
			RegistryFile:  DefaultRegistryFile,
			DispatchFile:  DefaultDispatchFile,
			RegistrySheet: DefaultRegistrySheet,
			DispatchSheet: DefaultDispatchSheet,
		},
		Report: ReportConfig{
			StartDate:           DefaultStartDate,
			EndDate:             DefaultEndDate,
			Keywords:            append([]string(nil), DefaultKeywords...),
			TypesOfInterest:     append([]string(nil), DefaultTypesOfInterest...),
			ExcludedServices:    append([]string(nil), DefaultExcludedServices...),
			DenominatorServices: append([]string(nil), DefaultDenominatorServices...),
			JoinMode:            JoinRight,
			RequireRegistry:     true,
			OrderPolicy:         OrderLexicographic,
			EfficiencyPolicy:    PolicyFixed,
		},
	}
}
