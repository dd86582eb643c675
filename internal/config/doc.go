// Package config provides centralized configuration management for the bike
// analysis service. It loads settings from environment variables and an
// optional YAML file, validates them, and resolves file system paths.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BIKE_* for namespacing:
//
//	BIKE_SERVER_PORT=8080
//	BIKE_SOURCES_KIND=csv
//	BIKE_SOURCES_REGISTRY_FILE="Bike Analysis - Properties.csv"
//	BIKE_REPORT_JOIN_MODE=right
//	BIKE_REPORT_KEYWORDS=CHAIN,TIRE,PEDAL
//
// # Report Policies
//
// The report section carries the pipeline policies that used to be literals:
// the service denylist, the efficiency denominator labels, the join mode and
// the pivot ordering. Each has a default matching the dispatch feed.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := cfg.ResolvePaths("")
//
// For tests, config.Default() returns a complete configuration that needs no
// environment variables or files.
package config
