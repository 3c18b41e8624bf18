// Package config provides configuration management for the penguin report.
// It loads settings from multiple sources, validates them, and hands the
// entry point a single typed Config.
//
// # Configuration Sources
//
// Configuration is resolved in the following order, later sources winning:
//
//  1. Default values (config.Default)
//  2. A YAML file (-config flag, PENGUIN_CONFIG_FILE, penguin.yaml or configs/penguin.yaml)
//  3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PENGUIN_<SECTION>_<KEY>:
//
//	PENGUIN_INPUT_PATH=data/penguins.csv
//	PENGUIN_INPUT_DUPLICATE_POLICY=reject
//	PENGUIN_REPORT_PATH=penguin_calculations.txt
//	PENGUIN_ANALYSIS_SPECIES=Chinstrap
//	PENGUIN_LOGGING_LEVEL=debug
//	PENGUIN_TELEMETRY_METRICS_FILE=metrics/penguin.prom
//
// # Validation
//
// Validate checks struct tags with go-playground/validator and reports every
// failing field in a single CONFIG error, using YAML key names:
//
//	[CONFIG] config validation failed: input.duplicate_policy must be one of [reject warn overwrite], got "ignore"
package config
