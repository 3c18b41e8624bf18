package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "penguincli/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "PENGUIN"

// ConfigFileEnv names the environment variable that points at a YAML file.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// Duplicate identifier policies accepted by InputConfig.DuplicatePolicy.
const (
	DuplicateReject    = "reject"
	DuplicateWarn      = "warn"
	DuplicateOverwrite = "overwrite"
)

// Config represents the complete application configuration
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig describes where specimen records come from
type InputConfig struct {
	Path            string `yaml:"path" split_words:"true" validate:"required"`
	Format          string `yaml:"format" split_words:"true" validate:"oneof=auto csv xlsx"`
	Sheet           string `yaml:"sheet" split_words:"true"`
	DuplicatePolicy string `yaml:"duplicate_policy" split_words:"true" validate:"oneof=reject warn overwrite"`
}

// ReportConfig describes where results are written
type ReportConfig struct {
	Path    string `yaml:"path" split_words:"true" validate:"required"`
	CSVPath string `yaml:"csv_path" split_words:"true"`
}

// AnalysisConfig selects the subgroup for the above-mean body mass analysis
type AnalysisConfig struct {
	Species string `yaml:"species" split_words:"true" validate:"required"`
	Sex     string `yaml:"sex" split_words:"true" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig contains metrics and tracing configuration
type TelemetryConfig struct {
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
	Tracing     bool   `yaml:"tracing" split_words:"true"`
	TraceFile   string `yaml:"trace_file" split_words:"true"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path:            "penguins.csv",
			Format:          "auto",
			DuplicatePolicy: DuplicateWarn,
		},
		Report: ReportConfig{
			Path: "penguin_calculations.txt",
		},
		Analysis: AnalysisConfig{
			Species: "Chinstrap",
			Sex:     "female",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/penguin-report.log",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// PENGUIN_* environment variables, in increasing order of precedence.
// An empty filePath falls back to PENGUIN_CONFIG_FILE and then to the
// well-known locations.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath == "" {
		filePath = getConfigFilePath()
	}
	if filePath != "" {
		if err := loadFromFile(filePath, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", filePath)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}

	locations := []string{
		"penguin.yaml",
		"configs/penguin.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report YAML key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, formatFieldError(fe))
	}

	return apperrors.NewConfigError("config validation failed", errors.New(strings.Join(problems, "; "))).
		WithContext("fields", problems)
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
