package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LEDGER"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins   []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS       bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	AllowCredentials bool            `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxUploadBytes   int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	RateLimit        RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PipelineConfig controls how uploaded ledgers are cleaned and aggregated.
// Thresholds are inclusive.
type PipelineConfig struct {
	SheetName         string   `yaml:"sheet_name" envconfig:"SHEET_NAME"`
	HeaderRow         int      `yaml:"header_row" envconfig:"HEADER_ROW" validate:"gte=0"`
	ExcludedCodes     []string `yaml:"excluded_codes" envconfig:"EXCLUDED_CODES"`
	ScrubMode         string   `yaml:"scrub_mode" envconfig:"SCRUB_MODE" validate:"oneof=scrub-identity drop-row"`
	DropColumns       []string `yaml:"drop_columns" envconfig:"DROP_COLUMNS"`
	QuantityThreshold float64  `yaml:"quantity_threshold" envconfig:"QUANTITY_THRESHOLD" validate:"gte=0"`
	ValueThreshold    float64  `yaml:"value_threshold" envconfig:"VALUE_THRESHOLD" validate:"gte=0"`
	PreviewRows       int      `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"gte=0"`
}

// StorageConfig contains the request-scoped scratch area settings
type StorageConfig struct {
	ScratchDir      string        `yaml:"scratch_dir" envconfig:"SCRATCH_DIR"`
	ArtifactTTL     time.Duration `yaml:"artifact_ttl" envconfig:"ARTIFACT_TTL" validate:"gt=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL" validate:"gt=0"`
	CSVBOM          bool          `yaml:"csv_bom" envconfig:"CSV_BOM"`
	EscapeFormulas  bool          `yaml:"escape_formulas" envconfig:"ESCAPE_FORMULAS"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceToStdout  bool   `yaml:"trace_to_stdout" envconfig:"TRACE_TO_STDOUT"`
	PrometheusPath string `yaml:"prometheus_path" envconfig:"PROMETHEUS_PATH"`
}

// Load builds the configuration from Default, then the YAML file named by
// LEDGER_CONFIG_FILE (or found in a common location), then LEDGER_*
// environment variables. Keys present in the file override defaults even
// when their value is zero; exported variables override both.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	for i, origin := range c.Security.AllowedOrigins {
		c.Security.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	for i, code := range c.Pipeline.ExcludedCodes {
		c.Pipeline.ExcludedCodes[i] = strings.TrimSpace(code)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/ledger.log"
	}

	return nil
}

// Validate runs the same checks Load applies.
func (c *Config) Validate() error {
	return c.validate()
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns the built-in configuration Load starts from.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5002,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins:   DefaultAllowedOrigins(),
			EnableCORS:       true,
			AllowCredentials: true,
			MaxUploadBytes:   DefaultMaxUploadBytes,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/ledger.log",
		},
		Pipeline: PipelineConfig{
			HeaderRow:         0,
			ExcludedCodes:     []string{"SYS18", "SYS27"},
			ScrubMode:         ScrubModeIdentity,
			QuantityThreshold: DefaultQuantityThreshold,
			ValueThreshold:    DefaultValueThreshold,
			PreviewRows:       DefaultPreviewRows,
		},
		Storage: StorageConfig{
			ArtifactTTL:     time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			ServiceName:    "tradeledger",
			PrometheusPath: "/metrics",
		},
	}
}
