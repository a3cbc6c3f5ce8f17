package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dshills/QuantaEval/internal/codec"
	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/source"
	"github.com/dshills/QuantaEval/internal/sql/executor"
)

// EnvPrefix starts every environment variable read by ApplyEnv.
const EnvPrefix = "QUANTAEVAL_"

// Config represents the complete evaluator configuration.
type Config struct {
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	// Engine configuration
	Engine EngineConfig `json:"engine"`

	// Codec configuration
	Codec CodecConfig `json:"codec"`

	// Source configuration
	Source SourceConfig `json:"source"`
}

// EngineConfig represents batch evaluation configuration.
type EngineConfig struct {
	BatchSize             int `json:"batch_size"`
	MaxParallelWorkers    int `json:"max_parallel_workers"`
	WorkQueueSize         int `json:"work_queue_size"`
	EvaluatorCacheEntries int `json:"evaluator_cache_entries"`
	ParseCacheEntries     int `json:"parse_cache_entries"`
}

// CodecConfig represents batch serialization configuration.
type CodecConfig struct {
	Compression string `json:"compression"` // "none", "lz4", "snappy", "zstd"
}

// SourceConfig represents input configuration.
type SourceConfig struct {
	Driver      string `json:"driver"` // "postgres", "sqlite3"
	DSN         string `json:"dsn"`
	HTTPTimeout string `json:"http_timeout"` // duration string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Engine: EngineConfig{
			BatchSize:             1024,
			MaxParallelWorkers:    4,
			WorkQueueSize:         16,
			EvaluatorCacheEntries: 256,
			ParseCacheEntries:     128,
		},
		Codec: CodecConfig{
			Compression: "lz4",
		},
		Source: SourceConfig{
			Driver:      source.DriverSQLite,
			HTTPTimeout: "30s",
		},
	}
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from QUANTAEVAL_* environment variables.
// Malformed numbers are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FORMAT":   &c.LogFormat,
		"COMPRESSION":  &c.Codec.Compression,
		"DRIVER":       &c.Source.Driver,
		"DSN":          &c.Source.DSN,
		"HTTP_TIMEOUT": &c.Source.HTTPTimeout,
	}
	for name, dst := range strs {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}

	ints := map[string]*int{
		"BATCH_SIZE":              &c.Engine.BatchSize,
		"MAX_PARALLEL_WORKERS":    &c.Engine.MaxParallelWorkers,
		"WORK_QUEUE_SIZE":         &c.Engine.WorkQueueSize,
		"EVALUATOR_CACHE_ENTRIES": &c.Engine.EvaluatorCacheEntries,
		"PARSE_CACHE_ENTRIES":     &c.Engine.ParseCacheEntries,
	}
	for name, dst := range ints {
		val := os.Getenv(EnvPrefix + name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

// LoadFromFlags merges command-line flags into the configuration. Zero
// values leave the current setting in place.
func (c *Config) LoadFromFlags(logLevel string, workers, batchSize int, compression string) {
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if workers > 0 {
		c.Engine.MaxParallelWorkers = workers
	}
	if batchSize > 0 {
		c.Engine.BatchSize = batchSize
	}
	if compression != "" {
		c.Codec.Compression = compression
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	if err := c.validateEngine(); err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}

	if _, err := codec.ParseCompression(c.Codec.Compression); err != nil {
		return fmt.Errorf("invalid codec configuration: %w", err)
	}

	switch c.Source.Driver {
	case source.DriverPostgres, source.DriverSQLite:
	default:
		return fmt.Errorf("invalid source driver: %s", c.Source.Driver)
	}
	if _, err := time.ParseDuration(c.Source.HTTPTimeout); err != nil {
		return fmt.Errorf("invalid http timeout: %w", err)
	}

	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.BatchSize < 1 || c.Engine.BatchSize > codec.MaxRows {
		return fmt.Errorf("batch size must be between 1 and %d", codec.MaxRows)
	}
	if c.Engine.MaxParallelWorkers < 1 {
		return fmt.Errorf("max parallel workers must be at least 1")
	}
	if c.Engine.WorkQueueSize < 1 {
		return fmt.Errorf("work queue size must be at least 1")
	}
	if c.Engine.EvaluatorCacheEntries < 1 {
		return fmt.Errorf("evaluator cache entries must be at least 1")
	}
	if c.Engine.ParseCacheEntries < 1 {
		return fmt.Errorf("parse cache entries must be at least 1")
	}
	return nil
}

// LogConfig returns the logging section.
func (c *Config) LogConfig() log.Config {
	return log.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// CompressionType returns the configured codec compression.
func (c *Config) CompressionType() codec.CompressionType {
	t, _ := codec.ParseCompression(c.Codec.Compression)
	return t
}

// ToRunnerConfig converts to executor.RunnerConfig.
func (c *Config) ToRunnerConfig(logger log.Logger) executor.RunnerConfig {
	return executor.RunnerConfig{
		MaxParallelWorkers: c.Engine.MaxParallelWorkers,
		WorkQueueSize:      c.Engine.WorkQueueSize,
		Logger:             logger,
	}
}

// ToParquetOptions converts to source.ParquetOptions.
func (c *Config) ToParquetOptions(logger log.Logger) source.ParquetOptions {
	timeout, _ := time.ParseDuration(c.Source.HTTPTimeout)
	return source.ParquetOptions{
		BatchSize:   c.Engine.BatchSize,
		HTTPTimeout: timeout,
		Logger:      logger,
	}
}
