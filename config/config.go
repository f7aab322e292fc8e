// Package config loads the settings of a veloxdb client from a YAML file and
// VELOXDB_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syssam/veloxdb/dialect"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VELOXDB_"

// Config holds the client settings.
type Config struct {
	Dialect            string        `yaml:"dialect"`              // sqlite, postgres or mysql
	DSN                string        `yaml:"dsn"`                  // database file path for sqlite, data source name otherwise
	MaxIncludeDepth    int           `yaml:"max_include_depth"`    // longest include path (default 5)
	MaxBatchRows       int           `yaml:"max_batch_rows"`       // rows per INSERT statement (default 500)
	MaxBatchParams     int           `yaml:"max_batch_params"`     // parameters per statement (default: dialect limit)
	MaxConflictRetries int           `yaml:"max_conflict_retries"` // retries per update (default 3, 0 = uncapped)
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"` // statements slower than this are logged
	LogLevel           string        `yaml:"log_level"`            // debug, info, warn or error
	LogFormat          string        `yaml:"log_format"`           // json or text
	Debug              bool          `yaml:"debug"`                // log every statement
	MetricsName        string        `yaml:"metrics_name"`         // db_name label of the statement metrics
	Tracing            bool          `yaml:"tracing"`              // record a span per statement
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Dialect:            dialect.SQLite,
		DSN:                "veloxdb.db",
		MaxIncludeDepth:    5,
		MaxBatchRows:       500,
		MaxConflictRetries: 3,
		SlowQueryThreshold: 100 * time.Millisecond,
		LogLevel:           "info",
		LogFormat:          "json",
		MetricsName:        "veloxdb",
	}
}

// Load reads the YAML file at path, when path is not empty, over the
// defaults and applies environment overrides. A .env file in the working
// directory is loaded first if present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := Parse(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	// A missing .env file is not an error.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys missing from b keep their value.
func Parse(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

// applyEnv overrides fields from VELOXDB_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}
	str("DIALECT", &c.Dialect)
	str("DSN", &c.DSN)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("METRICS_NAME", &c.MetricsName)
	if v, ok := lookup(EnvPrefix + "SLOW_QUERY_THRESHOLD"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sSLOW_QUERY_THRESHOLD: %w", EnvPrefix, err)
		}
		c.SlowQueryThreshold = d
	}
	return errors.Join(
		num("MAX_INCLUDE_DEPTH", &c.MaxIncludeDepth),
		num("MAX_BATCH_ROWS", &c.MaxBatchRows),
		num("MAX_BATCH_PARAMS", &c.MaxBatchParams),
		num("MAX_CONFLICT_RETRIES", &c.MaxConflictRetries),
		flag("DEBUG", &c.Debug),
		flag("TRACING", &c.Tracing),
	)
}

// fill derives the settings that default from the dialect.
func (c *Config) fill() {
	if c.MaxBatchParams == 0 && dialect.Supported(c.Dialect) {
		c.MaxBatchParams = dialect.Caps(c.Dialect).MaxParams
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if !dialect.Supported(c.Dialect) {
		errs = append(errs, fmt.Errorf("config: unsupported dialect %q", c.Dialect))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("config: dsn is empty"))
	}
	if c.MaxIncludeDepth <= 0 {
		errs = append(errs, fmt.Errorf("config: max_include_depth must be positive, got %d", c.MaxIncludeDepth))
	}
	if c.MaxBatchRows <= 0 {
		errs = append(errs, fmt.Errorf("config: max_batch_rows must be positive, got %d", c.MaxBatchRows))
	}
	if c.MaxBatchParams <= 0 {
		errs = append(errs, fmt.Errorf("config: max_batch_params must be positive, got %d", c.MaxBatchParams))
	} else if dialect.Supported(c.Dialect) && c.MaxBatchParams > dialect.Caps(c.Dialect).MaxParams {
		errs = append(errs, fmt.Errorf("config: max_batch_params %d exceeds the %s limit of %d",
			c.MaxBatchParams, c.Dialect, dialect.Caps(c.Dialect).MaxParams))
	}
	if c.MaxConflictRetries < 0 {
		errs = append(errs, fmt.Errorf("config: max_conflict_retries must not be negative, got %d", c.MaxConflictRetries))
	}
	if c.SlowQueryThreshold < 0 {
		errs = append(errs, fmt.Errorf("config: slow_query_threshold must not be negative, got %s", c.SlowQueryThreshold))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("config: unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// Logger returns a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, err := c.Level()
	if err != nil {
		l = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: l}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
