/*
Package config loads process configuration for the server and CLI.

PRECEDENCE (lowest to highest):
  1. Defaults (Default)
  2. YAML file, when a path is given and the file exists
  3. .env in the working directory (never overrides variables already set)
  4. Environment variables:
       CCE_PORT         server.port
       CCE_DB_PATH      database.path
       GOOGLE_API_KEY   extraction.api_key (GEMINI_API_KEY is also read)
       CCE_MODEL        extraction.model
       CCE_CURRICULUM   curriculum.path
       CCE_LOG_LEVEL    logging.level
  5. Command-line flags, applied by the binaries

EXAMPLE:
  server:
    port: 8080
    cors_origins: ["http://localhost:3000"]
  database:
    path: ./curriculum.db
    retention: 2160h    # 90 days
  extraction:
    model: gemini-2.5-flash
    max_attempts: 3
    backoff: 2s
  curriculum:
    path: ""            # empty = embedded bm-2024
  logging:
    level: info
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/extraction"
)

// Config holds all settings.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Curriculum CurriculumConfig `yaml:"curriculum"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the evaluation history store.
type DatabaseConfig struct {
	Path      string        `yaml:"path"`      // ":memory:" keeps history for the process lifetime only
	Retention time.Duration `yaml:"retention"` // zero keeps evaluations forever
}

// ExtractionConfig configures the extraction service client.
type ExtractionConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Timeout     time.Duration `yaml:"timeout"` // per evaluation, all attempts included
}

// Active reports whether evaluations should call the extraction service.
func (c ExtractionConfig) Active() bool {
	return c.Enabled && c.APIKey != ""
}

// CurriculumConfig selects the rule set.
type CurriculumConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			MaxUploadMB:     10,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: "./curriculum.db"},
		Extraction: ExtractionConfig{
			Enabled:     true,
			Model:       extraction.DefaultModel,
			MaxAttempts: extraction.DefaultMaxAttempts,
			Backoff:     extraction.DefaultBackoff,
			Timeout:     90 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration. An empty path or a missing file means
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CCE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CCE_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CCE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Extraction.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Extraction.APIKey = v
	}
	if v := os.Getenv("CCE_MODEL"); v != "" {
		c.Extraction.Model = v
	}
	if v := os.Getenv("CCE_CURRICULUM"); v != "" {
		c.Curriculum.Path = v
	}
	if v := os.Getenv("CCE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("database.retention must not be negative")
	}
	if c.Extraction.MaxAttempts < 1 {
		return fmt.Errorf("extraction.max_attempts must be at least 1")
	}
	if c.Extraction.Backoff < 0 {
		return fmt.Errorf("extraction.backoff must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// RuleSet loads the configured curriculum, or the embedded default.
func (c *Config) RuleSet() (*curriculum.RuleSet, error) {
	if c.Curriculum.Path == "" {
		return curriculum.Default()
	}
	return curriculum.LoadFile(c.Curriculum.Path)
}
