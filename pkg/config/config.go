package config

import (
	"fmt"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/ratelimit"
	"github.com/sdejongh/bucketsync/pkg/resource"
)

// Config represents the application configuration
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Transfer TransferConfig `yaml:"transfer"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Exclude  []string       `yaml:"exclude"`
}

// RemoteConfig selects the S3 endpoint and credentials.
// Empty values fall back to the AWS SDK defaults.
type RemoteConfig struct {
	Region         string `yaml:"region"`
	Profile        string `yaml:"profile"`
	Endpoint       string `yaml:"endpoint"`         // S3-compatible services
	ForcePathStyle bool   `yaml:"force_path_style"` // bucket in the path instead of the host
}

// TransferConfig holds transfer-related settings
type TransferConfig struct {
	Concurrency        int    `yaml:"concurrency"`
	BandwidthLimit     string `yaml:"bandwidth_limit"` // e.g. "10M", empty = unlimited
	PreserveTimestamps bool   `yaml:"preserve_timestamps"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human", "json" or "progress"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"`      // "json" or "text"
	Level      string `yaml:"level"`       // "debug", "info", "warn", "error"
	File       string `yaml:"file"`        // Log file path (empty = no file)
	MaxSize    int64  `yaml:"max_size"`    // bytes before rotation, 0 = never
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Transfer: TransferConfig{
			Concurrency: 4,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{},
	}
}

// BandwidthLimit returns the configured limit in bytes per second
func (c *Config) BandwidthLimit() (int64, error) {
	return ratelimit.ParseRate(c.Transfer.BandwidthLimit)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Transfer.Concurrency < 1 {
		return &models.ValidationError{
			Field:   "transfer.concurrency",
			Message: "must be at least 1",
		}
	}

	if _, err := c.BandwidthLimit(); err != nil {
		return &models.ValidationError{
			Field:   "transfer.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true, "progress": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'json' or 'progress'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.Enabled && c.Logging.File == "" {
		return &models.ValidationError{
			Field:   "logging.file",
			Message: "is required when logging is enabled",
		}
	}

	if _, err := resource.CompileExcludes(c.Exclude); err != nil {
		return &models.ValidationError{
			Field:   "exclude",
			Message: fmt.Sprint(err),
		}
	}

	return nil
}
