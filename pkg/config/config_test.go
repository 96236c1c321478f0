package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	limit, err := cfg.BandwidthLimit()
	require.NoError(t, err)
	assert.Zero(t, limit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"Concurrency", func(c *Config) { c.Transfer.Concurrency = 0 }, "transfer.concurrency"},
		{"Bandwidth", func(c *Config) { c.Transfer.BandwidthLimit = "fast" }, "transfer.bandwidth_limit"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"LogFile", func(c *Config) { c.Logging.Enabled = true }, "logging.file"},
		{"Exclude", func(c *Config) { c.Exclude = []string{"[oops"} }, "exclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			var verr *models.ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("MergesOverDefaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		content := strings.Join([]string{
			"remote:",
			"  region: eu-west-1",
			"  endpoint: http://localhost:9000",
			"  force_path_style: true",
			"transfer:",
			"  bandwidth_limit: 10M",
			"exclude:",
			"  - '*.tmp'",
		}, "\n")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", cfg.Remote.Region)
		assert.True(t, cfg.Remote.ForcePathStyle)
		assert.Equal(t, 4, cfg.Transfer.Concurrency, "default kept")
		assert.Equal(t, "human", cfg.Output.Format, "default kept")
		assert.Equal(t, []string{"*.tmp"}, cfg.Exclude)

		limit, err := cfg.BandwidthLimit()
		require.NoError(t, err)
		assert.Equal(t, int64(10*1024*1024), limit)
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("transfer:\n  concurrency: 0\n"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorContains(t, err, "invalid configuration: transfer.concurrency")
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("transfer: [\n"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Remote.Profile = "backup"
	cfg.Exclude = []string{".git/"}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	cfg.Output.Format = "xml"
	assert.Error(t, SaveToFile(cfg, path))
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("bucketsync", "config.yaml"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
