package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager isolates the manager from files in the working directory
func newTestManager(t *testing.T, configPath string) *ConfigManager {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cm := NewConfigManager(configPath, testLogger())
	return cm
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "https://api.india.delta.exchange", config.Exchange.BaseURL)
	assert.Equal(t, 10*time.Second, config.Exchange.Timeout)
	assert.Equal(t, "1d", config.Fetch.Resolution)
	assert.Equal(t, 2000, config.Fetch.PageSize)
	assert.Equal(t, 100*time.Millisecond, config.Fetch.PageInterval)
	assert.Equal(t, ",", config.Export.Delimiter)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, ',', config.Delimiter())
}

func TestConfigValidation(t *testing.T) {
	cm := NewConfigManager("", testLogger())

	t.Run("valid config passes validation", func(t *testing.T) {
		assert.NoError(t, cm.validateConfig(DefaultConfig()))
	})

	tests := []struct {
		name     string
		mutate   func(c *AppConfig)
		expected string
	}{
		{"missing base url", func(c *AppConfig) { c.Exchange.BaseURL = "" }, "exchange.base_url is required"},
		{"zero timeout", func(c *AppConfig) { c.Exchange.Timeout = 0 }, "exchange.timeout must be greater than 0"},
		{"bad resolution", func(c *AppConfig) { c.Fetch.Resolution = "2d" }, "fetch.resolution must be one of"},
		{"page size too large", func(c *AppConfig) { c.Fetch.PageSize = 2001 }, "fetch.page_size must be between 1 and 2000"},
		{"page size zero", func(c *AppConfig) { c.Fetch.PageSize = 0 }, "fetch.page_size"},
		{"negative interval", func(c *AppConfig) { c.Fetch.PageInterval = -time.Second }, "fetch.page_interval"},
		{"bad delimiter", func(c *AppConfig) { c.Export.Delimiter = ";;" }, "export.delimiter"},
		{"bad level", func(c *AppConfig) { c.Logging.Level = "verbose" }, "logging.level must be one of"},
		{"bad format", func(c *AppConfig) { c.Logging.Format = "xml" }, "logging.format must be one of"},
		{"file output without path", func(c *AppConfig) { c.Logging.Output = "file" }, "logging.file_path is required"},
		{"bad output", func(c *AppConfig) { c.Logging.Output = "syslog" }, "logging.output must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := cm.validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}

	t.Run("multiple validation errors", func(t *testing.T) {
		config := DefaultConfig()
		config.Exchange.BaseURL = ""
		config.Fetch.PageSize = -1
		config.Logging.Level = "invalid"

		err := cm.validateConfig(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exchange.base_url is required")
		assert.Contains(t, err.Error(), "fetch.page_size")
		assert.Contains(t, err.Error(), "logging.level")
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cm := newTestManager(t, "")

	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), config)
	assert.Empty(t, cm.ConfigFileUsed())
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeFile(t, "custom.yaml", `
exchange:
  base_url: http://localhost:8080
  timeout: 3s
fetch:
  resolution: 1h
  page_size: 500
export:
  delimiter: tab
logging:
  level: debug
  format: json
`)

	cm := newTestManager(t, path)
	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", config.Exchange.BaseURL)
	assert.Equal(t, 3*time.Second, config.Exchange.Timeout)
	assert.Equal(t, "1h", config.Fetch.Resolution)
	assert.Equal(t, 500, config.Fetch.PageSize)
	assert.Equal(t, '\t', config.Delimiter())
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, 100*time.Millisecond, config.Fetch.PageInterval)
	assert.Equal(t, path, cm.ConfigFileUsed())
}

func TestLoadConfig_DiscoversFileInWorkingDirectory(t *testing.T) {
	cm := newTestManager(t, "")
	require.NoError(t, os.WriteFile("ohlcv.json", []byte(`{"fetch": {"page_size": 42}}`), 0o644))

	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, config.Fetch.PageSize)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	cm := newTestManager(t, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := cm.LoadConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Equal(t, apperr.ExitConfigError, apperr.ExitCode(err))
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "fetch:\n  page_size: 500\n  resolution: 1h\n")
	cm := newTestManager(t, path)
	t.Setenv("OHLCV_FETCH_PAGE_SIZE", "250")
	t.Setenv("OHLCV_EXCHANGE_TIMEOUT", "30s")
	t.Setenv("OHLCV_LOGGING_COMPRESS", "false")

	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 250, config.Fetch.PageSize)
	assert.Equal(t, "1h", config.Fetch.Resolution)
	assert.Equal(t, 30*time.Second, config.Exchange.Timeout)
	assert.False(t, config.Logging.Compress)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	cm := newTestManager(t, "")
	require.NoError(t, os.WriteFile(".env", []byte("OHLCV_EXPORT_DELIMITER=;\nOHLCV_FETCH_RESOLUTION=4h\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("OHLCV_EXPORT_DELIMITER") })
	// real environment wins over .env
	t.Setenv("OHLCV_FETCH_RESOLUTION", "15m")

	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ';', config.Delimiter())
	assert.Equal(t, "15m", config.Fetch.Resolution)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	cm := newTestManager(t, "")
	t.Setenv("OHLCV_LOGGING_LEVEL", "warn")
	t.Setenv("OHLCV_FETCH_RESOLUTION", "1h")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("resolution", "1d", "")
	fs.Int("page-size", 2000, "")
	require.NoError(t, fs.Parse([]string{"--log-level", "debug", "--page-size", "10"}))
	require.NoError(t, cm.BindFlags(fs))

	config, err := cm.LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 10, config.Fetch.PageSize)
	assert.Equal(t, "1h", config.Fetch.Resolution, "unset flags do not shadow the environment")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cm := newTestManager(t, "")
	t.Setenv("OHLCV_FETCH_PAGE_SIZE", "9999")
	t.Setenv("OHLCV_LOGGING_FORMAT", "xml")

	_, err := cm.LoadConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "fetch.page_size")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestAppConfigString(t *testing.T) {
	s := DefaultConfig().String()
	assert.Contains(t, s, `"base_url": "https://api.india.delta.exchange"`)
	assert.Contains(t, s, `"page_size": 2000`)
}
