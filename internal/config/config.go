// Package config loads the fetcher configuration from defaults, an optional
// config file, a .env file, OHLCV_* environment variables and command-line
// flags, in increasing order of priority.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/exchange"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/export"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. OHLCV_FETCH_PAGE_SIZE
	EnvPrefix = "OHLCV"

	// DefaultConfigName is looked up as ohlcv.yaml, ohlcv.json, ... when no path is given
	DefaultConfigName = "ohlcv"

	// DefaultEnvFile is loaded if present
	DefaultEnvFile = ".env"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	Exchange ExchangeConfig `mapstructure:"exchange" json:"exchange"`
	Fetch    FetchConfig    `mapstructure:"fetch" json:"fetch"`
	Export   ExportConfig   `mapstructure:"export" json:"export"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
}

// ExchangeConfig configures the Delta Exchange client
type ExchangeConfig struct {
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	UserAgent string        `mapstructure:"user_agent" json:"user_agent"`
}

// FetchConfig configures pagination
type FetchConfig struct {
	Resolution   string        `mapstructure:"resolution" json:"resolution"`       // Default candle resolution
	PageSize     int           `mapstructure:"page_size" json:"page_size"`         // Candles per request, 1..2000
	PageInterval time.Duration `mapstructure:"page_interval" json:"page_interval"` // Spacing between page requests
}

// ExportConfig configures the output file
type ExportConfig struct {
	Dir       string `mapstructure:"dir" json:"dir"`             // Directory for default file names
	Delimiter string `mapstructure:"delimiter" json:"delimiter"` // One character, or "tab"
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level      string `mapstructure:"level" json:"level"`             // Log level: debug, info, warn, error
	Format     string `mapstructure:"format" json:"format"`           // Log format: json, text
	Output     string `mapstructure:"output" json:"output"`           // Output: stdout, stderr, file
	FilePath   string `mapstructure:"file_path" json:"file_path"`     // Log file path
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`       // Maximum log file size in MB
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"` // Maximum log file backups
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`         // Maximum log file age in days
	Compress   bool   `mapstructure:"compress" json:"compress"`       // Compress old log files
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Exchange: ExchangeConfig{
			BaseURL:   exchange.DefaultBaseURL,
			Timeout:   exchange.DefaultTimeout,
			UserAgent: exchange.DefaultUserAgent,
		},
		Fetch: FetchConfig{
			Resolution:   string(models.Resolution1d),
			PageSize:     exchange.MaxCandlesPerRequest,
			PageInterval: 100 * time.Millisecond,
		},
		Export: ExportConfig{
			Dir:       ".",
			Delimiter: ",",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   "",
			MaxSize:    100, // 100MB
			MaxBackups: 5,
			MaxAge:     30, // 30 days
			Compress:   true,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"log-output": "logging.output",
	"log-file":   "logging.file_path",
	"base-url":   "exchange.base_url",
	"timeout":    "exchange.timeout",
	"resolution": "fetch.resolution",
	"page-size":  "fetch.page_size",
	"delimiter":  "export.delimiter",
	"output-dir": "export.dir",
}

// ConfigManager handles configuration loading and validation
type ConfigManager struct {
	v          *viper.Viper
	configPath string
	envFile    string
	logger     *slog.Logger
}

// NewConfigManager creates a new configuration manager. An empty configPath
// searches the working directory and $HOME/.config/ohlcv for ohlcv.*.
func NewConfigManager(configPath string, logger *slog.Logger) *ConfigManager {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cm := &ConfigManager{
		v:          v,
		configPath: configPath,
		envFile:    DefaultEnvFile,
		logger:     logger,
	}
	cm.setDefaults(DefaultConfig())
	return cm
}

// SetEnvFile changes the dotenv file; an empty name disables it.
func (cm *ConfigManager) SetEnvFile(path string) {
	cm.envFile = path
}

// BindFlags lets the known flags in fs override every other source once set.
func (cm *ConfigManager) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := cm.v.BindPFlag(key, flag); err != nil {
			return apperr.Configuration(fmt.Errorf("failed to bind flag --%s: %w", name, err))
		}
	}
	return nil
}

// LoadConfig resolves the configuration from every source and validates it.
func (cm *ConfigManager) LoadConfig(ctx context.Context) (*AppConfig, error) {
	if err := cm.loadEnvFile(); err != nil {
		return nil, apperr.Configuration(err)
	}

	if err := cm.loadFromFile(); err != nil {
		return nil, apperr.Configuration(err)
	}

	config := &AppConfig{}
	if err := cm.v.Unmarshal(config); err != nil {
		return nil, apperr.Configuration(fmt.Errorf("failed to decode configuration: %w", err))
	}

	if err := cm.validateConfig(config); err != nil {
		return nil, apperr.Configuration(fmt.Errorf("configuration validation failed: %w", err))
	}

	cm.logger.Debug("configuration loaded successfully",
		"config_file", cm.v.ConfigFileUsed(),
		"base_url", config.Exchange.BaseURL,
		"resolution", config.Fetch.Resolution,
		"log_level", config.Logging.Level)

	return config, nil
}

// loadEnvFile exports the dotenv variables without overriding the real environment
func (cm *ConfigManager) loadEnvFile() error {
	if cm.envFile == "" {
		return nil
	}
	if err := godotenv.Load(cm.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", cm.envFile, err)
	}
	cm.logger.Debug("loaded environment file", "path", cm.envFile)
	return nil
}

// loadFromFile reads the explicit config file, or the first ohlcv.* found
func (cm *ConfigManager) loadFromFile() error {
	if cm.configPath != "" {
		cm.v.SetConfigFile(cm.configPath)
		if err := cm.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cm.configPath, err)
		}
		cm.logger.Debug("loaded configuration from file", "path", cm.configPath)
		return nil
	}

	cm.v.SetConfigName(DefaultConfigName)
	cm.v.AddConfigPath(".")
	cm.v.AddConfigPath("$HOME/.config/ohlcv")
	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			cm.logger.Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func (cm *ConfigManager) setDefaults(d *AppConfig) {
	cm.v.SetDefault("exchange.base_url", d.Exchange.BaseURL)
	cm.v.SetDefault("exchange.timeout", d.Exchange.Timeout)
	cm.v.SetDefault("exchange.user_agent", d.Exchange.UserAgent)

	cm.v.SetDefault("fetch.resolution", d.Fetch.Resolution)
	cm.v.SetDefault("fetch.page_size", d.Fetch.PageSize)
	cm.v.SetDefault("fetch.page_interval", d.Fetch.PageInterval)

	cm.v.SetDefault("export.dir", d.Export.Dir)
	cm.v.SetDefault("export.delimiter", d.Export.Delimiter)

	cm.v.SetDefault("logging.level", d.Logging.Level)
	cm.v.SetDefault("logging.format", d.Logging.Format)
	cm.v.SetDefault("logging.output", d.Logging.Output)
	cm.v.SetDefault("logging.file_path", d.Logging.FilePath)
	cm.v.SetDefault("logging.max_size", d.Logging.MaxSize)
	cm.v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	cm.v.SetDefault("logging.max_age", d.Logging.MaxAge)
	cm.v.SetDefault("logging.compress", d.Logging.Compress)
}

// validateConfig validates the configuration values, reporting every problem at once
func (cm *ConfigManager) validateConfig(config *AppConfig) error {
	var errs []string

	if config.Exchange.BaseURL == "" {
		errs = append(errs, "exchange.base_url is required")
	}
	if config.Exchange.Timeout <= 0 {
		errs = append(errs, "exchange.timeout must be greater than 0")
	}

	if _, err := models.ParseResolution(config.Fetch.Resolution); err != nil {
		errs = append(errs, fmt.Sprintf("fetch.resolution must be one of: %s",
			strings.Join(models.SupportedResolutions(), ", ")))
	}
	if config.Fetch.PageSize < 1 || config.Fetch.PageSize > exchange.MaxCandlesPerRequest {
		errs = append(errs, fmt.Sprintf("fetch.page_size must be between 1 and %d", exchange.MaxCandlesPerRequest))
	}
	if config.Fetch.PageInterval < 0 {
		errs = append(errs, "fetch.page_interval must not be negative")
	}

	if _, err := export.ParseDelimiter(config.Export.Delimiter); err != nil {
		errs = append(errs, "export.delimiter must be a single character or \"tab\"")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(config.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(config.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	switch strings.ToLower(config.Logging.Output) {
	case "stdout", "stderr":
	case "file":
		if config.Logging.FilePath == "" {
			errs = append(errs, "logging.file_path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be one of: stdout, stderr, file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// ConfigFileUsed returns the config file that was read, if any
func (cm *ConfigManager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// Delimiter returns the parsed export delimiter.
func (c *AppConfig) Delimiter() rune {
	d, err := export.ParseDelimiter(c.Export.Delimiter)
	if err != nil {
		return export.DefaultDelimiter
	}
	return d
}

// String returns the configuration as indented JSON
func (c *AppConfig) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
