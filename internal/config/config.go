package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Directories DirectoriesConfig `mapstructure:"directories"`
	Bundle      BundleConfig      `mapstructure:"bundle"`
	HTTPClient  HTTPClientConfig  `mapstructure:"http_client"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Journal     JournalConfig     `mapstructure:"journal"`
}

// DirectoriesConfig contains the managed directories
type DirectoriesConfig struct {
	DocumentDir string `mapstructure:"document_dir"`
	CacheDir    string `mapstructure:"cache_dir"`
}

// BundleConfig locates the bundled resources
type BundleConfig struct {
	// URL is a gocloud.dev blob URL ("file:///opt/app/assets", "mem://") or a local dir
	URL string `mapstructure:"url"`
}

// HTTPClientConfig contains settings for remote fetches
type HTTPClientConfig struct {
	Timeout             string `mapstructure:"timeout"`
	UserAgent           string `mapstructure:"user_agent"`
	RPS                 int    `mapstructure:"rps"`
	Burst               int    `mapstructure:"burst"`
	MaxIdleConnsPerHost int    `mapstructure:"max_idle_conns_per_host"`
	BufferSizeKB        int    `mapstructure:"buffer_size_kb"`
}

// ServerConfig contains the bridge server configuration
type ServerConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig contains fetch journal settings
type JournalConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	Retention       string `mapstructure:"retention"`
	CleanupInterval string `mapstructure:"cleanup_interval"`
}

// Load loads configuration from the specified file path.
// An empty path loads defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EASYFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directories.document_dir", "./data/files")
	v.SetDefault("directories.cache_dir", "./data/cache")
	v.SetDefault("bundle.url", "")
	v.SetDefault("http_client.timeout", "0s")
	v.SetDefault("http_client.user_agent", "")
	v.SetDefault("http_client.rps", 0)
	v.SetDefault("http_client.burst", 1)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.buffer_size_kb", 64)
	v.SetDefault("server.bind_addr", "127.0.0.1:8089")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", DefaultJournalPath)
	v.SetDefault("journal.retention", "720h")
	v.SetDefault("journal.cleanup_interval", "1h")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Directories.DocumentDir == "" {
		return errors.New("directories.document_dir is required")
	}
	if c.Directories.CacheDir == "" {
		return errors.New("directories.cache_dir is required")
	}

	if c.HTTPClient.RPS < 0 {
		return errors.New("http_client.rps must not be negative")
	}
	if c.HTTPClient.BufferSizeKB < 0 {
		return errors.New("http_client.buffer_size_kb must not be negative")
	}

	for key, value := range map[string]string{
		"http_client.timeout":      c.HTTPClient.Timeout,
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.idle_timeout":      c.Server.IdleTimeout,
		"journal.retention":        c.Journal.Retention,
		"journal.cleanup_interval": c.Journal.CleanupInterval,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s: must not be negative, got %s", key, value)
		}
	}

	if c.Journal.Enabled {
		journalPath := c.GetJournalPath()
		for key, dir := range map[string]string{
			"directories.document_dir": c.Directories.DocumentDir,
			"directories.cache_dir":    c.Directories.CacheDir,
		} {
			if within(dir, journalPath) {
				return fmt.Errorf("journal.path %s must not be inside %s", journalPath, key)
			}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetTimeout returns the client timeout as time.Duration, 0 meaning none
func (c *HTTPClientConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// GetBufferSize returns the buffer size in bytes
func (c *HTTPClientConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 64 * 1024
	}
	return c.BufferSizeKB * 1024
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout; 0 leaves long downloads unbounded
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *ServerConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}

// DefaultJournalPath keeps the journal next to, not inside, the managed directories
const DefaultJournalPath = "./data/journal.db"

// GetJournalPath returns the journal database path
func (c *Config) GetJournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return DefaultJournalPath
}

// within reports whether path is dir or lies below it
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// GetRetention returns how long journal entries are kept; 0 keeps them forever
func (c *JournalConfig) GetRetention() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

// GetCleanupInterval returns how often old journal entries are pruned
func (c *JournalConfig) GetCleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.CleanupInterval)
	if d <= 0 {
		return time.Hour
	}
	return d
}
