// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultFile = ".filemgr.json"
	envPrefix   = "FILEMGR"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error

	Changelog struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"changelog"`

	Backup struct {
		Enabled         bool   `mapstructure:"enabled"`
		Dir             string `mapstructure:"dir"`
		CacheSize       int    `mapstructure:"cache_size"`
		CompressMinSize int    `mapstructure:"compress_min_size"`
	} `mapstructure:"backup"`

	Diff struct {
		ContextLines int `mapstructure:"context_lines"`
	} `mapstructure:"diff"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("changelog.dir", "changelog")
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", ".filemgr")
	v.SetDefault("backup.cache_size", 64)
	v.SetDefault("backup.compress_min_size", 1024)
	v.SetDefault("diff.context_lines", 2)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration. Environment overrides are not
// applied; use Load for that.
func Default() *Config {
	var cfg Config
	cfg.LogLevel = "warn"
	cfg.Changelog.Dir = "changelog"
	cfg.Backup.Enabled = true
	cfg.Backup.Dir = ".filemgr"
	cfg.Backup.CacheSize = 64
	cfg.Backup.CompressMinSize = 1024
	cfg.Diff.ContextLines = 2
	return &cfg
}

// Load reads the JSON file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Changelog.Dir == "" {
		return errors.New("changelog.dir is required")
	}
	if c.Backup.Enabled && c.Backup.Dir == "" {
		return errors.New("backup.dir is required when backups are enabled")
	}
	if c.Backup.CacheSize < 1 {
		return fmt.Errorf("backup.cache_size must be positive, got %d", c.Backup.CacheSize)
	}
	if c.Backup.CompressMinSize < 0 {
		return fmt.Errorf("backup.compress_min_size cannot be negative, got %d", c.Backup.CompressMinSize)
	}
	if c.Diff.ContextLines < 0 {
		return fmt.Errorf("diff.context_lines cannot be negative, got %d", c.Diff.ContextLines)
	}
	return nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
