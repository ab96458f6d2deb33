// Package config loads fabricsync configuration from file, environment and
// defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// TLS holds per-client TLS trust configuration. It is injected into HTTP
// client construction so one controller session never alters another's trust.
type TLS struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	CAFile             string `yaml:"ca_file" mapstructure:"ca_file"`
}

type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type Discovery struct {
	Workers             int `yaml:"workers" mapstructure:"workers"`
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds" mapstructure:"probe_timeout_seconds"`
	MinSuccessful       int `yaml:"min_successful" mapstructure:"min_successful"`
	CacheTTLHours       int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

type Auth struct {
	MaxRetries         int `yaml:"max_retries" mapstructure:"max_retries"`
	RetryWindowMinutes int `yaml:"retry_window_minutes" mapstructure:"retry_window_minutes"`
}

type Config struct {
	DataDir               string    `yaml:"data_dir" mapstructure:"data_dir"`
	OutputDir             string    `yaml:"output_dir" mapstructure:"output_dir"`
	RequestTimeoutSeconds int       `yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	Discovery             Discovery `yaml:"discovery" mapstructure:"discovery"`
	Auth                  Auth      `yaml:"auth" mapstructure:"auth"`
	Log                   Log       `yaml:"log" mapstructure:"log"`
	TLS                   TLS       `yaml:"tls" mapstructure:"tls"`
}

func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DataDir:               dataDir,
		OutputDir:             filepath.Join(dataDir, "artifacts"),
		RequestTimeoutSeconds: 30,
		Discovery: Discovery{
			Workers:             8,
			ProbeTimeoutSeconds: 15,
			MinSuccessful:       5,
			CacheTTLHours:       24,
		},
		Auth: Auth{
			MaxRetries:         2,
			RetryWindowMinutes: 15,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./data"
	}
	return filepath.Join(home, ".fabricsync")
}

// CacheDir returns the directory holding endpoint cache files.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// StoreDir returns the directory holding the local state store.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// RequestTimeout returns the controller request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the per-probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Discovery.ProbeTimeoutSeconds) * time.Second
}

// CacheTTL returns the endpoint cache time-to-live as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Discovery.CacheTTLHours) * time.Hour
}

// RetryWindow returns the auth retry-state time-to-live as a duration.
func (c *Config) RetryWindow() time.Duration {
	return time.Duration(c.Auth.RetryWindowMinutes) * time.Minute
}

// Load reads the configuration file at path, falling back to the default
// search locations when path is empty. Missing files are not an error; the
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".fabricsync"))
		}
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("FABRICSYNC")
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
