// Package config resolves client settings from config.yaml, a .env file and TASKFLOW_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "TASKFLOW"
	configFileName = "config.yaml"

	DefaultAPIURL         = "http://127.0.0.1:8000"
	DefaultReconnectDelay = 2 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

type Config struct {
	// APIURL is the backend origin; REST lives under <APIURL>/api/.
	APIURL string `mapstructure:"api_url"`
	// WSURL overrides the WebSocket origin. Empty means derive it from APIURL.
	WSURL          string        `mapstructure:"ws_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogFile        string        `mapstructure:"log_file"`
	LogLevel       string        `mapstructure:"log_level"`
	Sound          bool          `mapstructure:"sound"`

	// Dir is the config dir the settings were read from.
	Dir string `mapstructure:"-"`
}

// Load reads <dir>/config.yaml when present, then TASKFLOW_* environment variables.
// dotenv files are loaded into the environment first; missing ones are skipped and
// variables already set win.
func Load(dir string, dotenv ...string) (*Config, error) {
	for _, p := range dotenv {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("ws_url", "")
	v.SetDefault("reconnect_delay", DefaultReconnectDelay)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("sound", true)

	if strings.TrimSpace(dir) != "" {
		v.SetConfigFile(filepath.Join(dir, configFileName))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Dir = dir
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetAPIURL applies a flag override with the same validation as the file/env value.
func (c *Config) SetAPIURL(raw string) error {
	c.APIURL = raw
	return c.normalize()
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q (expected http(s)://host[:port])", c.APIURL)
	}
	c.WSURL = strings.TrimRight(strings.TrimSpace(c.WSURL), "/")
	if c.WSURL != "" {
		u, err := url.Parse(c.WSURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("invalid ws_url %q (expected ws(s)://host[:port])", c.WSURL)
		}
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return nil
}
