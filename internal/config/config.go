package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"campsync/internal/transport"
)

// Config is the operator console configuration. Values come from an optional
// yaml file overridden by CAMPSYNC_* environment variables.
type Config struct {
	BackendURL     string        `mapstructure:"backend_url"`
	SocketPath     string        `mapstructure:"socket_path"`
	MessagePath    string        `mapstructure:"message_path"`
	StatusPath     string        `mapstructure:"status_path"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// MetricsAddr exposes /metrics when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:     "http://127.0.0.1:8090",
		SocketPath:     "/api/workflow/ws",
		MessagePath:    "/api/workflow/message",
		StatusPath:     "/api/workflow/status",
		ReconnectDelay: 3 * time.Second,
		ProbeInterval:  10 * time.Second,
		HTTPTimeout:    15 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads configuration from the given file path (optional, empty means
// skip) with environment overrides applied on top of defaults.
func Load(path string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("backend_url", defaults.BackendURL)
	v.SetDefault("socket_path", defaults.SocketPath)
	v.SetDefault("message_path", defaults.MessagePath)
	v.SetDefault("status_path", defaults.StatusPath)
	v.SetDefault("reconnect_delay", defaults.ReconnectDelay)
	v.SetDefault("probe_interval", defaults.ProbeInterval)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)

	v.SetEnvPrefix("CAMPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the transport cannot work with.
func (c Config) Validate() error {
	url := strings.TrimSpace(c.BackendURL)
	if url == "" {
		return fmt.Errorf("backend_url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("backend_url must be http(s), got %q", c.BackendURL)
	}
	if c.ReconnectDelay < 0 || c.ProbeInterval < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	return nil
}

// TransportConfig maps the console config onto the transport layer.
func (c Config) TransportConfig() transport.Config {
	return transport.Config{
		BaseURL:        c.BackendURL,
		SocketPath:     c.SocketPath,
		MessagePath:    c.MessagePath,
		StatusPath:     c.StatusPath,
		ReconnectDelay: c.ReconnectDelay,
		ProbeInterval:  c.ProbeInterval,
		HTTPTimeout:    c.HTTPTimeout,
	}
}
