// Package config defines the Taskboard application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Taskboard configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      AuthConfig      `json:"auth" yaml:"auth"`
	Messenger MessengerConfig `json:"messenger" yaml:"messenger"`
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	LogLevel  string          `json:"log_level" yaml:"log_level"`

	// MaxInteractionAgeMinutes bounds how old an inbound interaction may be
	// before it is rejected. Zero selects the built-in default.
	MaxInteractionAgeMinutes int `json:"max_interaction_age_minutes,omitempty" yaml:"max_interaction_age_minutes"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":9090"
}

// AuthConfig controls admin API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// MessengerConfig selects and configures the chat platform gateway.
type MessengerConfig struct {
	Kind    string `json:"kind" yaml:"kind"` // "mock" or "rest"
	BaseURL string `json:"base_url,omitempty" yaml:"base_url"`
	Token   string `json:"token,omitempty" yaml:"token"`

	// MinIntervalMillis spaces outbound gateway calls. Zero selects the
	// client default.
	MinIntervalMillis int `json:"min_interval_millis,omitempty" yaml:"min_interval_millis"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":9090",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Messenger: MessengerConfig{
			Kind: "mock",
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
