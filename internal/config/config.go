// Package config resolves runtime configuration from defaults, an optional
// config file, and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the adapter's runtime settings.
type Config struct {
	// Host is the bind address; loopback by default.
	Host string `mapstructure:"host"`
	// Port is the HTTP listen port.
	Port int `mapstructure:"port"`
	// Binary is the upstream CLI executable name or path.
	Binary string `mapstructure:"binary"`
	// Timeout bounds a single CLI run.
	Timeout time.Duration `mapstructure:"timeout"`
	// SessionFile overrides the session mapping file location.
	SessionFile string `mapstructure:"session_file"`
	// LogFile enables a rotating file sink when non-empty.
	LogFile string `mapstructure:"log_file"`
	// Debug enables development logging and request logs.
	Debug bool `mapstructure:"debug"`
}

// DefaultPort is the adapter's listen port when nothing else is configured.
const DefaultPort = 3456

// Load resolves configuration. Precedence: environment over config file
// over defaults. HOST and DEBUG are honored alongside CLAUDEBRIDGE_*.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("binary", "claude")
	v.SetDefault("timeout", 5*time.Minute)
	v.SetDefault("session_file", "")
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("claudebridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("claudebridge")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	// A missing config file is the normal case.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Launcher environment overrides named by the external contract.
	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if debug := os.Getenv("DEBUG"); debug != "" && debug != "0" && debug != "false" {
		cfg.Debug = true
	}

	return &cfg, nil
}
