// Package config loads service configuration: defaults, then an optional
// kartoteka.yaml, then KARTOTEKA_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// DatabaseDSN selects the Postgres store; empty means in-memory.
	DatabaseDSN string `mapstructure:"database_dsn"`

	// Shared-secret access codes for the two roles.
	UserCode  string `mapstructure:"user_code"`
	AdminCode string `mapstructure:"admin_code"`

	SearchLimit   int    `mapstructure:"search_limit"`
	OpsAddr       string `mapstructure:"ops_addr"`
	LogLevel      string `mapstructure:"log_level"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

func Default() *Config {
	return &Config{
		UserCode:      "12345",
		AdminCode:     "77777",
		SearchLimit:   100,
		OpsAddr:       ":8081",
		LogLevel:      "info",
		MigrationsDir: "migrations",
	}
}

// Load reads configuration. path, when non-empty, points at an explicit
// config file; otherwise kartoteka.yaml is searched in the working directory
// and /etc/kartoteka.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigName("kartoteka")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kartoteka")
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("KARTOTEKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_dsn", def.DatabaseDSN)
	v.SetDefault("user_code", def.UserCode)
	v.SetDefault("admin_code", def.AdminCode)
	v.SetDefault("search_limit", def.SearchLimit)
	v.SetDefault("ops_addr", def.OpsAddr)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("migrations_dir", def.MigrationsDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.UserCode == "" || c.AdminCode == "" {
		return errors.New("config: access codes must not be empty")
	}
	if c.UserCode == c.AdminCode {
		return errors.New("config: user and admin codes must differ")
	}
	if c.SearchLimit <= 0 {
		return errors.New("config: search_limit must be positive")
	}
	return nil
}
