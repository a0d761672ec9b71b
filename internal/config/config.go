// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Store kinds accepted by the store key.
const (
	StoreNATS   = "nats"
	StoreRedis  = "redis"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds all configuration values for farmwiz.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	FarmCalendarURL string        `mapstructure:"farmcalendar_url" yaml:"farmcalendar_url"`
	GatekeeperURL   string        `mapstructure:"gatekeeper_url" yaml:"gatekeeper_url"`
	APITimeout      time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	ServiceName     string        `mapstructure:"service_name" yaml:"service_name"`
	AdminUsername   string        `mapstructure:"admin_username" yaml:"admin_username,omitempty"`
	AdminPassword   string        `mapstructure:"admin_password" yaml:"admin_password,omitempty"`
	AccessCode      string        `mapstructure:"access_code" yaml:"access_code,omitempty"`
	Store           string        `mapstructure:"store" yaml:"store"`
	DataDir         string        `mapstructure:"data_dir" yaml:"data_dir"`
	RedisURL        string        `mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	RecordTTL       time.Duration `mapstructure:"record_ttl" yaml:"record_ttl"`
	SealKey         string        `mapstructure:"seal_key" yaml:"seal_key,omitempty"`
	CookieSecure    bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile         string        `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

var defaults = map[string]any{
	"listen_addr":      ":8080",
	"farmcalendar_url": "http://localhost:8002",
	"gatekeeper_url":   "http://localhost:8001",
	"api_timeout":      "15s",
	"service_name":     "farm_calendar",
	"admin_username":   "",
	"admin_password":   "",
	"access_code":      "",
	"store":            StoreNATS,
	"data_dir":         ".farmwiz",
	"redis_url":        "",
	"record_ttl":       "24h",
	"seal_key":         "",
	"cookie_secure":    false,
	"log_level":        "info",
	"log_file":         "",
}

// Keys returns every configuration key in a stable order.
func Keys() []string {
	return []string{
		"listen_addr", "farmcalendar_url", "gatekeeper_url", "api_timeout",
		"service_name", "admin_username", "admin_password", "access_code",
		"store", "data_dir", "redis_url", "record_ttl", "seal_key",
		"cookie_secure", "log_level", "log_file",
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		FarmCalendarURL: "http://localhost:8002",
		GatekeeperURL:   "http://localhost:8001",
		APITimeout:      15 * time.Second,
		ServiceName:     "farm_calendar",
		Store:           StoreNATS,
		DataDir:         ".farmwiz",
		RecordTTL:       24 * time.Hour,
		LogLevel:        "info",
	}
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars (.env included) > project config > XDG global config > defaults
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into v. Callers bind cobra flags to v
// before calling so flags take precedence over everything else.
func LoadWith(v *viper.Viper) (*Config, error) {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v.SetConfigType("yaml")
	v.SetConfigName("farmwiz")

	for _, key := range Keys() {
		v.SetDefault(key, defaults[key])
	}

	v.SetEnvPrefix("FARMWIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit bindings so Unmarshal sees env-only values.
	for _, key := range Keys() {
		if err := v.BindEnv(key, "FARMWIZ_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreNATS, StoreFile, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("store \"redis\" requires redis_url")
		}
	default:
		return fmt.Errorf("unknown store %q (want nats, redis, file or memory)", c.Store)
	}
	if c.FarmCalendarURL == "" {
		return errors.New("farmcalendar_url is required")
	}
	if c.GatekeeperURL == "" {
		return errors.New("gatekeeper_url is required")
	}
	if c.APITimeout <= 0 {
		return errors.New("api_timeout must be positive")
	}
	if c.RecordTTL < 0 {
		return errors.New("record_ttl cannot be negative")
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/farmwiz/farmwiz.yml or $XDG_CONFIG_HOME/farmwiz/farmwiz.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "farmwiz", "farmwiz.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "farmwiz", "farmwiz.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "farmwiz.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	// Secrets may be present; keep the file private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
