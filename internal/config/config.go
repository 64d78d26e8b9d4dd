package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration
type Config struct {
	// Core & Database
	DatabaseURL string `koanf:"db_url"`
	Port        string `koanf:"port"`
	LogLevel    string `koanf:"log_level"`

	// Metadata cache (Redis when an address is set, in-memory otherwise)
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`

	// IP resolution
	Resolver        string        `koanf:"resolver"` // ipinfo | maxmind | none
	IPInfoBaseURL   string        `koanf:"ipinfo_base_url"`
	IPInfoToken     string        `koanf:"ipinfo_token"`
	MaxMindDBPath   string        `koanf:"maxmind_db_path"`
	ResolverTimeout time.Duration `koanf:"resolver_timeout"`

	// Session tracking
	SessionWindow        time.Duration `koanf:"session_window"`
	SessionSweepInterval time.Duration `koanf:"session_sweep_interval"`

	// Background dispatch
	QueueSize    int `koanf:"queue_size"`
	QueueWorkers int `koanf:"queue_workers"`

	// HTTP surface
	AllowedOrigin      string `koanf:"allowed_origin"`
	TrustedProxyHeader string `koanf:"trusted_proxy_header"`
}

// defaults returns default configuration values
func defaults() Config {
	return Config{
		DatabaseURL:          "sqlite://./pulse.db",
		Port:                 "8080",
		LogLevel:             "info",
		RedisAddr:            "",
		RedisPassword:        "",
		CacheTTL:             14 * 24 * time.Hour,
		Resolver:             "ipinfo",
		IPInfoBaseURL:        "https://ipinfo.io",
		IPInfoToken:          "",
		MaxMindDBPath:        "",
		ResolverTimeout:      3 * time.Second,
		SessionWindow:        30 * time.Minute,
		SessionSweepInterval: 10 * time.Minute,
		QueueSize:            1024,
		QueueWorkers:         2,
		AllowedOrigin:        "*",
		TrustedProxyHeader:   "CF-Connecting-IP",
	}
}

// Load reads configuration from environment variables and optional config file
func Load() (*Config, error) {
	k := koanf.New(".")

	// Set defaults
	cfg := defaults()

	// Try to load from config file (optional)
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Load from environment variables with PULSE_ prefix.
	// We use "." as the koanf delimiter here so that underscores in the key
	// name are preserved as-is (e.g. PULSE_REDIS_ADDR -> redis_addr, not
	// split into a nested path redis.addr).
	if err := k.Load(env.Provider("PULSE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PULSE_"))
	}), nil); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
