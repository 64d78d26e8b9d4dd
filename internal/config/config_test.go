package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DatabaseURL != "sqlite://./pulse.db" {
		t.Errorf("unexpected default db url: %s", cfg.DatabaseURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("unexpected default port: %s", cfg.Port)
	}
	if cfg.Resolver != "ipinfo" {
		t.Errorf("unexpected default resolver: %s", cfg.Resolver)
	}
	if cfg.CacheTTL != 14*24*time.Hour {
		t.Errorf("unexpected default cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.SessionWindow != 30*time.Minute {
		t.Errorf("unexpected default session window: %s", cfg.SessionWindow)
	}
	if cfg.QueueSize != 1024 || cfg.QueueWorkers != 2 {
		t.Errorf("unexpected default queue sizing: %d/%d", cfg.QueueSize, cfg.QueueWorkers)
	}
	if cfg.AllowedOrigin != "*" {
		t.Errorf("unexpected default origin: %s", cfg.AllowedOrigin)
	}
	if cfg.TrustedProxyHeader != "CF-Connecting-IP" {
		t.Errorf("unexpected default proxy header: %s", cfg.TrustedProxyHeader)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PULSE_DB_URL", "sqlite://./custom.db")
	t.Setenv("PULSE_PORT", "9090")
	t.Setenv("PULSE_REDIS_ADDR", "localhost:6379")
	t.Setenv("PULSE_RESOLVER", "none")
	t.Setenv("PULSE_SESSION_WINDOW", "45m")
	t.Setenv("PULSE_QUEUE_SIZE", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DatabaseURL != "sqlite://./custom.db" {
		t.Errorf("db url override ignored: %s", cfg.DatabaseURL)
	}
	if cfg.Port != "9090" {
		t.Errorf("port override ignored: %s", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr override ignored: %s", cfg.RedisAddr)
	}
	if cfg.Resolver != "none" {
		t.Errorf("resolver override ignored: %s", cfg.Resolver)
	}
	if cfg.SessionWindow != 45*time.Minute {
		t.Errorf("session window override ignored: %s", cfg.SessionWindow)
	}
	if cfg.QueueSize != 64 {
		t.Errorf("queue size override ignored: %d", cfg.QueueSize)
	}

	// Untouched keys keep their defaults.
	if cfg.CacheTTL != 14*24*time.Hour {
		t.Errorf("unrelated default mutated: %s", cfg.CacheTTL)
	}
}
