package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("expected sqlite as default store, got %q", cfg.StoreDriver)
	}
	if cfg.DefaultMileage != DefaultMileageKmPerLitre {
		t.Fatalf("expected default mileage %v, got %v", DefaultMileageKmPerLitre, cfg.DefaultMileage)
	}
	if cfg.SpeedFilterR != 0.01 || cfg.SpeedFilterQ != 3 {
		t.Fatalf("unexpected speed filter defaults: r=%v q=%v", cfg.SpeedFilterR, cfg.SpeedFilterQ)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEFAULT_MILEAGE_KMPL", "32.5")
	t.Setenv("COUNT_STALE_DISTANCE", "true")
	t.Setenv("TOKEN_TTL", "30m")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.StoreDriver != "postgres" || cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override store")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.DefaultMileage != 32.5 {
		t.Fatalf("expected override mileage, got %v", cfg.DefaultMileage)
	}
	if !cfg.CountStaleDistance {
		t.Fatalf("expected stale distance counting enabled")
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected override ttl, got %v", cfg.TokenTTL)
	}
}
