package config

import (
	"testing"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Errorf("env = %q, want development default", cfg.Env)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool defaults = %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.DefaultTenant != "default" {
		t.Errorf("default tenant = %q", cfg.DefaultTenant)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestValidateProductionAuth(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for production without auth configuration")
	}

	cfg.AuthIssuer = "https://auth.example.com/realms/clinic"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with issuer: %v", err)
	}

	dev := &Config{Env: "development"}
	if err := dev.Validate(); err != nil {
		t.Fatalf("Validate dev: %v", err)
	}
}
