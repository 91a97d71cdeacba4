package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("token ttl = %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Fatal("development secret should be filled in")
	}
	if got := cfg.Server.AllowedOrigins(); len(got) != 1 {
		t.Fatalf("origins = %v", got)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SERVER_PORT=9090\nCODE_MAX_ATTEMPTS=3\nJWT_SECRET=0123456789abcdef0123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("CODE_MAX_ATTEMPTS")
		os.Unsetenv("JWT_SECRET")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Codes.MaxAttempts != 3 {
		t.Fatalf("cfg = %+v / %+v", cfg.Server, cfg.Codes)
	}
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}
}

func TestValidateObjectStorage(t *testing.T) {
	cfg := &Config{Environment: "development"}
	cfg.Storage.Backend = "object"
	cfg.Storage.MaxUploadBytes = 1
	cfg.Auth.MaxFailedLogins = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for object backend without URL")
	}
	cfg.Storage.ObjectURL = "https://storage.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestAllowedOriginsSplitsList(t *testing.T) {
	s := ServerConfig{CORSOrigins: "https://a.example, https://b.example,,"}
	got := s.AllowedOrigins()
	if len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("origins = %v", got)
	}
}
