package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultYAMLConfig(t *testing.T) {
	cfg := DefaultYAMLConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.APIKeyHeader != "X-API-Key" {
		t.Errorf("default api key header = %q", cfg.Auth.APIKeyHeader)
	}
	if cfg.Security.MaxLoginAttempts != 5 {
		t.Errorf("default max login attempts = %d, want 5", cfg.Security.MaxLoginAttempts)
	}
	if cfg.Security.LockoutDuration != "15m" {
		t.Errorf("default lockout duration = %q, want 15m", cfg.Security.LockoutDuration)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Error("default config must not ship a JWT secret")
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.yaml")
	content := `
server:
  port: 9090
auth:
  jwt_secret: file-secret
security:
  max_login_attempts: 3
  lockout_duration: 5m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Security.MaxLoginAttempts != 3 {
		t.Errorf("max_login_attempts = %d, want 3", cfg.Security.MaxLoginAttempts)
	}

	// Unset fields keep their defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Security.LoginRateLimit != 10 {
		t.Errorf("login_rate_limit = %d, want default 10", cfg.Security.LoginRateLimit)
	}
}

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("QUILL_TEST_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "quill.yaml")
	content := "auth:\n  jwt_secret: ${QUILL_TEST_SECRET}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig failed: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q, want from-env", cfg.Auth.JWTSecret)
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	if _, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig failed: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("round-tripped port = %d, want 8080", cfg.Server.Port)
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		in       string
		fallback time.Duration
		want     time.Duration
	}{
		{"15m", time.Hour, 15 * time.Minute},
		{"", time.Hour, time.Hour},
		{"garbage", time.Minute, time.Minute},
		{"90s", 0, 90 * time.Second},
	}
	for _, tc := range cases {
		if got := Duration(tc.in, tc.fallback); got != tc.want {
			t.Errorf("Duration(%q, %v) = %v, want %v", tc.in, tc.fallback, got, tc.want)
		}
	}
}
