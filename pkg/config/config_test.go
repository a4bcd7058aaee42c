package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CREWDESK_DB_URL", "postgres://localhost/crewdesk_test")
	t.Setenv("CREWDESK_JWT_SECRET", testSecret)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access TTL = %v, want 15m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.MaxLoginAttempts != 5 {
		t.Errorf("max login attempts = %d, want 5", cfg.Auth.MaxLoginAttempts)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %s, want postgres", cfg.Database.Driver)
	}
	if !cfg.Server.RateLimitEnabled {
		t.Error("rate limiting should default to enabled")
	}
}

func TestLoadConfig_RateLimitToggle(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CREWDESK_RATE_LIMIT_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.RateLimitEnabled {
		t.Error("rate limiting should be disabled by CREWDESK_RATE_LIMIT_ENABLED=false")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CREWDESK_PORT", "9999")
	t.Setenv("CREWDESK_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CREWDESK_MAX_LOGIN_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("port = %s, want 9999", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute {
		t.Errorf("access TTL = %v, want 5m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.MaxLoginAttempts != 3 {
		t.Errorf("max login attempts = %d, want 3", cfg.Auth.MaxLoginAttempts)
	}
}

func TestLoadConfig_YAMLFileUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crewdesk.yaml")
	yamlBody := `
server:
  port: "7070"
database:
  driver: sqlite3
  url: "file:dev.db"
auth:
  jwt_secret: "` + testSecret + `"
tenants:
  trial_days: 14
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CREWDESK_CONFIG_FILE", path)
	// Env wins over file.
	t.Setenv("CREWDESK_PORT", "7071")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7071" {
		t.Errorf("port = %s, env must override file", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("driver = %s, want sqlite3 from file", cfg.Database.Driver)
	}
	if cfg.Tenants.TrialDays != 14 {
		t.Errorf("trial days = %d, want 14 from file", cfg.Tenants.TrialDays)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing db url", map[string]string{"CREWDESK_JWT_SECRET": testSecret}},
		{"missing jwt secret", map[string]string{"CREWDESK_DB_URL": "postgres://x"}},
		{"short jwt secret", map[string]string{
			"CREWDESK_DB_URL": "postgres://x", "CREWDESK_JWT_SECRET": "short",
		}},
		{"bad driver", map[string]string{
			"CREWDESK_DB_URL": "x", "CREWDESK_JWT_SECRET": testSecret,
			"CREWDESK_DB_DRIVER": "oracle",
		}},
		{"same ports", map[string]string{
			"CREWDESK_DB_URL": "x", "CREWDESK_JWT_SECRET": testSecret,
			"CREWDESK_PORT": "8080", "CREWDESK_HEALTH_PORT": "8080",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
