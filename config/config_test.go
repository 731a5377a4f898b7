package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	for _, key := range []string{"TRACKER_API_URL", "HTTP_TIMEOUT", "DB_TYPE", "APP_PORT", "REDIS_ENABLED", "CACHE_TTL"} {
		t.Setenv(key, "") // restores the original value after the test
		os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.DBType != "sqlite" || cfg.AppPort != "8080" {
		t.Errorf("server defaults = %q/%q", cfg.DBType, cfg.AppPort)
	}
	if cfg.RedisEnabled {
		t.Error("RedisEnabled should default to false")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("REDIS_DB", "two")

	cfg := Load()
	if cfg.HTTPTimeout != 10*time.Second || cfg.RedisDB != 0 {
		t.Errorf("expected defaults, got %v/%d", cfg.HTTPTimeout, cfg.RedisDB)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACKER_API_URL", "http://tracker.local:9000/")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("DB_TYPE", "MySQL")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("APP_PORT", "9090")

	cfg := Load()
	if cfg.APIBaseURL != "http://tracker.local:9000" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.DBType != "mysql" {
		t.Errorf("DBType = %q", cfg.DBType)
	}
	if !cfg.RedisEnabled || cfg.RedisDB != 2 {
		t.Errorf("redis settings = %v/%d", cfg.RedisEnabled, cfg.RedisDB)
	}
	if cfg.ListenAddr() != ":9090" {
		t.Errorf("ListenAddr() = %q", cfg.ListenAddr())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{DBType: "sqlite", SQLitePath: "x.db", AppPort: "8080"}, false},
		{"sqlite missing path", Config{DBType: "sqlite", AppPort: "8080"}, true},
		{"mysql ok", Config{DBType: "mysql", DBHost: "db", DBName: "tracker", AppPort: "8080"}, false},
		{"unknown driver", Config{DBType: "postgres", AppPort: "8080"}, true},
		{"bad port", Config{DBType: "sqlite", SQLitePath: "x.db", AppPort: "http"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SQLITE_PATH", "")
	os.Unsetenv("SQLITE_PATH")
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("SQLITE_PATH") })

	env := "SQLITE_PATH=/var/lib/tracker/data.db\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(".env", []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.SQLitePath != "/var/lib/tracker/data.db" {
		t.Errorf("SQLitePath = %q, want value from .env", cfg.SQLitePath)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, existing environment should win over .env", cfg.LogLevel)
	}
}
