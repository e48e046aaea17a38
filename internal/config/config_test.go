package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
postgres:
  host: db.internal
  user: gamecrate
  database: gamecrate
redis:
  addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port default = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.Coordinator.CacheTTLHours != 24 {
		t.Errorf("cache ttl default = %d, want 24", cfg.Coordinator.CacheTTLHours)
	}
	if cfg.Maintenance.Interval == 0 {
		t.Error("expected a default maintenance interval")
	}
	if !cfg.Postgres.Complete() {
		t.Error("expected postgres config to be complete")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "pg.example.com")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
postgres:
  host: ${TEST_PG_HOST}
  user: gamecrate
  database: gamecrate
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "pg.example.com" {
		t.Errorf("host = %q, want expanded value", cfg.Postgres.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestPostgresComplete(t *testing.T) {
	cases := []struct {
		name string
		cfg  PostgresConfig
		want bool
	}{
		{"all set", PostgresConfig{Host: "h", User: "u", Database: "d"}, true},
		{"missing host", PostgresConfig{User: "u", Database: "d"}, false},
		{"missing user", PostgresConfig{Host: "h", Database: "d"}, false},
		{"missing database", PostgresConfig{Host: "h", User: "u"}, false},
		{"empty", PostgresConfig{}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.Complete(); got != tc.want {
			t.Errorf("%s: Complete() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Postgres.Complete() {
		t.Error("defaults must not claim a complete postgres config")
	}
	if !cfg.Maintenance.Enabled {
		t.Error("expected maintenance enabled by default")
	}
	if cfg.Maintenance.LogRetainDays == 0 {
		t.Error("expected a default log retention")
	}
	if cfg.Server.ReadTimeout == 0 || cfg.Server.WriteTimeout == 0 {
		t.Error("expected default server timeouts")
	}
	if cfg.Auth.Leeway != 30*time.Second {
		t.Errorf("auth leeway = %v, want 30s", cfg.Auth.Leeway)
	}
}
