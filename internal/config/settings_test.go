package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(homeEnvVar, filepath.Join(t.TempDir(), "data"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:7878" {
		t.Fatalf("unexpected daemon address: %q", cfg.DaemonAddress())
	}
	if cfg.DaemonBaseURL() != "http://127.0.0.1:7878" {
		t.Fatalf("unexpected daemon base url: %q", cfg.DaemonBaseURL())
	}
	if cfg.RemoteTimeout() != 15*time.Second {
		t.Fatalf("unexpected remote timeout: %s", cfg.RemoteTimeout())
	}
	if cfg.ReconcileConcurrency() != 4 {
		t.Fatalf("unexpected concurrency: %d", cfg.ReconcileConcurrency())
	}
	if !cfg.MetricsEnabled() {
		t.Fatalf("expected metrics enabled by default")
	}
	if cfg.SessionType() != "inbound" || cfg.Priority() != "normal" {
		t.Fatalf("unexpected agent defaults: %q %q", cfg.SessionType(), cfg.Priority())
	}
}

func TestLoadFromTOML(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv(homeEnvVar, dataDir)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte(`[daemon]
address = "http://127.0.0.1:9999/"
metrics = false

[storage]
db_path = "calls.db"

[agent]
id = "agent-7"
priority = "high"

[remote]
timeout = "3s"

[reconcile]
concurrency = 2
`)
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:9999" {
		t.Fatalf("unexpected daemon address: %q", cfg.DaemonAddress())
	}
	if cfg.MetricsEnabled() {
		t.Fatalf("expected metrics disabled")
	}
	if cfg.AgentID() != "agent-7" || cfg.Priority() != "high" {
		t.Fatalf("unexpected agent config: %q %q", cfg.AgentID(), cfg.Priority())
	}
	if cfg.RemoteTimeout() != 3*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.RemoteTimeout())
	}
	if cfg.ReconcileConcurrency() != 2 {
		t.Fatalf("unexpected concurrency: %d", cfg.ReconcileConcurrency())
	}
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		t.Fatalf("ResolveDBPath: %v", err)
	}
	if dbPath != filepath.Join(dataDir, "calls.db") {
		t.Fatalf("unexpected db path: %q", dbPath)
	}
}

func TestRemoteTimeoutFallsBackOnInvalidValue(t *testing.T) {
	cfg := Default()
	cfg.Remote.Timeout = "soon"
	if cfg.RemoteTimeout() != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.RemoteTimeout())
	}
	cfg.Remote.Timeout = "-1s"
	if cfg.RemoteTimeout() != 15*time.Second {
		t.Fatalf("expected default timeout for negative value, got %s", cfg.RemoteTimeout())
	}
}
