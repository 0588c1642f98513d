package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	t.Setenv(homeEnvVar, "")
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, ".callconsole") {
		t.Fatalf("unexpected data dir: %s", dataDir)
	}

	tokenPath, err := TokenPath()
	if err != nil {
		t.Fatalf("TokenPath: %v", err)
	}
	if !strings.HasSuffix(tokenPath, filepath.Join(".callconsole", "token")) {
		t.Fatalf("unexpected token path: %s", tokenPath)
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if !strings.HasSuffix(configPath, filepath.Join(".callconsole", "config.toml")) {
		t.Fatalf("unexpected config path: %s", configPath)
	}

	dbPath, err := DBPath()
	if err != nil {
		t.Fatalf("DBPath: %v", err)
	}
	if !strings.HasSuffix(dbPath, filepath.Join(".callconsole", "callconsole.db")) {
		t.Fatalf("unexpected db path: %s", dbPath)
	}

	logPath, err := LogPath()
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if !strings.HasSuffix(logPath, filepath.Join(".callconsole", "logs", "console.log")) {
		t.Fatalf("unexpected log path: %s", logPath)
	}
}

func TestDataDirOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom")
	t.Setenv(homeEnvVar, override)

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if dataDir != override {
		t.Fatalf("expected override %q, got %q", override, dataDir)
	}
}
