package config

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultDaemonAddress     = "127.0.0.1:7878"
	defaultLogLevel          = "info"
	defaultSessionType       = "inbound"
	defaultPriority          = "normal"
	defaultRemoteTimeout     = 15 * time.Second
	defaultReconcileWorkers  = 4
	defaultChatContextLength = 10
)

type Config struct {
	Daemon    DaemonConfig    `toml:"daemon" json:"daemon"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
	Agent     AgentConfig     `toml:"agent" json:"agent"`
	Remote    RemoteConfig    `toml:"remote" json:"remote"`
	Reconcile ReconcileConfig `toml:"reconcile" json:"reconcile"`
	Chat      ChatConfig      `toml:"chat" json:"chat"`
}

type DaemonConfig struct {
	Address string `toml:"address" json:"address"`
	Metrics *bool  `toml:"metrics,omitempty" json:"metrics,omitempty"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path" json:"db_path"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type AgentConfig struct {
	ID          string `toml:"id" json:"id"`
	SessionType string `toml:"session_type" json:"session_type"`
	Priority    string `toml:"priority" json:"priority"`
}

type RemoteConfig struct {
	// Timeout is a Go duration string such as "15s".
	Timeout string `toml:"timeout" json:"timeout"`
}

type ReconcileConfig struct {
	Concurrency int `toml:"concurrency" json:"concurrency"`
}

type ChatConfig struct {
	ContextEntries int `toml:"context_entries" json:"context_entries"`
}

func Default() Config {
	return Config{
		Daemon:    DaemonConfig{Address: defaultDaemonAddress},
		Logging:   LoggingConfig{Level: defaultLogLevel},
		Agent:     AgentConfig{SessionType: defaultSessionType, Priority: defaultPriority},
		Remote:    RemoteConfig{Timeout: defaultRemoteTimeout.String()},
		Reconcile: ReconcileConfig{Concurrency: defaultReconcileWorkers},
		Chat:      ChatConfig{ContextEntries: defaultChatContextLength},
	}
}

// Load reads config.toml from the data directory. A missing file yields the
// defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) MetricsEnabled() bool {
	if c.Daemon.Metrics == nil {
		return true
	}
	return *c.Daemon.Metrics
}

func (c Config) ResolveDBPath() (string, error) {
	path := strings.TrimSpace(c.Storage.DBPath)
	if path == "" {
		return DBPath()
	}
	return resolveConfigPath(path)
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func (c Config) AgentID() string {
	if id := strings.TrimSpace(c.Agent.ID); id != "" {
		return id
	}
	if u, err := user.Current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return strings.TrimSpace(u.Username)
	}
	return "agent"
}

func (c Config) SessionType() string {
	if v := strings.TrimSpace(c.Agent.SessionType); v != "" {
		return v
	}
	return defaultSessionType
}

func (c Config) Priority() string {
	if v := strings.TrimSpace(c.Agent.Priority); v != "" {
		return v
	}
	return defaultPriority
}

// RemoteTimeout bounds every remote call. Invalid or non-positive values
// fall back to the default.
func (c Config) RemoteTimeout() time.Duration {
	raw := strings.TrimSpace(c.Remote.Timeout)
	if raw == "" {
		return defaultRemoteTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultRemoteTimeout
	}
	return d
}

func (c Config) ReconcileConcurrency() int {
	if c.Reconcile.Concurrency <= 0 {
		return defaultReconcileWorkers
	}
	return c.Reconcile.Concurrency
}

func (c Config) ChatContextEntries() int {
	if c.Chat.ContextEntries <= 0 {
		return defaultChatContextLength
	}
	return c.Chat.ContextEntries
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
