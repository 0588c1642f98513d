package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".callconsole"
	homeEnvVar = "CALLCONSOLE_HOME"
)

// DataDir returns the base data directory. CALLCONSOLE_HOME overrides the
// default of ~/.callconsole.
func DataDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(homeEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}

// TokenPath returns the path to the daemon bearer token file.
func TokenPath() (string, error) {
	return dataPath("token")
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// DBPath returns the default bbolt database path.
func DBPath() (string, error) {
	return dataPath("callconsole.db")
}

// LogPath returns the path the terminal console logs to.
func LogPath() (string, error) {
	return dataPath(filepath.Join("logs", "console.log"))
}

// DaemonLogPath returns the log file used by a backgrounded daemon.
func DaemonLogPath() (string, error) {
	return dataPath(filepath.Join("logs", "daemon.log"))
}
