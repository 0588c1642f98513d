package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"callconsole/internal/config"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	ConfigPath string                   `json:"config_path,omitempty" toml:"config_path,omitempty"`
	Daemon     effectiveDaemonConfig    `json:"daemon" toml:"daemon"`
	Storage    effectiveStorageConfig   `json:"storage" toml:"storage"`
	Logging    effectiveLoggingConfig   `json:"logging" toml:"logging"`
	Agent      effectiveAgentConfig     `json:"agent" toml:"agent"`
	Remote     effectiveRemoteConfig    `json:"remote" toml:"remote"`
	Reconcile  effectiveReconcileConfig `json:"reconcile" toml:"reconcile"`
	Chat       effectiveChatConfig      `json:"chat" toml:"chat"`
}

type effectiveDaemonConfig struct {
	Address string `json:"address" toml:"address"`
	BaseURL string `json:"base_url" toml:"base_url"`
	Metrics bool   `json:"metrics" toml:"metrics"`
}

type effectiveStorageConfig struct {
	DBPath string `json:"db_path" toml:"db_path"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveAgentConfig struct {
	ID          string `json:"id" toml:"id"`
	SessionType string `json:"session_type" toml:"session_type"`
	Priority    string `json:"priority" toml:"priority"`
}

type effectiveRemoteConfig struct {
	Timeout string `json:"timeout" toml:"timeout"`
}

type effectiveReconcileConfig struct {
	Concurrency int `json:"concurrency" toml:"concurrency"`
}

type effectiveChatConfig struct {
	ContextEntries int `json:"context_entries" toml:"context_entries"`
}

func newConfigCommand(wiring commandWiring) *cobra.Command {
	var defaults bool
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedFormat, err := resolveConfigFormat(format)
			if err != nil {
				return err
			}
			cfg := config.Default()
			if !defaults {
				cfg, err = wiring.loadConfig()
				if err != nil {
					return err
				}
			}
			out, err := buildConfigOutput(cfg)
			if err != nil {
				return err
			}
			return writeConfigOutput(cmd.OutOrStdout(), resolvedFormat, out)
		},
	}
	cmd.Flags().BoolVar(&defaults, "default", false, "print default config values")
	cmd.Flags().StringVar(&format, "format", configFormatJSON, "output format: json|toml")
	return cmd
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json or toml)", raw)
}

func buildConfigOutput(cfg config.Config) (configOutput, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return configOutput{}, err
	}
	out := configOutput{
		Daemon: effectiveDaemonConfig{
			Address: cfg.DaemonAddress(),
			BaseURL: cfg.DaemonBaseURL(),
			Metrics: cfg.MetricsEnabled(),
		},
		Storage: effectiveStorageConfig{DBPath: dbPath},
		Logging: effectiveLoggingConfig{Level: cfg.LogLevel()},
		Agent: effectiveAgentConfig{
			ID:          cfg.AgentID(),
			SessionType: cfg.SessionType(),
			Priority:    cfg.Priority(),
		},
		Remote:    effectiveRemoteConfig{Timeout: cfg.RemoteTimeout().String()},
		Reconcile: effectiveReconcileConfig{Concurrency: cfg.ReconcileConcurrency()},
		Chat:      effectiveChatConfig{ContextEntries: cfg.ChatContextEntries()},
	}
	if path, err := config.ConfigPath(); err == nil {
		out.ConfigPath = path
	}
	return out, nil
}

func writeConfigOutput(w io.Writer, format string, out configOutput) error {
	if format == configFormatTOML {
		data, err := toml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
