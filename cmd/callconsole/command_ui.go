package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"callconsole/internal/app"
	"callconsole/internal/client"
	"callconsole/internal/config"
	"callconsole/internal/logging"
	"callconsole/internal/session"
)

func newUICommand(wiring commandWiring) *cobra.Command {
	var restartDaemon bool
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Launch the agent console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wiring.loadConfig()
			if err != nil {
				return err
			}
			return wiring.runUI(cmd.Context(), cfg, restartDaemon)
		},
	}
	cmd.Flags().BoolVar(&restartDaemon, "restart-daemon", false, "restart daemon if version mismatch")
	return cmd
}

// runConsoleUI starts the daemon if needed and runs the console. When the
// daemon cannot be reached the console still starts and works locally.
func runConsoleUI(ctx context.Context, cfg config.Config, version string, restartDaemon bool, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.Nop()
	if logPath, err := config.LogPath(); err == nil {
		if fileLogger, closer, err := logging.NewFile(logPath, logging.ParseLevel(cfg.LogLevel())); err == nil {
			defer closer.Close()
			logger = fileLogger
		}
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	if err := c.EnsureDaemonVersion(ctx, version, restartDaemon); err != nil {
		logger.Warn("daemon_unavailable", logging.Err(err))
		fmt.Fprintf(stderr, "daemon unavailable, calls will be kept locally: %v\n", err)
	}

	console := session.NewConsole(c, session.Options{
		AgentID:              cfg.AgentID(),
		SessionType:          cfg.SessionType(),
		Priority:             cfg.Priority(),
		RemoteTimeout:        cfg.RemoteTimeout(),
		ReconcileConcurrency: cfg.ReconcileConcurrency(),
		ChatContextEntries:   cfg.ChatContextEntries(),
		Logger:               logger,
	})
	return app.Run(ctx, console, app.Options{Logger: logger, Follow: true})
}
