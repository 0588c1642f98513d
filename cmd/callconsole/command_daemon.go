package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"callconsole/internal/client"
	"callconsole/internal/config"
	"callconsole/internal/daemon"
	"callconsole/internal/logging"
	"callconsole/internal/store"
)

func newDaemonCommand(wiring commandWiring) *cobra.Command {
	var background, kill, force bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the session daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wiring.loadConfig()
			if err != nil {
				return err
			}
			if kill {
				return wiring.killDaemon(cfg)
			}
			if force {
				if err := wiring.killDaemon(cfg); err != nil {
					return err
				}
			}
			return wiring.runDaemon(cmd.Context(), cfg, background)
		},
	}
	cmd.Flags().BoolVar(&background, "background", false, "run in background (logs to file)")
	cmd.Flags().BoolVar(&kill, "kill", false, "stop any running daemon and exit")
	cmd.Flags().BoolVar(&force, "force", false, "stop any running daemon before starting")
	return cmd
}

func runDaemonProcess(ctx context.Context, cfg config.Config, version string, background bool, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	level := logging.ParseLevel(cfg.LogLevel())
	logger := logging.New(stderr, level)
	if background {
		logPath, err := config.DaemonLogPath()
		if err != nil {
			return err
		}
		fileLogger, closer, err := logging.NewFile(logPath, level)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := daemon.LoadOrCreateToken(tokenPath)
	if err != nil {
		return err
	}
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return err
	}
	repo, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg.DaemonAddress(), token, version, repo, logger)
	d.SetMetrics(cfg.MetricsEnabled())
	return d.Run(ctx)
}

func killDaemonWithFactory(cfg config.Config, newClient clientFactory) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	err = c.ShutdownDaemon(ctx)
	if err == nil || client.IsUnavailable(err) {
		return nil
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return err
	}
	resp, err := c.Health(ctx)
	if err != nil {
		if client.IsUnavailable(err) {
			return nil
		}
		return err
	}
	if resp == nil || resp.PID <= 0 {
		return nil
	}
	return terminatePID(resp.PID)
}

func terminatePID(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
