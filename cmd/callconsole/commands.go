package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"callconsole/internal/client"
	"callconsole/internal/config"
	"callconsole/internal/types"
)

type commandClient interface {
	EnsureDaemon(ctx context.Context) error
	ListCalls(ctx context.Context) ([]*types.CallRecord, error)
	ShutdownDaemon(ctx context.Context) error
	Health(ctx context.Context) (*client.HealthResponse, error)
}

type clientFactory func(cfg config.Config) (commandClient, error)

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	runDaemon  func(ctx context.Context, cfg config.Config, background bool) error
	killDaemon func(cfg config.Config) error
	runUI      func(ctx context.Context, cfg config.Config, restartDaemon bool) error
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	version := buildVersion()
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newClient:  newControlClient,
		runDaemon: func(ctx context.Context, cfg config.Config, background bool) error {
			return runDaemonProcess(ctx, cfg, version, background, stderr)
		},
		killDaemon: func(cfg config.Config) error {
			return killDaemonWithFactory(cfg, newControlClient)
		},
		runUI: func(ctx context.Context, cfg config.Config, restartDaemon bool) error {
			return runConsoleUI(ctx, cfg, version, restartDaemon, stderr)
		},
		version: version,
	}
}

func newControlClient(cfg config.Config) (commandClient, error) {
	return client.New(cfg)
}

func newRootCommand(wiring commandWiring) *cobra.Command {
	root := &cobra.Command{
		Use:   "callconsole",
		Short: "Call-center agent console",
		Long: `callconsole runs the agent console: call tabs with notes, an AI assistant
and a live transcript per call, backed by a local session daemon.

Running without a subcommand launches the console.

Examples:
  callconsole                     # launch the console
  callconsole daemon              # run the session daemon in the foreground
  callconsole calls               # list calls known to the daemon
  callconsole config --format toml`,
		Version:       wiring.version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(wiring.stdout)
	root.SetErr(wiring.stderr)

	ui := newUICommand(wiring)
	root.RunE = ui.RunE
	root.Flags().AddFlagSet(ui.Flags())

	root.AddCommand(
		newDaemonCommand(wiring),
		ui,
		newConfigCommand(wiring),
		newCallsCommand(wiring),
	)
	return root
}
