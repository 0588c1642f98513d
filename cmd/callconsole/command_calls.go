package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func newCallsCommand(wiring commandWiring) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List calls known to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wiring.loadConfig()
			if err != nil {
				return err
			}
			c, err := wiring.newClient(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := c.EnsureDaemon(ctx); err != nil {
				return err
			}
			calls, err := c.ListCalls(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(calls)
			}
			printCalls(cmd.OutOrStdout(), calls)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print calls as JSON")
	return cmd
}
