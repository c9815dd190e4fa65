package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"emindy/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var checkServer bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, secret, catalog, and mail relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			if checkServer {
				serverURL := cfg.Client.ServerURL
				if ctx.serverFlag != nil && *ctx.serverFlag != "" {
					serverURL = *ctx.serverFlag
				}
				results = append(results, preflight.CheckServer(cmd.Context(), serverURL))
			}

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, r.Passed, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkServer, "check-server", false, "Also check that the configured server answers")
	return cmd
}
