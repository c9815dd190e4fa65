package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"emindy/internal/logging"
	"emindy/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the server log",
		Long: "Show the current server log. Filter by level, component, or the\n" +
			"X-Request-ID of an API call; --follow keeps printing new lines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if filter.Level != "" {
				if _, ok := logs.ParseLevel(filter.Level); !ok {
					return fmt.Errorf("unknown level %q (use debug, info, warn, or error)", filter.Level)
				}
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if filter.Match(line) {
					fmt.Fprintln(out, line)
				}
			}

			tail, offset, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}
			followCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(followCtx, path, offset, logs.DefaultPoll, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&filter.Level, "level", "", "Lowest level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show lines from this component")
	cmd.Flags().StringVar(&filter.RequestID, "request", "", "Only show lines for this request ID")
	return cmd
}
