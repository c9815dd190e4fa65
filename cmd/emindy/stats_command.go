package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"emindy/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var since time.Duration
	var recent int
	var token string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show analytics event counts from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if token == "" {
				token = cfg.Paths.APIToken
			}
			counts, err := client.Stats(cmd.Context(), token, since)
			if err != nil {
				return err
			}
			events, err := client.RecentEvents(cmd.Context(), token, recent)
			if err != nil {
				return err
			}
			if jsonOutput {
				payload := map[string]any{"events": counts}
				if recent > 0 {
					payload["recent"] = events
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintln(out, "No events recorded.")
				return nil
			}
			printer := message.NewPrinter(language.English)
			rows := make([][]string, 0, len(counts))
			total := 0
			for _, c := range counts {
				rows = append(rows, []string{c.Name, printer.Sprintf("%d", c.Count)})
				total += c.Count
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Event", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
				"Total", printer.Sprintf("%d", total),
			))
			if len(events) > 0 {
				fmt.Fprintln(out, renderRecentEvents(events))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "Only count events newer than this (server default when zero)")
	cmd.Flags().IntVar(&recent, "recent", 0, "Also list this many of the newest events")
	cmd.Flags().StringVar(&token, "token", "", "API token (defaults to paths.api_token)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderRecentEvents(events []store.Event) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Name,
			e.Label,
			e.EntityID,
		})
	}
	return renderTable(
		[]string{"Time", "Event", "Label", "Entity"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
