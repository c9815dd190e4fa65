package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"emindy/internal/catalog"
	"emindy/internal/player"
	"emindy/internal/steps"
)

func newPracticeCommand(ctx *commandContext) *cobra.Command {
	practiceCmd := &cobra.Command{
		Use:   "practice",
		Short: "Browse and play guided practices",
	}

	practiceCmd.AddCommand(newPracticeListCommand(ctx))
	practiceCmd.AddCommand(newPracticeShowCommand(ctx))
	practiceCmd.AddCommand(newPracticeRunCommand(ctx))
	practiceCmd.AddCommand(newPracticeStateCommand(ctx))
	practiceCmd.AddCommand(newPracticeClearCommand(ctx))

	return practiceCmd
}

// loadPractices reads the local catalog, or the server's when remote is set.
func loadPractices(cmd *cobra.Command, ctx *commandContext, remote bool) ([]catalog.Practice, error) {
	if remote {
		client, err := ctx.client()
		if err != nil {
			return nil, err
		}
		return client.Practices(cmd.Context())
	}
	cat, err := ctx.catalog()
	if err != nil {
		return nil, err
	}
	return cat.List(), nil
}

func findPractice(cmd *cobra.Command, ctx *commandContext, id string, remote bool) (catalog.Practice, error) {
	id = strings.TrimSpace(id)
	if remote {
		client, err := ctx.client()
		if err != nil {
			return catalog.Practice{}, err
		}
		return client.Practice(cmd.Context(), id)
	}
	cat, err := ctx.catalog()
	if err != nil {
		return catalog.Practice{}, err
	}
	practice, ok := cat.Get(id)
	if !ok {
		return catalog.Practice{}, fmt.Errorf("practice %q not found", id)
	}
	return practice, nil
}

func newPracticeListCommand(ctx *commandContext) *cobra.Command {
	var remote bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List practices in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			practices, err := loadPractices(cmd, ctx, remote)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, practices)
			}
			out := cmd.OutOrStdout()
			if len(practices) == 0 {
				fmt.Fprintln(out, "No practices found")
				return nil
			}
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(practices))
			for _, practice := range practices {
				saved := "-"
				if state, ok := store.Load(practice.ID); ok && practice.Playable() {
					saved = fmt.Sprintf("step %d/%d", state.CurrentIndex+1, len(practice.Steps))
				}
				rows = append(rows, []string{
					practice.ID,
					practice.Title,
					strconv.Itoa(len(practice.Steps)),
					steps.FormatClock(practice.TotalSeconds()),
					yesNo(practice.Playable()),
					saved,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Steps", "Total", "Playable", "Saved"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "List the server's catalog instead of the local file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPracticeShowCommand(ctx *commandContext) *cobra.Command {
	var remote bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the steps of a practice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			practice, err := findPractice(cmd, ctx, args[0], remote)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, practice)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", practice.Title, practice.ID)
			if !practice.Playable() {
				fmt.Fprintln(out, "This practice has no playable steps.")
				return nil
			}
			rows := make([][]string, 0, len(practice.Steps))
			for i, step := range practice.Steps {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					step.Label,
					steps.FormatClock(step.Duration),
					step.Tip,
				})
			}
			cfg, _ := ctx.ensureConfig()
			totalLabel := "Total"
			if cfg != nil && strings.TrimSpace(cfg.Player.Labels.Total) != "" {
				totalLabel = cfg.Player.Labels.Total
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Step", "Duration", "Tip"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				"", totalLabel, steps.FormatClock(practice.TotalSeconds()), "",
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the practice from the server")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPracticeRunCommand(ctx *commandContext) *cobra.Command {
	var remote bool
	var restart bool
	var track bool
	var frameInterval time.Duration

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Play a practice in the terminal, resuming saved progress",
		Long: "Play a practice in the terminal. Type a key and press enter to control\n" +
			"playback: enter toggles play/pause, n and p move between steps, r resets,\n" +
			"a number jumps to that step, and q quits. Progress is saved when quitting\n" +
			"or interrupted (Ctrl+C) and restored the next time the practice runs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			practice, err := findPractice(cmd, ctx, args[0], remote)
			if err != nil {
				return err
			}
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}

			var tracker player.Tracker
			if track {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				tracker = client
			}

			interval := frameInterval
			if interval <= 0 {
				interval = cfg.FrameInterval()
			}

			out := cmd.OutOrStdout()
			view := newTerminalView(out, shouldColorize(out))
			fmt.Fprintf(out, "%s (%s)\n", practice.Title, steps.FormatClock(practice.TotalSeconds()))

			p, err := player.New(player.Options{
				EntityID:  practice.ID,
				Steps:     practice.Steps,
				Config:    player.ConfigFrom(cfg),
				Scheduler: player.NewFrameScheduler(interval),
				Store:     store,
				View:      view,
				Tracker:   tracker,
				Logger:    ctx.logger(),
				Context:   cmd.Context(),
			})
			if errors.Is(err, player.ErrNoSteps) {
				return fmt.Errorf("practice %q has no playable steps", practice.ID)
			}
			if err != nil {
				return err
			}
			if restart {
				p.Reset()
			}

			fmt.Fprintln(out, practiceKeysHelp)
			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return playUntilDone(runCtx, p, view, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the practice from the server")
	cmd.Flags().BoolVar(&restart, "restart", false, "Discard saved progress and start from the first step")
	cmd.Flags().BoolVar(&track, "track", false, "Send practice_start and practice_complete events to the server")
	cmd.Flags().DurationVar(&frameInterval, "frame-interval", 0, "Delay between countdown frames (defaults to player.frame_interval_ms)")
	return cmd
}

const practiceKeysHelp = "Keys: enter play/pause, n next, p previous, r reset, 1-9 jump to step, q quit"

// playUntilDone plays p and applies line-based key commands from in until the
// practice completes, the user quits, or ctx ends. When in reaches EOF the
// practice keeps playing.
func playUntilDone(ctx context.Context, p *player.Player, view *terminalView, in io.Reader, out io.Writer) error {
	keys := make(chan string)
	go readKeys(ctx, in, keys)

	p.Play()
	for {
		select {
		case <-view.Done():
			return nil
		case <-ctx.Done():
			pauseAndReport(p, out)
			return nil
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if !applyKey(p, key) {
				pauseAndReport(p, out)
				return nil
			}
		}
	}
}

func readKeys(ctx context.Context, in io.Reader, keys chan<- string) {
	defer close(keys)
	if in == nil {
		return
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case keys <- strings.ToLower(strings.TrimSpace(scanner.Text())):
		case <-ctx.Done():
			return
		}
	}
}

// applyKey dispatches one key command. It returns false when the user quits.
func applyKey(p *player.Player, key string) bool {
	switch key {
	case "", "space", " ":
		p.Toggle()
	case "n":
		p.Next()
	case "p":
		p.Prev()
	case "r":
		p.Reset()
	case "q":
		return false
	default:
		if n, err := strconv.Atoi(key); err == nil {
			p.Select(n - 1)
		}
	}
	return true
}

func pauseAndReport(p *player.Player, out io.Writer) {
	p.Pause()
	snap := p.Snapshot()
	fmt.Fprintf(out, "\nPaused at step %d of %d; run again to resume.\n", snap.Index+1, snap.StepCount)
}

func newPracticeStateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show saved practice progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			entries := store.List()
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No saved progress")
				return nil
			}

			cat, catErr := ctx.catalog()
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				title := "-"
				stepLabel := fmt.Sprintf("%d", entry.State.CurrentIndex+1)
				if catErr == nil {
					if practice, ok := cat.Get(entry.EntityID); ok {
						title = practice.Title
						if entry.State.CurrentIndex < len(practice.Steps) {
							stepLabel = fmt.Sprintf("%d/%d %s", entry.State.CurrentIndex+1, len(practice.Steps),
								practice.Steps[entry.State.CurrentIndex].Label)
						}
					}
				}
				rows = append(rows, []string{
					entry.EntityID,
					title,
					stepLabel,
					steps.FormatClock(entry.State.Remaining),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Practice", "Title", "Step", "Remaining"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newPracticeClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [id]",
		Short: "Forget saved progress for one practice, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("specify a practice id or --all")
			}
			store, err := ctx.stateStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if all {
				if err := store.Clear(); err != nil {
					return fmt.Errorf("clear saved progress: %w", err)
				}
				fmt.Fprintln(out, "Cleared all saved progress")
				return nil
			}
			id := strings.TrimSpace(args[0])
			if _, ok := store.Load(id); !ok {
				fmt.Fprintf(out, "No saved progress for %s\n", id)
				return nil
			}
			if err := store.Delete(id); err != nil {
				return fmt.Errorf("clear saved progress: %w", err)
			}
			fmt.Fprintf(out, "Cleared saved progress for %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear progress for every practice")
	return cmd
}
