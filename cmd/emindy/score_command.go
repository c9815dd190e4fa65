package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"emindy/internal/assessment"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var share bool
	var email string
	var copyOnly bool
	var track bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "score <phq9|gad7> [answers...]",
		Short: "Score a PHQ-9 or GAD-7 questionnaire",
		Long: "Score a PHQ-9 or GAD-7 questionnaire. Pass one answer (0-3) per question,\n" +
			"or omit the answers to be asked each question in turn.",
		Example: "  emindy score phq9 2 2 2 2 2 2 2 2 2\n  emindy score gad7 --share",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := assessment.NewForm(args[0])
			if err != nil {
				return err
			}
			def := form.Definition()
			out := cmd.OutOrStdout()

			if len(args) > 1 {
				if err := fillAnswers(form, args[1:]); err != nil {
					return err
				}
			} else {
				askQuestions(form, cmd.InOrStdin(), out)
			}

			var helpers assessment.Helpers
			if share || email != "" || track {
				client, err := ctx.client()
				if err != nil {
					return err
				}
				helpers = client
			}
			session := assessment.NewSession(helpers, ctx.logger())

			result, err := session.Submit(cmd.Context(), form)
			var incomplete *assessment.IncompleteError
			if errors.As(err, &incomplete) {
				return fmt.Errorf("%s: %w", def.Questions[incomplete.Question], err)
			}
			if err != nil {
				return err
			}

			if copyOnly {
				text, err := session.CopyText(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
				return nil
			}

			var link string
			if share {
				link, err = session.ShareLink(cmd.Context())
				if err != nil {
					return err
				}
			}
			if email != "" {
				if err := session.Email(cmd.Context(), email); err != nil {
					return err
				}
			}

			if jsonOutput {
				payload := struct {
					assessment.Result
					Summary string `json:"summary"`
					URL     string `json:"url,omitempty"`
				}{Result: result, Summary: result.Summary(), URL: link}
				return writeJSON(cmd, payload)
			}

			fmt.Fprintln(out, def.Title)
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Question", "Answer"},
				answerRows(form),
				[]columnAlignment{alignRight, alignLeft, alignLeft},
				"", def.ScoreLabel, fmt.Sprintf("%d / %d", result.Score, result.Max),
			))
			fmt.Fprintln(out, result.Summary())
			if link != "" {
				fmt.Fprintf(out, "Share link: %s\n", link)
			}
			if email != "" {
				fmt.Fprintf(out, "Summary emailed to %s\n", strings.TrimSpace(email))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&share, "share", false, "Request a signed result link from the server")
	cmd.Flags().StringVar(&email, "email", "", "Email the summary to this address via the server")
	cmd.Flags().BoolVar(&copyOnly, "copy", false, "Print only the summary text")
	cmd.Flags().BoolVar(&track, "track", false, "Send assessment analytics events to the server (implied by --share and --email)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func fillAnswers(form *assessment.Form, raw []string) error {
	questions := len(form.Definition().Questions)
	if len(raw) > questions {
		return fmt.Errorf("expected at most %d answers, got %d", questions, len(raw))
	}
	for i, value := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("answer %d: %q is not a number", i+1, value)
		}
		if err := form.Answer(i, n); err != nil {
			return fmt.Errorf("answer %d: %w", i+1, err)
		}
	}
	return nil
}

// askQuestions prompts for each answer until input runs out. Unanswered
// questions are reported by Submit.
func askQuestions(form *assessment.Form, in io.Reader, out io.Writer) {
	def := form.Definition()
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, assessment.Prompt())
	for i, question := range def.Questions {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, question)
		for value, label := range assessment.AnswerLabels {
			fmt.Fprintf(out, "   %d) %s\n", value, label)
		}
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return
			}
			n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err == nil && form.Answer(i, n) == nil {
				break
			}
			fmt.Fprintf(out, "Enter a number from 0 to %d.\n", assessment.MaxAnswer)
		}
	}
	fmt.Fprintln(out)
}

func answerRows(form *assessment.Form) [][]string {
	def := form.Definition()
	rows := make([][]string, 0, len(def.Questions))
	for i, question := range def.Questions {
		answer := ""
		if value, ok := form.Value(i); ok {
			answer = fmt.Sprintf("%d %s", value, assessment.AnswerLabels[value])
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), question, answer})
	}
	return rows
}
