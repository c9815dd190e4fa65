package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestScoreFromArguments(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"score", "phq9", "2", "2", "2", "2", "2", "2", "2", "2", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	requireContains(t, out, "PHQ-9 depression check")
	requireContains(t, out, "More than half the days")
	requireContains(t, out, "PHQ-9 score: 18 / 27 — Moderately severe.")
}

func TestScoreReportsFirstUnanswered(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"score", "gad7", "1", "1"}, env.configPath)
	if err == nil {
		t.Fatal("expected incomplete form error")
	}
	requireContains(t, err.Error(), "question 3 is unanswered")
}

func TestScoreRejectsBadAnswers(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"score", "gad7", "4"},
		{"score", "gad7", "x"},
		{"score", "bdi", "1"},
		{"score", "gad7", "1", "1", "1", "1", "1", "1", "1", "1"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestScoreInteractive(t *testing.T) {
	env := setupCLITestEnv(t)

	input := strings.NewReader("0\n0\n9\n1\n0\n0\n0\n0\n")
	out, _, err := runCLIWithInput(t, []string{"score", "gad7"}, env.configPath, input)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	requireContains(t, out, "Over the last 2 weeks")
	requireContains(t, out, "Enter a number from 0 to 3.")
	requireContains(t, out, "GAD-7 score: 1 / 21 — Minimal.")
}

func TestScoreCopyPrintsSummaryOnly(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"score", "gad7", "0", "0", "0", "0", "0", "0", "0", "--copy"}, env.configPath)
	if err != nil {
		t.Fatalf("score --copy: %v", err)
	}
	if !strings.HasPrefix(out, "GAD-7 score: 0 / 21 — Minimal.") {
		t.Fatalf("unexpected output %q", out)
	}
	requireNotContains(t, out, "Question")
}

func TestScoreShareVerifies(t *testing.T) {
	env := setupCLITestEnv(t, withServer())

	out, _, err := runCLI(t, []string{"score", "gad7", "2", "2", "2", "0", "0", "0", "0", "--json", "--share"}, env.configPath)
	if err != nil {
		t.Fatalf("score --share: %v", err)
	}
	var payload struct {
		Type    string `json:"type"`
		Score   int    `json:"score"`
		Band    string `json:"band"`
		Summary string `json:"summary"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Type != "gad7" || payload.Score != 6 || payload.Band != "Mild" || payload.URL == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	out, _, err = runCLI(t, []string{"verify", payload.URL}, env.configPath)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, "GAD-7 score: 6 / 21 — Mild.")
}

func TestScoreEmailWithoutDeliveryFails(t *testing.T) {
	env := setupCLITestEnv(t, withServer())

	_, _, err := runCLI(t, []string{"score", "gad7", "0", "0", "0", "0", "0", "0", "0", "--email", "me@example.com"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when the server has email disabled")
	}
}
