package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPracticeListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"practice", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("practice list: %v", err)
	}
	requireContains(t, out, "box-breathing")
	requireContains(t, out, "Quick check-in")

	out, _, err = runCLI(t, []string{"practice", "show", "box-breathing"}, env.configPath)
	if err != nil {
		t.Fatalf("practice show: %v", err)
	}
	requireContains(t, out, "Through the nose")
	requireContains(t, out, "TOTAL TIME")
	requireContains(t, out, "00:16")

	out, _, err = runCLI(t, []string{"practice", "show", "empty"}, env.configPath)
	if err != nil {
		t.Fatalf("practice show empty: %v", err)
	}
	requireContains(t, out, "no playable steps")

	if _, _, err := runCLI(t, []string{"practice", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown practice")
	}
}

func TestPracticeListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"practice", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("practice list --json: %v", err)
	}
	var practices []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &practices); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(practices) != 4 {
		t.Fatalf("expected 4 practices, got %d", len(practices))
	}
}

func TestPracticeRunSavesCompletion(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"practice", "run", "quick", "--frame-interval", "1ms"}, env.configPath)
	if err != nil {
		t.Fatalf("practice run: %v", err)
	}
	requireContains(t, out, "[1/2] Notice your breath")
	requireContains(t, out, "No need to change it")
	requireContains(t, out, "Practice complete. Well done.")

	out, _, err = runCLI(t, []string{"practice", "state"}, env.configPath)
	if err != nil {
		t.Fatalf("practice state: %v", err)
	}
	requireContains(t, out, "quick")
	requireContains(t, out, "2/2 Relax your shoulders")

	out, _, err = runCLI(t, []string{"practice", "clear", "quick"}, env.configPath)
	if err != nil {
		t.Fatalf("practice clear: %v", err)
	}
	requireContains(t, out, "Cleared saved progress for quick")

	out, _, err = runCLI(t, []string{"practice", "state"}, env.configPath)
	if err != nil {
		t.Fatalf("practice state: %v", err)
	}
	requireContains(t, out, "No saved progress")
}

func TestPracticeRunRestart(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"practice", "run", "quick"}, env.configPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	out, _, err := runCLI(t, []string{"practice", "run", "quick", "--restart"}, env.configPath)
	if err != nil {
		t.Fatalf("restart run: %v", err)
	}
	requireContains(t, out, "Practice reset to the first step.")
	requireContains(t, out, "Practice complete. Well done.")
}

func TestPracticeRunKeyControls(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLIWithInput(t, []string{"practice", "run", "box-breathing"}, env.configPath,
		strings.NewReader("n\n3\np\nq\n"))
	if err != nil {
		t.Fatalf("practice run: %v", err)
	}
	requireContains(t, out, "Keys: enter play/pause")
	requireContains(t, out, "Step 2 of 4: Hold")
	requireContains(t, out, "Step 3 of 4: Breathe out")
	requireContains(t, out, "Paused at step 2 of 4")
	requireNotContains(t, out, "Practice complete")

	out, _, err = runCLI(t, []string{"practice", "state"}, env.configPath)
	if err != nil {
		t.Fatalf("practice state: %v", err)
	}
	requireContains(t, out, "2/4 Hold")

	out, _, err = runCLIWithInput(t, []string{"practice", "run", "box-breathing"}, env.configPath,
		strings.NewReader("r\nq\n"))
	if err != nil {
		t.Fatalf("practice run after resume: %v", err)
	}
	requireContains(t, out, "[2/4] Hold")
	requireContains(t, out, "Practice reset to the first step.")
	requireContains(t, out, "Paused at step 1 of 4")
}

func TestPracticeRunRejectsUnplayable(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"practice", "run", "empty"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for practice without steps")
	}
	requireContains(t, err.Error(), "no playable steps")
}

func TestPracticeClearRequiresTarget(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"practice", "clear"}, env.configPath); err == nil {
		t.Fatal("expected error without id or --all")
	}
	out, _, err := runCLI(t, []string{"practice", "clear", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("practice clear --all: %v", err)
	}
	requireContains(t, out, "Cleared all saved progress")
}

func TestPracticeRemoteList(t *testing.T) {
	env := setupCLITestEnv(t, withServer())

	out, _, err := runCLI(t, []string{"practice", "list", "--remote"}, env.configPath)
	if err != nil {
		t.Fatalf("practice list --remote: %v", err)
	}
	requireContains(t, out, "body-scan")
}
