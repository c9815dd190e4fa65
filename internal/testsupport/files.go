package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SampleCatalog is a small practice catalog used across tests.
const SampleCatalog = `practices:
  - id: box-breathing
    title: Box breathing
    steps:
      - label: Breathe in
        duration: 4
        tip: Through the nose
      - label: Hold
        duration: 4
      - label: Breathe out
        duration: 4
      - label: Hold
        duration: 4
  - id: body-scan
    title: Body scan
    steps:
      - label: Settle
        duration: 30
      - label: Scan from head to toe
        duration: "90"
  - id: empty
    title: Nothing to play
    steps:
      - label: ""
        duration: 10
`
