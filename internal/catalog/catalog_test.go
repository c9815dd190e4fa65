package catalog_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"emindy/internal/catalog"
	"emindy/internal/testsupport"
)

func TestParseSampleCatalog(t *testing.T) {
	cat, err := catalog.Parse([]byte(testsupport.SampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("expected 3 practices, got %d", cat.Len())
	}

	box, ok := cat.Get("box-breathing")
	if !ok {
		t.Fatal("expected box-breathing")
	}
	if box.Title != "Box breathing" || len(box.Steps) != 4 || box.TotalSeconds() != 16 {
		t.Fatalf("unexpected practice %+v", box)
	}
	if box.Steps[0].Tip != "Through the nose" {
		t.Fatalf("unexpected tip %q", box.Steps[0].Tip)
	}

	scan, _ := cat.Get("body-scan")
	if scan.Steps[1].Duration != 90 {
		t.Fatalf("expected quoted duration to parse, got %d", scan.Steps[1].Duration)
	}

	empty, _ := cat.Get("empty")
	if empty.Playable() {
		t.Fatal("expected practice without valid steps to be unplayable")
	}

	ids := []string{}
	for _, p := range cat.List() {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "body-scan,box-breathing,empty" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := map[string]string{
		"duplicate ids": "practices:\n  - id: a\n  - id: a\n",
		"bad id":        "practices:\n  - id: \"Has Spaces\"\n",
		"not yaml":      "practices: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := catalog.Parse([]byte(content)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog(testsupport.SampleCatalog))
	cat, err := catalog.Load(cfg.Paths.CatalogFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := cat.Get("body-scan"); !ok {
		t.Fatal("expected body-scan")
	}

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if catalog.Empty().Len() != 0 {
		t.Fatal("expected empty catalog")
	}
}
