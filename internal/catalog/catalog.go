package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"emindy/internal/steps"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)

// Practice is one guided practice.
type Practice struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Steps []steps.Step `json:"steps"`
}

// Playable reports whether the practice has at least one valid step.
func (p Practice) Playable() bool {
	return len(p.Steps) > 0
}

// TotalSeconds sums the step durations.
func (p Practice) TotalSeconds() int {
	return steps.Total(p.Steps)
}

type fileFormat struct {
	Practices []rawPractice `yaml:"practices"`
}

type rawPractice struct {
	ID    string           `yaml:"id"`
	Title string           `yaml:"title"`
	Steps []map[string]any `yaml:"steps"`
}

// Catalog is an immutable set of practices.
type Catalog struct {
	practices []Practice
	byID      map[string]int
}

// Empty returns a catalog without practices.
func Empty() *Catalog {
	return &Catalog{byID: map[string]int{}}
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML. Step records are normalized; practices whose
// steps are all invalid are kept but are not playable.
func Parse(data []byte) (*Catalog, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{byID: make(map[string]int, len(raw.Practices))}
	for i, entry := range raw.Practices {
		id := strings.TrimSpace(entry.ID)
		if !idPattern.MatchString(id) {
			return nil, fmt.Errorf("practice %d: invalid id %q", i+1, entry.ID)
		}
		if _, dup := cat.byID[id]; dup {
			return nil, fmt.Errorf("practice %d: duplicate id %q", i+1, id)
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = id
		}
		cat.byID[id] = len(cat.practices)
		cat.practices = append(cat.practices, Practice{
			ID:    id,
			Title: title,
			Steps: steps.Normalize(entry.Steps),
		})
	}
	return cat, nil
}

// Get returns the practice with id.
func (c *Catalog) Get(id string) (Practice, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Practice{}, false
	}
	return c.practices[idx], true
}

// List returns practices sorted by ID.
func (c *Catalog) List() []Practice {
	out := append([]Practice(nil), c.practices...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of practices.
func (c *Catalog) Len() int {
	return len(c.practices)
}
