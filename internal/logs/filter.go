package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"emindy/internal/logging"
)

// Filter selects log lines. Zero fields match everything.
type Filter struct {
	// Level is the lowest level shown, by name.
	Level     string
	Component string
	RequestID string
}

// Entry is the part of a log line a Filter inspects.
type Entry struct {
	Level     slog.Level
	Component string
	RequestID string
}

// Match reports whether line passes the filter. Lines that cannot be parsed
// pass only an empty filter.
func (f Filter) Match(line string) bool {
	if f == (Filter{}) {
		return true
	}
	entry, ok := Parse(line)
	if !ok {
		return false
	}
	if floor, ok := ParseLevel(f.Level); ok && entry.Level < floor {
		return false
	}
	if f.Component != "" && !strings.EqualFold(entry.Component, f.Component) {
		return false
	}
	if f.RequestID != "" && entry.RequestID != f.RequestID {
		return false
	}
	return true
}

// Parse reads the level, component, and correlation ID from a console or
// JSON formatted line.
func Parse(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		return parseJSON(line)
	}
	return parseConsole(line)
}

func parseJSON(line string) (Entry, bool) {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return Entry{}, false
	}
	level, ok := ParseLevel(stringField(record, "level"))
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Level:     level,
		Component: stringField(record, logging.FieldComponent),
		RequestID: stringField(record, logging.FieldCorrelationID),
	}, true
}

// parseConsole reads "<ts> <LEVEL> [component: ]message key=value...".
func parseConsole(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Entry{}, false
	}
	level, ok := ParseLevel(fields[1])
	if !ok {
		return Entry{}, false
	}
	entry := Entry{Level: level}
	if strings.HasSuffix(fields[2], ":") {
		entry.Component = strings.TrimSuffix(fields[2], ":")
	}
	prefix := logging.FieldCorrelationID + "="
	for _, field := range fields[3:] {
		if value, found := strings.CutPrefix(field, prefix); found {
			entry.RequestID = strings.Trim(value, `"`)
		}
	}
	return entry, true
}

// ParseLevel accepts the level names both log formats emit. An empty name
// is not a level.
func ParseLevel(value string) (slog.Level, bool) {
	if strings.TrimSpace(value) == "" {
		return 0, false
	}
	return logging.ParseLevel(value)
}

func stringField(record map[string]any, key string) string {
	value, _ := record[key].(string)
	return value
}
