package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emindy/internal/config"
)

// LogFileName is the stable name of the current server log inside the log
// directory. The server points it at the file for its current run.
const LogFileName = "emindy.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists destinations: "stdout", "stderr", or file paths. Files
	// are appended to. An empty list writes to stdout.
	Outputs []string
	// Development adds source locations regardless of level.
	Development bool
}

// ConfigOption adjusts a logger built by NewFromConfig.
type ConfigOption func(*Options)

// WithStream replaces the console stream ("stdout" or "stderr").
func WithStream(name string) ConfigOption {
	return func(o *Options) {
		if len(o.Outputs) > 0 {
			o.Outputs[0] = name
		}
	}
}

// WithFile also appends every record to path.
func WithFile(path string) ConfigOption {
	return func(o *Options) {
		if strings.TrimSpace(path) != "" {
			o.Outputs = append(o.Outputs, path)
		}
	}
}

// WithLevel overrides the configured level when level is non-empty.
func WithLevel(level string) ConfigOption {
	return func(o *Options) {
		if strings.TrimSpace(level) != "" {
			o.Level = level
		}
	}
}

// WithDevelopment adds source locations to every record.
func WithDevelopment(enabled bool) ConfigOption {
	return func(o *Options) {
		o.Development = o.Development || enabled
	}
}

// NewFromConfig builds a logger from the [logging] section. It writes to
// stdout unless options redirect it.
func NewFromConfig(cfg *config.Config, opts ...ConfigOption) (*slog.Logger, error) {
	options := Options{Level: "info", Format: "console", Outputs: []string{"stdout"}}
	if cfg != nil {
		options.Level = cfg.Logging.Level
		options.Format = cfg.Logging.Format
	}
	for _, opt := range opts {
		opt(&options)
	}
	return New(options)
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = slog.LevelInfo
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	withSource := opts.Development || level <= slog.LevelDebug

	out, err := openOutputs(opts.Outputs)
	if err != nil {
		return nil, err
	}

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(out, levelVar, withSource)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, jsonOptions(levelVar, withSource))), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// ParseLevel maps a level name to a slog level. Unknown names report false.
func ParseLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func openOutputs(paths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

// jsonOptions renames the built-in keys to ts, level and msg and renders
// times as UTC RFC3339.
func jsonOptions(level *slog.LevelVar, withSource bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:     level,
		AddSource: withSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(sourceLocation(src))
				}
			}
			return attr
		},
	}
}

func sourceLocation(src *slog.Source) string {
	return fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line)
}
