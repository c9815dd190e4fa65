package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"emindy/internal/logging"
	"emindy/internal/store"
)

const (
	maxLabelLength  = 200
	maxEntityLength = 128
)

var eventNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ErrInvalidEvent is returned for events that fail validation.
var ErrInvalidEvent = errors.New("invalid analytics event")

// Sink stores events.
type Sink interface {
	InsertEvent(ctx context.Context, event store.Event) (store.Event, error)
	CountEvents(ctx context.Context, since time.Time) ([]store.EventCount, error)
	RecentEvents(ctx context.Context, limit int) ([]store.Event, error)
}

// Recorder validates events before storing them.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing to sink.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "analytics"),
		now:    time.Now,
	}
}

// Record validates and stores one event.
func (r *Recorder) Record(ctx context.Context, name, label, entityID string) (store.Event, error) {
	event, err := Normalize(name, label, entityID)
	if err != nil {
		return store.Event{}, err
	}
	if r.sink == nil {
		return store.Event{}, errors.New("analytics sink unavailable")
	}
	event.CreatedAt = r.now()
	saved, err := r.sink.InsertEvent(ctx, event)
	if err != nil {
		return store.Event{}, fmt.Errorf("record event: %w", err)
	}
	return saved, nil
}

// Track records an event and logs any failure at debug level.
func (r *Recorder) Track(ctx context.Context, name, label, entityID string) {
	if _, err := r.Record(ctx, name, label, entityID); err != nil {
		r.logger.Debug("analytics event dropped",
			logging.String(logging.FieldEventType, "analytics_dropped"),
			logging.String("event", name),
			logging.Error(err))
	}
}

// Counts returns per-event totals since the given time.
func (r *Recorder) Counts(ctx context.Context, since time.Time) ([]store.EventCount, error) {
	if r.sink == nil {
		return nil, errors.New("analytics sink unavailable")
	}
	return r.sink.CountEvents(ctx, since)
}

// maxRecent caps Recent.
const maxRecent = 500

// Recent returns up to limit of the newest events.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]store.Event, error) {
	if r.sink == nil {
		return nil, errors.New("analytics sink unavailable")
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	return r.sink.RecentEvents(ctx, limit)
}

// Normalize trims and validates event fields.
func Normalize(name, label, entityID string) (store.Event, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !eventNamePattern.MatchString(name) {
		return store.Event{}, fmt.Errorf("%w: event name %q", ErrInvalidEvent, name)
	}
	label = truncate(strings.TrimSpace(label), maxLabelLength)
	entityID = strings.TrimSpace(entityID)
	if len(entityID) > maxEntityLength {
		return store.Event{}, fmt.Errorf("%w: entity id too long", ErrInvalidEvent)
	}
	return store.Event{Name: name, Label: label, EntityID: entityID}, nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
