package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one recorded analytics event.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"event"`
	Label     string    `json:"label,omitempty"`
	EntityID  string    `json:"entity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EventCount aggregates events by name.
type EventCount struct {
	Name  string `json:"event"`
	Count int    `json:"count"`
}

// InsertEvent stores event, assigning an ID and timestamp when missing.
func (s *Store) InsertEvent(ctx context.Context, event Event) (Event, error) {
	if strings.TrimSpace(event.Name) == "" {
		return Event{}, errors.New("event name is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC()

	if _, err := s.execWithRetry(ctx,
		"INSERT INTO analytics_events (id, event, label, entity_id, created_at) VALUES (?, ?, ?, ?, ?)",
		event.ID,
		event.Name,
		nullableString(event.Label),
		nullableString(event.EntityID),
		event.CreatedAt.Format(timeLayout),
	); err != nil {
		return Event{}, fmt.Errorf("insert analytics event: %w", err)
	}
	return event, nil
}

// CountEvents returns per-event totals since the given time, most frequent
// first. A zero since counts everything.
func (s *Store) CountEvents(ctx context.Context, since time.Time) ([]EventCount, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT event, COUNT(1) FROM analytics_events
         WHERE created_at >= ?
         GROUP BY event
         ORDER BY COUNT(1) DESC, event ASC`,
		since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("count analytics events: %w", err)
	}
	defer rows.Close()

	var counts []EventCount
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event, label, entity_id, created_at FROM analytics_events
         ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			label      sql.NullString
			entity     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&e.ID, &e.Name, &label, &entity, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.Label = label.String
		e.EntityID = entity.String
		if ts, err := time.Parse(timeLayout, createdRaw); err == nil {
			e.CreatedAt = ts
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics events: %w", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
