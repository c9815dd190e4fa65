package analytics_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"emindy/internal/analytics"
	"emindy/internal/store"
	"emindy/internal/testsupport"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		label   string
		entity  string
		wantErr bool
	}{
		{name: "valid", event: "practice_start", entity: "box-breathing"},
		{name: "uppercased", event: " Practice_Complete ", entity: "x"},
		{name: "empty", event: "", wantErr: true},
		{name: "spaces", event: "practice start", wantErr: true},
		{name: "leading digit", event: "1start", wantErr: true},
		{name: "long entity", event: "ok", entity: strings.Repeat("e", 200), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analytics.Normalize(tt.event, tt.label, tt.entity)
			if tt.wantErr {
				if !errors.Is(err, analytics.ErrInvalidEvent) {
					t.Fatalf("expected ErrInvalidEvent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	event, err := analytics.Normalize("copy", strings.Repeat("ü", 300), "")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len([]rune(event.Label)) != 200 {
		t.Fatalf("expected label truncated to 200 runes, got %d", len([]rune(event.Label)))
	}
}

func TestRecorderStoresEvents(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	recorder := analytics.NewRecorder(st, nil)
	ctx := context.Background()

	if _, err := recorder.Record(ctx, "practice_start", "Breathe in", "box-breathing"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recorder.Track(ctx, "practice_complete", "", "box-breathing")
	recorder.Track(ctx, "not valid", "", "")

	counts, err := recorder.Counts(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total != 2 {
		t.Fatalf("expected two stored events, got %+v", counts)
	}

	recent, err := recorder.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Name != "practice_complete" {
		t.Fatalf("unexpected recent events: %+v", recent)
	}
}

type failingSink struct{}

func (failingSink) InsertEvent(context.Context, store.Event) (store.Event, error) {
	return store.Event{}, errors.New("disk full")
}

func (failingSink) CountEvents(context.Context, time.Time) ([]store.EventCount, error) {
	return nil, errors.New("disk full")
}

func (failingSink) RecentEvents(context.Context, int) ([]store.Event, error) {
	return nil, errors.New("disk full")
}

func TestTrackSwallowsFailures(t *testing.T) {
	recorder := analytics.NewRecorder(failingSink{}, nil)
	recorder.Track(context.Background(), "practice_start", "", "x")
	if _, err := recorder.Record(context.Background(), "practice_start", "", "x"); err == nil {
		t.Fatal("expected Record to report sink failure")
	}
}
