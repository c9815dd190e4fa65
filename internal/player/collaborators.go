package player

import (
	"context"

	"emindy/internal/playerstate"
)

// View renders player snapshots and speaks announcements to assistive
// technology.
type View interface {
	Render(Snapshot)
	Announce(message string)
}

// Tracker records analytics events. Implementations must not block for long
// and must swallow their own failures.
type Tracker interface {
	Track(ctx context.Context, event, label, entityID string)
}

// Store persists per-entity progress.
type Store interface {
	Load(entityID string) (playerstate.State, bool)
	Save(entityID string, state playerstate.State) error
	Delete(entityID string) error
}

// Analytics event names emitted by the player.
const (
	EventPracticeStart    = "practice_start"
	EventPracticeComplete = "practice_complete"
)

type nopView struct{}

func (nopView) Render(Snapshot) {}
func (nopView) Announce(string) {}

type nopTracker struct{}

func (nopTracker) Track(context.Context, string, string, string) {}

type nopStore struct{}

func (nopStore) Load(string) (playerstate.State, bool) { return playerstate.State{}, false }
func (nopStore) Save(string, playerstate.State) error  { return nil }
func (nopStore) Delete(string) error                   { return nil }
