package player

import (
	"path"

	"emindy/internal/steps"
)

// Snapshot is a point-in-time view of a player for rendering.
type Snapshot struct {
	EntityID  string
	State     State
	Index     int
	StepCount int
	Step      steps.Step
	Remaining int
	Clock     string
	Progress  float64
	Total     string
	Link      string
}

// Playing reports whether the countdown is running.
func (s Snapshot) Playing() bool {
	return s.State == Playing
}

// Snapshot returns the current player state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Progress returns the share of completed steps as a percentage. It reaches
// 100 only once the practice is complete.
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progressLocked()
}

// State returns the transport state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) progressLocked() float64 {
	if p.state == Completed {
		return 100
	}
	return float64(p.index) / float64(len(p.steps)) * 100
}

func (p *Player) snapshotLocked() Snapshot {
	return Snapshot{
		EntityID:  p.entityID,
		State:     p.state,
		Index:     p.index,
		StepCount: len(p.steps),
		Step:      p.steps[p.index],
		Remaining: p.remaining,
		Clock:     steps.FormatClock(p.remaining),
		Progress:  p.progressLocked(),
		Total:     p.total,
		Link:      path.Join(p.cfg.BasePath, p.entityID),
	}
}
