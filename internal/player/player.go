package player

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/playerstate"
	"emindy/internal/steps"
)

// ErrNoSteps is returned when a practice has no playable steps. Callers should
// not render a player for it.
var ErrNoSteps = errors.New("practice has no valid steps")

// State is the transport state of a Player.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Config carries the presentation settings a player is built with.
type Config struct {
	Labels   config.Labels
	Locale   string
	BasePath string
}

// ConfigFrom extracts player settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{Labels: config.DefaultLabels()}
	}
	return Config{
		Labels:   cfg.Player.Labels,
		Locale:   cfg.Player.Locale,
		BasePath: cfg.Player.BasePath,
	}
}

// Options configure a Player. Only EntityID and Steps are required.
type Options struct {
	EntityID  string
	Steps     []steps.Step
	Config    Config
	Clock     Clock
	Scheduler Scheduler
	Store     Store
	View      View
	Tracker   Tracker
	Logger    *slog.Logger
	Context   context.Context
}

// Player drives one practice. It is safe for concurrent use.
type Player struct {
	entityID string
	steps    []steps.Step
	cfg      Config
	printer  *message.Printer
	total    string

	clock     Clock
	scheduler Scheduler
	store     Store
	view      View
	tracker   Tracker
	logger    *slog.Logger
	ctx       context.Context

	mu        sync.Mutex
	state     State
	index     int
	remaining int
	anchor    time.Time
	timer     Timer
	gen       uint64
	started   bool
}

// New builds a player and silently restores any saved progress for the
// entity. It returns ErrNoSteps when the step list is empty.
func New(opts Options) (*Player, error) {
	if len(opts.Steps) == 0 {
		return nil, ErrNoSteps
	}
	entityID := strings.TrimSpace(opts.EntityID)
	if entityID == "" {
		return nil, errors.New("entity ID cannot be empty")
	}

	cfg := opts.Config
	cfg.Labels = withDefaultLabels(cfg.Labels)
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		tag = language.AmericanEnglish
	}

	p := &Player{
		entityID:  entityID,
		steps:     append([]steps.Step(nil), opts.Steps...),
		cfg:       cfg,
		printer:   message.NewPrinter(tag),
		total:     steps.FormatClock(steps.Total(opts.Steps)),
		clock:     opts.Clock,
		scheduler: opts.Scheduler,
		store:     opts.Store,
		view:      opts.View,
		tracker:   opts.Tracker,
		ctx:       opts.Context,
	}
	if p.clock == nil {
		p.clock = WallClock()
	}
	if p.scheduler == nil {
		p.scheduler = NewFrameScheduler(DefaultFrameInterval)
	}
	if p.store == nil {
		p.store = nopStore{}
	}
	if p.view == nil {
		p.view = nopView{}
	}
	if p.tracker == nil {
		p.tracker = nopTracker{}
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	p.logger = logging.NewComponentLogger(opts.Logger, "player").With(logging.String(logging.FieldEntityID, entityID))

	p.state = Idle
	p.remaining = p.steps[0].Duration
	if saved, ok := p.store.Load(entityID); ok {
		p.index = clamp(saved.CurrentIndex, 0, len(p.steps)-1)
		p.remaining = clamp(saved.Remaining, 0, p.steps[p.index].Duration)
		p.state = Paused
		p.logger.Debug("restored practice progress",
			logging.Int("index", p.index),
			logging.Int("remaining", p.remaining))
	}

	snap := p.snapshotLocked()
	p.view.Render(snap)
	return p, nil
}

func withDefaultLabels(labels config.Labels) config.Labels {
	defaults := config.DefaultLabels()
	fill := func(value *string, fallback string) {
		if strings.TrimSpace(*value) == "" {
			*value = fallback
		}
	}
	fill(&labels.Play, defaults.Play)
	fill(&labels.Pause, defaults.Pause)
	fill(&labels.Next, defaults.Next)
	fill(&labels.Prev, defaults.Prev)
	fill(&labels.Reset, defaults.Reset)
	fill(&labels.Step, defaults.Step)
	fill(&labels.Completed, defaults.Completed)
	fill(&labels.ResetDone, defaults.ResetDone)
	fill(&labels.Total, defaults.Total)
	return labels
}

// EntityID returns the practice identifier the player persists under.
func (p *Player) EntityID() string {
	return p.entityID
}

// Steps returns a copy of the practice steps.
func (p *Player) Steps() []steps.Step {
	return append([]steps.Step(nil), p.steps...)
}

// Labels returns the effective labels.
func (p *Player) Labels() config.Labels {
	return p.cfg.Labels
}

// Select pauses playback and moves to step i, clamped into range. The new
// step starts with its full duration and the change is announced.
func (p *Player) Select(i int) {
	var fx effects
	p.mu.Lock()
	p.selectLocked(i, true, &fx)
	p.mu.Unlock()
	fx.run()
}

// Play starts or resumes the countdown. It does nothing while already
// playing or once the practice has completed.
func (p *Player) Play() {
	var fx effects
	p.mu.Lock()
	if p.state == Playing || p.state == Completed {
		p.mu.Unlock()
		return
	}
	p.state = Playing
	p.anchor = p.clock.Now()
	p.scheduleLocked()
	if !p.started {
		p.started = true
		p.trackLocked(EventPracticeStart, &fx)
	}
	p.renderLocked(&fx)
	p.mu.Unlock()
	fx.run()
}

// Pause stops the countdown and saves progress. It does nothing unless
// playing.
func (p *Player) Pause() {
	var fx effects
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.pauseLocked()
	p.persistLocked()
	p.renderLocked(&fx)
	p.mu.Unlock()
	fx.run()
}

// Toggle pauses when playing and plays otherwise.
func (p *Player) Toggle() {
	p.mu.Lock()
	playing := p.state == Playing
	p.mu.Unlock()
	if playing {
		p.Pause()
		return
	}
	p.Play()
}

// Next moves to the following step, or completes the practice from the last
// step.
func (p *Player) Next() {
	var fx effects
	p.mu.Lock()
	if p.state != Completed {
		p.nextLocked(false, &fx)
	}
	p.mu.Unlock()
	fx.run()
}

// Prev moves to the previous step. On the first step it only re-pauses.
func (p *Player) Prev() {
	var fx effects
	p.mu.Lock()
	p.selectLocked(p.index-1, true, &fx)
	p.mu.Unlock()
	fx.run()
}

// Reset returns to the first step, forgets saved progress, and announces the
// reset.
func (p *Player) Reset() {
	var fx effects
	p.mu.Lock()
	p.pauseLocked()
	p.index = 0
	p.remaining = p.steps[0].Duration
	p.state = Paused
	if err := p.store.Delete(p.entityID); err != nil {
		logging.WarnWithContext(p.logger, "failed to clear practice progress", "player_state_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state file"),
			logging.String(logging.FieldImpact, "old progress may be restored on next load"))
	}
	p.renderLocked(&fx)
	p.announceLocked(p.cfg.Labels.ResetDone, &fx)
	p.mu.Unlock()
	fx.run()
}

// Frame runs one countdown frame immediately. Scheduled frames call the same
// logic; drivers with their own loop may call Frame directly.
func (p *Player) Frame() {
	var fx effects
	p.mu.Lock()
	if p.state == Playing {
		p.stopTimerLocked()
		p.tickLocked(&fx)
	}
	p.mu.Unlock()
	fx.run()
}

func (p *Player) onFrame(gen uint64) {
	var fx effects
	p.mu.Lock()
	if p.state == Playing && gen == p.gen {
		p.timer = nil
		p.tickLocked(&fx)
	}
	p.mu.Unlock()
	fx.run()
}

// tickLocked consumes whole seconds elapsed since the anchor. The anchor
// moves by exactly one second per decrement.
func (p *Player) tickLocked(fx *effects) {
	now := p.clock.Now()
	changed := false
	for p.state == Playing {
		if p.remaining <= 0 {
			p.remaining = 0
			p.nextLocked(true, fx)
			changed = false
			continue
		}
		if now.Sub(p.anchor) < time.Second {
			break
		}
		p.anchor = p.anchor.Add(time.Second)
		p.remaining--
		changed = true
	}
	if p.state != Playing {
		return
	}
	if changed {
		p.renderLocked(fx)
	}
	p.scheduleLocked()
}

// nextLocked advances one step. Timer-driven advances stay silent and keep
// playing; manual ones pause and announce like Select.
func (p *Player) nextLocked(auto bool, fx *effects) {
	if p.index+1 < len(p.steps) {
		if !auto {
			p.selectLocked(p.index+1, true, fx)
			return
		}
		p.index++
		p.remaining = p.steps[p.index].Duration
		p.persistLocked()
		p.renderLocked(fx)
		return
	}
	p.completeLocked(fx)
}

func (p *Player) completeLocked(fx *effects) {
	p.pauseLocked()
	p.state = Completed
	p.index = len(p.steps) - 1
	p.remaining = 0
	p.persistLocked()
	p.renderLocked(fx)
	p.announceLocked(p.cfg.Labels.Completed, fx)
	p.trackLocked(EventPracticeComplete, fx)
	p.logger.Info("practice completed", logging.Int("steps", len(p.steps)))
}

func (p *Player) selectLocked(i int, announce bool, fx *effects) {
	p.pauseLocked()
	p.index = clamp(i, 0, len(p.steps)-1)
	p.remaining = p.steps[p.index].Duration
	p.state = Paused
	p.persistLocked()
	p.renderLocked(fx)
	if announce {
		p.announceLocked(p.stepMessageLocked(), fx)
	}
}

// pauseLocked leaves Playing and cancels the pending frame.
func (p *Player) pauseLocked() {
	p.stopTimerLocked()
	if p.state == Playing {
		p.state = Paused
	}
}

func (p *Player) scheduleLocked() {
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.timer = p.scheduler.AfterFrame(func() { p.onFrame(gen) })
}

func (p *Player) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

func (p *Player) persistLocked() {
	state := playerstate.State{CurrentIndex: p.index, Remaining: p.remaining}
	if err := p.store.Save(p.entityID, state); err != nil {
		logging.WarnWithContext(p.logger, "failed to save practice progress", "player_state_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state file"),
			logging.String(logging.FieldImpact, "progress will not survive a restart"))
	}
}

func (p *Player) renderLocked(fx *effects) {
	snap := p.snapshotLocked()
	view := p.view
	fx.add(func() { view.Render(snap) })
}

func (p *Player) announceLocked(msg string, fx *effects) {
	if msg == "" {
		return
	}
	view := p.view
	fx.add(func() { view.Announce(msg) })
}

func (p *Player) trackLocked(event string, fx *effects) {
	tracker, ctx, entity := p.tracker, p.ctx, p.entityID
	label := p.steps[p.index].Label
	fx.add(func() { tracker.Track(ctx, event, label, entity) })
}

func (p *Player) stepMessageLocked() string {
	step := p.steps[p.index]
	return p.printer.Sprintf(p.cfg.Labels.Step, p.index+1, len(p.steps), step.Label)
}

// effects collects observer callbacks so they run after the lock is released.
type effects struct {
	calls []func()
}

func (e *effects) add(fn func()) {
	e.calls = append(e.calls, fn)
}

func (e *effects) run() {
	for _, fn := range e.calls {
		fn()
	}
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
