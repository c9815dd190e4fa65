package player_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"emindy/internal/config"
	"emindy/internal/player"
	"emindy/internal/playerstate"
	"emindy/internal/steps"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeFrame struct {
	fn      func()
	stopped bool
}

func (f *fakeFrame) Stop() bool {
	wasPending := !f.stopped
	f.stopped = true
	return wasPending
}

type fakeScheduler struct {
	mu     sync.Mutex
	frames []*fakeFrame
}

func (s *fakeScheduler) AfterFrame(fn func()) player.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := &fakeFrame{fn: fn}
	s.frames = append(s.frames, frame)
	return frame
}

// pending counts frames that were scheduled and not cancelled or run.
func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, f := range s.frames {
		if !f.stopped {
			count++
		}
	}
	return count
}

// fire runs every pending frame once.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	var due []*fakeFrame
	for _, f := range s.frames {
		if !f.stopped {
			f.stopped = true
			due = append(due, f)
		}
	}
	s.mu.Unlock()
	for _, f := range due {
		f.fn()
	}
}

type recordingView struct {
	mu            sync.Mutex
	snapshots     []player.Snapshot
	announcements []string
}

func (v *recordingView) Render(s player.Snapshot) {
	v.mu.Lock()
	v.snapshots = append(v.snapshots, s)
	v.mu.Unlock()
}

func (v *recordingView) Announce(msg string) {
	v.mu.Lock()
	v.announcements = append(v.announcements, msg)
	v.mu.Unlock()
}

func (v *recordingView) Announcements() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.announcements...)
}

func (v *recordingView) Snapshots() []player.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]player.Snapshot(nil), v.snapshots...)
}

type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (t *recordingTracker) Track(_ context.Context, event, _, _ string) {
	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()
}

type failingStore struct{}

func (failingStore) Load(string) (playerstate.State, bool) { return playerstate.State{}, false }
func (failingStore) Save(string, playerstate.State) error  { return errors.New("disk full") }
func (failingStore) Delete(string) error                   { return errors.New("disk full") }

type harness struct {
	player    *player.Player
	clock     *fakeClock
	scheduler *fakeScheduler
	view      *recordingView
	tracker   *recordingTracker
}

func newHarness(t *testing.T, list []steps.Step, store player.Store) *harness {
	t.Helper()
	h := &harness{
		clock:     newFakeClock(),
		scheduler: &fakeScheduler{},
		view:      &recordingView{},
		tracker:   &recordingTracker{},
	}
	p, err := player.New(player.Options{
		EntityID:  "box-breathing",
		Steps:     list,
		Config:    player.Config{Labels: config.DefaultLabels(), Locale: "en-US"},
		Clock:     h.clock,
		Scheduler: h.scheduler,
		Store:     store,
		View:      h.view,
		Tracker:   h.tracker,
	})
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	h.player = p
	return h
}

// step advances the fake clock and fires the pending frame.
func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.scheduler.fire()
}

func threeSteps() []steps.Step {
	return []steps.Step{
		{Label: "Breathe in", Duration: 3},
		{Label: "Hold", Duration: 2},
		{Label: "Breathe out", Duration: 2},
	}
}

func TestNewRejectsEmptySteps(t *testing.T) {
	_, err := player.New(player.Options{EntityID: "x"})
	if !errors.Is(err, player.ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
}

func TestInitialSnapshot(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	snap := h.player.Snapshot()
	if snap.State != player.Idle {
		t.Fatalf("expected idle, got %s", snap.State)
	}
	if snap.Index != 0 || snap.Remaining != 3 || snap.Clock != "00:03" {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
	if snap.Total != "00:07" {
		t.Fatalf("expected total 00:07, got %q", snap.Total)
	}
	if snap.Link != "/box-breathing" {
		t.Fatalf("unexpected link %q", snap.Link)
	}
	if len(h.view.Announcements()) != 0 {
		t.Fatalf("expected no announcement on load, got %v", h.view.Announcements())
	}
}

func TestTickIsDriftCorrected(t *testing.T) {
	h := newHarness(t, []steps.Step{{Label: "Long", Duration: 60}}, nil)
	h.player.Play()

	for i := 0; i < 4; i++ {
		h.step(260 * time.Millisecond)
	}
	if got := h.player.Snapshot().Remaining; got != 59 {
		t.Fatalf("expected one decrement after 1040ms, got remaining %d", got)
	}

	// 1040ms elapsed; the anchor sits at 1000ms, so 960ms more crosses 2s.
	h.step(959 * time.Millisecond)
	if got := h.player.Snapshot().Remaining; got != 59 {
		t.Fatalf("expected no decrement before 2s, got remaining %d", got)
	}
	h.step(time.Millisecond)
	if got := h.player.Snapshot().Remaining; got != 58 {
		t.Fatalf("expected second decrement at 2s, got remaining %d", got)
	}

	// A stalled scheduler catches up on every whole second.
	h.step(3500 * time.Millisecond)
	if got := h.player.Snapshot().Remaining; got != 55 {
		t.Fatalf("expected catch-up to 55, got %d", got)
	}
	if h.scheduler.pending() != 1 {
		t.Fatalf("expected exactly one pending frame, got %d", h.scheduler.pending())
	}
}

func TestAutoAdvanceVisitsStepsInOrderAndCompletesOnce(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Play()

	for i := 0; i < 40; i++ {
		h.step(250 * time.Millisecond)
	}

	if h.player.State() != player.Completed {
		t.Fatalf("expected completed, got %s", h.player.State())
	}

	var visited []int
	for _, snap := range h.view.Snapshots() {
		if len(visited) == 0 || visited[len(visited)-1] != snap.Index {
			visited = append(visited, snap.Index)
		}
		if snap.Progress == 100 && snap.State != player.Completed {
			t.Fatalf("progress reached 100 outside completed: %+v", snap)
		}
		if snap.State == player.Completed && snap.Progress != 100 {
			t.Fatalf("expected progress 100 when completed: %+v", snap)
		}
	}
	want := []int{0, 1, 2}
	if len(visited) != len(want) {
		t.Fatalf("unexpected visit order %v", visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("unexpected visit order %v", visited)
		}
	}

	announcements := h.view.Announcements()
	if len(announcements) != 1 || announcements[0] != config.DefaultLabels().Completed {
		t.Fatalf("expected a single completion announcement, got %v", announcements)
	}
	if h.scheduler.pending() != 0 {
		t.Fatalf("expected no pending frames after completion, got %d", h.scheduler.pending())
	}
	if got := h.tracker.events; len(got) != 2 || got[0] != player.EventPracticeStart || got[1] != player.EventPracticeComplete {
		t.Fatalf("unexpected tracked events %v", got)
	}
}

func TestManualNavigationAnnouncesSteps(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Play()
	h.player.Next()

	snap := h.player.Snapshot()
	if snap.State != player.Paused || snap.Index != 1 || snap.Remaining != 2 {
		t.Fatalf("expected paused on step 2, got %+v", snap)
	}
	if h.scheduler.pending() != 0 {
		t.Fatalf("expected navigation to cancel the frame, got %d pending", h.scheduler.pending())
	}

	h.player.Prev()
	h.player.Prev()
	if got := h.player.Snapshot().Index; got != 0 {
		t.Fatalf("expected prev to clamp at 0, got %d", got)
	}

	want := []string{
		"Step 2 of 3: Hold",
		"Step 1 of 3: Breathe in",
		"Step 1 of 3: Breathe in",
	}
	got := h.view.Announcements()
	if len(got) != len(want) {
		t.Fatalf("unexpected announcements %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("announcement %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestSelectClampsIndex(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Select(99)
	if got := h.player.Snapshot().Index; got != 2 {
		t.Fatalf("expected clamp to last step, got %d", got)
	}
	h.player.Select(-5)
	if got := h.player.Snapshot().Index; got != 0 {
		t.Fatalf("expected clamp to first step, got %d", got)
	}
}

func TestManualNextOnLastStepCompletes(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Select(2)
	h.player.Next()
	if h.player.State() != player.Completed {
		t.Fatalf("expected completed, got %s", h.player.State())
	}
	if h.player.Progress() != 100 {
		t.Fatalf("expected 100%% progress, got %v", h.player.Progress())
	}

	h.player.Next()
	h.player.Play()
	completions := 0
	for _, msg := range h.view.Announcements() {
		if msg == config.DefaultLabels().Completed {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("expected one completion announcement, got %d", completions)
	}
	if h.player.State() != player.Completed {
		t.Fatalf("expected play to be ignored once completed, got %s", h.player.State())
	}
}

func TestPauseCancelsFrameAndIgnoresStaleCallbacks(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Play()
	h.player.Play()
	if h.scheduler.pending() != 1 {
		t.Fatalf("expected a single pending frame, got %d", h.scheduler.pending())
	}

	h.scheduler.mu.Lock()
	stale := h.scheduler.frames[0]
	h.scheduler.mu.Unlock()

	h.player.Pause()
	if h.scheduler.pending() != 0 {
		t.Fatalf("expected pause to cancel frame, got %d", h.scheduler.pending())
	}

	h.clock.Advance(5 * time.Second)
	stale.fn()
	if got := h.player.Snapshot().Remaining; got != 3 {
		t.Fatalf("expected stale frame to be ignored, got remaining %d", got)
	}

	for i := 0; i < 5; i++ {
		h.player.Play()
		h.player.Pause()
	}
	if h.scheduler.pending() != 0 {
		t.Fatalf("expected no orphaned frames, got %d", h.scheduler.pending())
	}
}

func TestProgressReflectsCompletedSteps(t *testing.T) {
	h := newHarness(t, []steps.Step{{Label: "a", Duration: 1}, {Label: "b", Duration: 1}, {Label: "c", Duration: 1}, {Label: "d", Duration: 1}}, nil)
	h.player.Select(2)
	if got := h.player.Progress(); got != 50 {
		t.Fatalf("expected 50%% progress on third of four steps, got %v", got)
	}
}

func TestPersistedStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player_state.json")
	store := playerstate.NewStore(path, nil)

	first := newHarness(t, threeSteps(), store)
	first.player.Select(1)
	first.player.Play()
	first.step(time.Second)
	first.player.Pause()

	saved, ok := store.Load("box-breathing")
	if !ok {
		t.Fatal("expected saved progress")
	}
	if saved.CurrentIndex != 1 || saved.Remaining != 1 || saved.IsPlaying {
		t.Fatalf("unexpected saved state %+v", saved)
	}

	second := newHarness(t, threeSteps(), playerstate.NewStore(path, nil))
	snap := second.player.Snapshot()
	if snap.Index != 1 || snap.Remaining != 1 || snap.State != player.Paused {
		t.Fatalf("expected silent restore to paused step 2, got %+v", snap)
	}
	if len(second.view.Announcements()) != 0 {
		t.Fatalf("expected silent restore, got %v", second.view.Announcements())
	}
	if second.scheduler.pending() != 0 {
		t.Fatal("expected restore not to auto-play")
	}
}

func TestRestoreClampsSavedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player_state.json")
	store := playerstate.NewStore(path, nil)
	if err := store.Save("box-breathing", playerstate.State{CurrentIndex: 10, Remaining: 500}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h := newHarness(t, threeSteps(), store)
	snap := h.player.Snapshot()
	if snap.Index != 2 || snap.Remaining != 2 {
		t.Fatalf("expected clamped restore, got %+v", snap)
	}
}

func TestResetClearsSavedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player_state.json")
	store := playerstate.NewStore(path, nil)
	h := newHarness(t, threeSteps(), store)
	h.player.Select(2)
	h.player.Play()

	h.player.Reset()

	if _, ok := store.Load("box-breathing"); ok {
		t.Fatal("expected reset to delete saved progress")
	}
	snap := h.player.Snapshot()
	if snap.Index != 0 || snap.Remaining != 3 || snap.State == player.Playing {
		t.Fatalf("unexpected snapshot after reset: %+v", snap)
	}
	announcements := h.view.Announcements()
	if announcements[len(announcements)-1] != config.DefaultLabels().ResetDone {
		t.Fatalf("expected reset announcement, got %v", announcements)
	}
}

func TestPersistenceFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, threeSteps(), failingStore{})
	h.player.Select(1)
	h.player.Play()
	h.player.Pause()
	h.player.Reset()
	if got := h.player.Snapshot().Index; got != 0 {
		t.Fatalf("expected player to keep working, got index %d", got)
	}
}

type reentrantView struct {
	p     *player.Player
	calls int
}

func (v *reentrantView) Render(player.Snapshot) {
	if v.p != nil {
		_ = v.p.Snapshot()
		v.calls++
	}
}

func (v *reentrantView) Announce(string) {
	if v.p != nil {
		_ = v.p.State()
	}
}

func TestObserversMayCallBack(t *testing.T) {
	view := &reentrantView{}
	p, err := player.New(player.Options{
		EntityID:  "x",
		Steps:     threeSteps(),
		Clock:     newFakeClock(),
		Scheduler: &fakeScheduler{},
		View:      view,
	})
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	view.p = p

	done := make(chan struct{})
	go func() {
		p.Select(1)
		p.Reset()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("observer callback deadlocked the player")
	}
	if view.calls == 0 {
		t.Fatal("expected render callbacks")
	}
}

func TestZeroDurationStepsAdvanceImmediately(t *testing.T) {
	h := newHarness(t, []steps.Step{{Label: "Intro"}, {Label: "Breathe", Duration: 1}}, nil)
	h.player.Play()
	h.step(10 * time.Millisecond)
	snap := h.player.Snapshot()
	if snap.Index != 1 || snap.State != player.Playing {
		t.Fatalf("expected to skip zero-length step while playing, got %+v", snap)
	}
}

func TestToggle(t *testing.T) {
	h := newHarness(t, threeSteps(), nil)
	h.player.Toggle()
	if h.player.State() != player.Playing {
		t.Fatalf("expected playing, got %s", h.player.State())
	}
	h.player.Toggle()
	if h.player.State() != player.Paused {
		t.Fatalf("expected paused, got %s", h.player.State())
	}
}

func TestLocalizedStepLabel(t *testing.T) {
	view := &recordingView{}
	labels := config.DefaultLabels()
	labels.Step = "Schritt %d von %d: %s"
	p, err := player.New(player.Options{
		EntityID:  "x",
		Steps:     threeSteps(),
		Config:    player.Config{Labels: labels, Locale: "de-DE"},
		Clock:     newFakeClock(),
		Scheduler: &fakeScheduler{},
		View:      view,
	})
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	p.Select(1)
	got := view.Announcements()
	if len(got) != 1 || got[0] != "Schritt 2 von 3: Hold" {
		t.Fatalf("unexpected announcement %v", got)
	}
}
