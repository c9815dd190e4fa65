package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrRateLimited is returned when the key has used up its window.
var ErrRateLimited = errors.New("too many requests")

// Ledger stores successful sends.
type Ledger interface {
	CountSends(ctx context.Context, key string, since time.Time) (int, error)
	RecordSend(ctx context.Context, key string, at time.Time) error
	PruneSends(ctx context.Context, before time.Time) error
}

// Limiter enforces at most Max successes per key within Window.
type Limiter struct {
	ledger Ledger
	max    int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	keys map[string]*keyState
}

// keyState serializes ledger checks for one key and counts its sends in
// flight. It lives while any caller holds a reference.
type keyState struct {
	mu       sync.Mutex
	inflight int
	refs     int
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a Limiter over ledger.
func New(ledger Ledger, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if ledger == nil {
		return nil, errors.New("rate limit ledger is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate window must be positive, got %s", window)
	}
	l := &Limiter{
		ledger: ledger,
		max:    limit,
		window: window,
		now:    time.Now,
		keys:   make(map[string]*keyState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Max returns the per-window cap.
func (l *Limiter) Max() int { return l.max }

// Window returns the rolling window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Do runs fn unless key is over its cap. A nil error from fn records a send.
// Callers with different keys never wait on each other.
func (l *Limiter) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	key = normalizeKey(key)
	state := l.acquire(key)
	defer l.release(key, state)

	state.mu.Lock()
	used, err := l.ledger.CountSends(ctx, key, l.now().Add(-l.window))
	if err != nil {
		state.mu.Unlock()
		return fmt.Errorf("count sends: %w", err)
	}
	if used+state.inflight >= l.max {
		state.mu.Unlock()
		return ErrRateLimited
	}
	state.inflight++
	state.mu.Unlock()

	runErr := fn(ctx)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.inflight--
	if runErr != nil {
		return runErr
	}
	if err := l.ledger.RecordSend(ctx, key, l.now()); err != nil {
		return fmt.Errorf("record send: %w", err)
	}
	return nil
}

// Remaining reports how many sends key has left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	key = normalizeKey(key)
	state := l.acquire(key)
	defer l.release(key, state)

	state.mu.Lock()
	defer state.mu.Unlock()
	used, err := l.ledger.CountSends(ctx, key, l.now().Add(-l.window))
	if err != nil {
		return 0, fmt.Errorf("count sends: %w", err)
	}
	return max(l.max-used-state.inflight, 0), nil
}

func (l *Limiter) acquire(key string) *keyState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.keys[key]
	if !ok {
		state = &keyState{}
		l.keys[key] = state
	}
	state.refs++
	return state
}

func (l *Limiter) release(key string, state *keyState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state.refs--
	if state.refs == 0 {
		delete(l.keys, key)
	}
}

// Prune drops ledger entries older than the window.
func (l *Limiter) Prune(ctx context.Context) error {
	return l.ledger.PruneSends(ctx, l.now().Add(-l.window))
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
