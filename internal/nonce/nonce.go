package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Length is the number of hex characters in a nonce.
const Length = 20

// ErrInvalidNonce is returned for expired, forged, or misbound nonces.
var ErrInvalidNonce = errors.New("invalid or expired nonce")

// Manager creates and verifies nonces.
type Manager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Manager. The lifetime must be at least two seconds.
func New(secret string, lifetime time.Duration, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("nonce secret is required")
	}
	if lifetime < 2*time.Second {
		return nil, errors.New("nonce lifetime must be at least two seconds")
	}
	m := &Manager{
		secret:   []byte("nonce|" + secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create returns a nonce for action and session.
func (m *Manager) Create(action, session string) string {
	return m.compute(m.tick(), action, session)
}

// Verify checks a nonce for action and session.
func (m *Manager) Verify(value, action, session string) error {
	if len(value) != Length || strings.TrimSpace(action) == "" {
		return ErrInvalidNonce
	}
	tick := m.tick()
	for _, candidate := range []int64{tick, tick - 1} {
		expected := m.compute(candidate, action, session)
		if hmac.Equal([]byte(expected), []byte(value)) {
			return nil
		}
	}
	return ErrInvalidNonce
}

func (m *Manager) tick() int64 {
	half := m.lifetime / 2
	return m.now().UnixNano() / int64(half)
}

func (m *Manager) compute(tick int64, action, session string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10) + "|" + action + "|" + session))
	return hex.EncodeToString(mac.Sum(nil))[:Length]
}
