package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps sends in process memory.
type MemoryLedger struct {
	mu    sync.Mutex
	sends map[string][]time.Time
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sends: make(map[string][]time.Time)}
}

// CountSends counts sends for key strictly after since.
func (m *MemoryLedger) CountSends(_ context.Context, key string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, at := range m.sends[key] {
		if at.After(since) {
			count++
		}
	}
	return count, nil
}

// RecordSend stores a send for key.
func (m *MemoryLedger) RecordSend(_ context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends[key] = append(m.sends[key], at)
	return nil
}

// PruneSends removes sends at or before before.
func (m *MemoryLedger) PruneSends(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, times := range m.sends {
		kept := times[:0]
		for _, at := range times {
			if at.After(before) {
				kept = append(kept, at)
			}
		}
		if len(kept) == 0 {
			delete(m.sends, key)
			continue
		}
		m.sends[key] = kept
	}
	return nil
}
