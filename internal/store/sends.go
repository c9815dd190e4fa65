package store

import (
	"context"
	"fmt"
	"time"
)

// CountSends counts email sends for key after since.
func (s *Store) CountSends(ctx context.Context, key string, since time.Time) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM email_sends WHERE address_key = ? AND sent_at > ?",
			key, unixNanos(since),
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count email sends: %w", err)
	}
	return count, nil
}

// RecordSend stores one email send for key.
func (s *Store) RecordSend(ctx context.Context, key string, at time.Time) error {
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO email_sends (address_key, sent_at) VALUES (?, ?)",
		key, unixNanos(at),
	); err != nil {
		return fmt.Errorf("record email send: %w", err)
	}
	return nil
}

// PruneSends deletes sends at or before before.
func (s *Store) PruneSends(ctx context.Context, before time.Time) error {
	if _, err := s.execWithRetry(ctx,
		"DELETE FROM email_sends WHERE sent_at <= ?",
		unixNanos(before),
	); err != nil {
		return fmt.Errorf("prune email sends: %w", err)
	}
	return nil
}

// unixNanos clamps times before the epoch, including the zero time, to 0.
func unixNanos(t time.Time) int64 {
	if t.Before(time.Unix(0, 0)) {
		return 0
	}
	return t.UnixNano()
}
