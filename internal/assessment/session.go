package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"emindy/internal/logging"
)

// ErrNoResult is returned by sharing actions before a form was submitted.
var ErrNoResult = errors.New("no assessment result to share")

// Helpers is the service a Session calls into for off-device actions.
type Helpers interface {
	SignURL(ctx context.Context, kind string, score int) (string, error)
	EmailSummary(ctx context.Context, kind, summary, email string) error
	Track(ctx context.Context, event, label, entityID string)
}

// Analytics events emitted by a Session.
const (
	EventSubmit = "assessment_submit"
	EventShare  = "assessment_share"
	EventEmail  = "assessment_email"
	EventCopy   = "assessment_copy"
)

// Session holds the result of one submitted form.
type Session struct {
	helpers Helpers
	logger  *slog.Logger

	mu     sync.Mutex
	result *Result
}

// NewSession creates a session bound to helpers.
func NewSession(helpers Helpers, logger *slog.Logger) *Session {
	return &Session{
		helpers: helpers,
		logger:  logging.NewComponentLogger(logger, "assessment"),
	}
}

// Submit scores form and keeps the result. An incomplete form leaves any
// earlier result in place.
func (s *Session) Submit(ctx context.Context, form *Form) (Result, error) {
	result, err := form.Submit()
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	s.result = &result
	s.mu.Unlock()

	s.track(ctx, EventSubmit, result)
	s.logger.Debug("assessment scored",
		logging.String(logging.FieldKind, string(result.Kind)),
		logging.String("band", result.Band))
	return result, nil
}

// Result returns the submitted result, if any.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// ShareLink asks the server for a signed result URL.
func (s *Session) ShareLink(ctx context.Context) (string, error) {
	result, ok := s.Result()
	if !ok {
		return "", ErrNoResult
	}
	if s.helpers == nil {
		return "", errors.New("sharing is unavailable")
	}
	url, err := s.helpers.SignURL(ctx, string(result.Kind), result.Score)
	if err != nil {
		return "", fmt.Errorf("sign result: %w", err)
	}
	s.track(ctx, EventShare, result)
	return url, nil
}

// Email sends the summary to address.
func (s *Session) Email(ctx context.Context, address string) error {
	result, ok := s.Result()
	if !ok {
		return ErrNoResult
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.New("email address is required")
	}
	if s.helpers == nil {
		return errors.New("email is unavailable")
	}
	if err := s.helpers.EmailSummary(ctx, string(result.Kind), result.Summary(), address); err != nil {
		return fmt.Errorf("email summary: %w", err)
	}
	s.track(ctx, EventEmail, result)
	return nil
}

// CopyText returns the summary for the clipboard.
func (s *Session) CopyText(ctx context.Context) (string, error) {
	result, ok := s.Result()
	if !ok {
		return "", ErrNoResult
	}
	s.track(ctx, EventCopy, result)
	return result.Summary(), nil
}

func (s *Session) track(ctx context.Context, event string, result Result) {
	if s.helpers == nil {
		return
	}
	s.helpers.Track(ctx, event, result.Band, string(result.Kind))
}
