package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"emindy/internal/assessment"
	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/ratelimit"
)

// MaxSummaryLength caps the summary text in runes.
const MaxSummaryLength = 2000

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid email request")

// ErrDelivery wraps sender failures.
var ErrDelivery = errors.New("email delivery failed")

// SummaryRequest asks for a summary to be emailed.
type SummaryRequest struct {
	Kind    string
	Summary string
	Email   string
	// Requester keys the rate limit, normally the client address.
	Requester string
}

// Service validates, rate limits, and sends summary emails.
type Service struct {
	sender  Sender
	limiter *ratelimit.Limiter
	from    string
	subject string
	logger  *slog.Logger
}

// NewService wires a Service.
func NewService(cfg *config.Config, sender Sender, limiter *ratelimit.Limiter, logger *slog.Logger) (*Service, error) {
	if sender == nil {
		return nil, errors.New("mail sender is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	subject := "Your eMINDy assessment summary"
	from := ""
	if cfg != nil {
		if s := strings.TrimSpace(cfg.Email.Subject); s != "" {
			subject = s
		}
		from = strings.TrimSpace(cfg.Email.From)
	}
	return &Service{
		sender:  sender,
		limiter: limiter,
		from:    from,
		subject: subject,
		logger:  logging.NewComponentLogger(logger, "mailer"),
	}, nil
}

// SendSummary validates req and delivers it. It returns an error wrapping
// ErrInvalidRequest for bad input, ratelimit.ErrRateLimited when the
// requester is over the limit, and an error wrapping ErrDelivery when the
// sender fails.
func (s *Service) SendSummary(ctx context.Context, req SummaryRequest) error {
	msg, err := s.compose(req)
	if err != nil {
		return err
	}

	err = s.limiter.Do(ctx, req.Requester, func(ctx context.Context) error {
		if sendErr := s.sender.Send(ctx, msg); sendErr != nil {
			return fmt.Errorf("%w: %w", ErrDelivery, sendErr)
		}
		return nil
	})
	switch {
	case err == nil:
		s.logger.Info("assessment summary emailed",
			logging.String(logging.FieldKind, strings.ToLower(strings.TrimSpace(req.Kind))))
		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		logging.WarnWithContext(s.logger, "summary email rate limited", "email_rate_limited",
			logging.String(logging.FieldRemoteAddr, req.Requester),
			logging.String(logging.FieldErrorHint, "requester must wait for the window to roll over"),
			logging.String(logging.FieldImpact, "email not sent"))
		return err
	default:
		logging.ErrorWithContext(s.logger, "summary email failed", "email_delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check SMTP settings in config.toml"))
		return err
	}
}

func (s *Service) compose(req SummaryRequest) (Message, error) {
	def, ok := assessment.Lookup(req.Kind)
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
	}
	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		return Message{}, fmt.Errorf("%w: summary is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(summary) > MaxSummaryLength {
		return Message{}, fmt.Errorf("%w: summary too long", ErrInvalidRequest)
	}
	address, err := ValidateAddress(req.Email)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    s.from,
		To:      address,
		Subject: fmt.Sprintf("%s (%s)", s.subject, def.Title),
		Body:    summary,
	}, nil
}

// ValidateAddress accepts a single bare address such as me@example.com.
func ValidateAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if strings.ContainsAny(raw, "\r\n") {
		return "", fmt.Errorf("%w: email contains a line break", ErrInvalidRequest)
	}
	parsed, err := mail.ParseAddress(raw)
	if err != nil || parsed.Address != raw || parsed.Name != "" {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	}
	at := strings.LastIndex(raw, "@")
	if at <= 0 || !strings.Contains(raw[at+1:], ".") {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	}
	return raw, nil
}
