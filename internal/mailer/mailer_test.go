package mailer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"emindy/internal/config"
	"emindy/internal/mailer"
	"emindy/internal/ratelimit"
	"emindy/internal/testsupport"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func newService(t *testing.T, sender mailer.Sender, now func() time.Time) *mailer.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Email.From = "care@example.com"
	limiter, err := ratelimit.New(ratelimit.NewMemoryLedger(), cfg.Email.RateLimit, cfg.EmailRateWindow(), ratelimit.WithClock(now))
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	svc, err := mailer.NewService(cfg, sender, limiter, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validRequest() mailer.SummaryRequest {
	return mailer.SummaryRequest{
		Kind:      "phq9",
		Summary:   "PHQ-9 score: 12 / 27 — Moderate. Take care.",
		Email:     "me@example.com",
		Requester: "203.0.113.7",
	}
}

func TestSendSummaryDelivers(t *testing.T) {
	sender := &recordingSender{}
	svc := newService(t, sender, time.Now)

	if err := svc.SendSummary(context.Background(), validRequest()); err != nil {
		t.Fatalf("SendSummary: %v", err)
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.To != "me@example.com" || msg.From != "care@example.com" {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	if !strings.Contains(msg.Subject, "PHQ-9") {
		t.Fatalf("expected subject to name the assessment, got %q", msg.Subject)
	}
}

func TestSendSummaryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*mailer.SummaryRequest)
	}{
		{"unknown kind", func(r *mailer.SummaryRequest) { r.Kind = "bdi" }},
		{"empty summary", func(r *mailer.SummaryRequest) { r.Summary = "  " }},
		{"long summary", func(r *mailer.SummaryRequest) { r.Summary = strings.Repeat("x", mailer.MaxSummaryLength+1) }},
		{"missing email", func(r *mailer.SummaryRequest) { r.Email = "" }},
		{"bad email", func(r *mailer.SummaryRequest) { r.Email = "not-an-address" }},
		{"display name", func(r *mailer.SummaryRequest) { r.Email = "Me <me@example.com>" }},
		{"header injection", func(r *mailer.SummaryRequest) { r.Email = "me@example.com\r\nBcc: x@example.com" }},
		{"no domain dot", func(r *mailer.SummaryRequest) { r.Email = "me@localhost" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			svc := newService(t, sender, time.Now)
			req := validRequest()
			tt.mutate(&req)
			err := svc.SendSummary(context.Background(), req)
			if !errors.Is(err, mailer.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if len(sender.msgs) != 0 {
				t.Fatal("expected nothing sent")
			}
		})
	}
}

func TestSendSummaryRateLimit(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sender := &recordingSender{}
	svc := newService(t, sender, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.SendSummary(ctx, validRequest()); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
		now = now.Add(time.Minute)
	}
	err := svc.SendSummary(ctx, validRequest())
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if errors.Is(err, mailer.ErrInvalidRequest) {
		t.Fatal("rate limit must be distinguishable from validation failure")
	}

	now = now.Add(time.Hour)
	if err := svc.SendSummary(ctx, validRequest()); err != nil {
		t.Fatalf("expected send after window: %v", err)
	}
}

func TestDeliveryFailureIsNotCounted(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	svc := newService(t, sender, time.Now)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if err := svc.SendSummary(ctx, validRequest()); !errors.Is(err, mailer.ErrDelivery) {
			t.Fatalf("expected ErrDelivery, got %v", err)
		}
	}
	sender.err = nil
	if err := svc.SendSummary(ctx, validRequest()); err != nil {
		t.Fatalf("expected send to succeed after failures: %v", err)
	}
}

func TestDisabledSender(t *testing.T) {
	cfg := config.Default()
	sender := mailer.NewSender(&cfg)
	if err := sender.Send(context.Background(), mailer.Message{}); !errors.Is(err, mailer.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestCompose(t *testing.T) {
	date := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	body, err := mailer.Compose(mailer.Message{
		From:    "care@example.com",
		To:      "me@example.com",
		Subject: "Résumé",
		Body:    "GAD-7 score: 3 / 21 — Minimal.\nBe well.",
	}, date)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	text := string(body)
	for _, want := range []string{
		"To: me@example.com\r\n",
		"Subject: =?utf-8?q?R=C3=A9sum=C3=A9?=\r\n",
		"Content-Transfer-Encoding: quoted-printable\r\n",
		"=E2=80=94",
		"Be well.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in message:\n%s", want, text)
		}
	}

	if _, err := mailer.Compose(mailer.Message{To: "a@b.c\nBcc: x"}, date); err == nil {
		t.Fatal("expected header injection to be rejected")
	}
}
