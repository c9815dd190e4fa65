package assist_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"emindy/internal/assessment"
	"emindy/internal/assist"
	"emindy/internal/daemonrun"
	"emindy/internal/logging"
	"emindy/internal/resultsig"
	"emindy/internal/testsupport"
)

func newServer(t *testing.T, opts ...testsupport.ConfigOption) (*assist.Client, *httptest.Server) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithCatalog(testsupport.SampleCatalog)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	srv, _, err := daemonrun.Assemble(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := assist.New(assist.Config{ServerURL: ts.URL})
	if err != nil {
		t.Fatalf("assist.New: %v", err)
	}
	return client, ts
}

func TestSignURLVerifies(t *testing.T) {
	client, _ := newServer(t)
	ctx := context.Background()

	link, err := client.SignURL(ctx, "gad7", 9)
	if err != nil {
		t.Fatalf("SignURL: %v", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	signer, err := resultsig.New(testsupport.TestSecret, "http://127.0.0.1:7490/result")
	if err != nil {
		t.Fatalf("resultsig.New: %v", err)
	}
	result, err := signer.VerifyQuery(parsed.Query())
	if err != nil {
		t.Fatalf("VerifyQuery: %v", err)
	}
	if result.Kind != assessment.GAD7 || result.Score != 9 || result.Band != "Mild" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSignURLRejectsUnknownKind(t *testing.T) {
	client, _ := newServer(t)
	_, err := client.SignURL(context.Background(), "bdi", 3)
	var statusErr *assist.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if !errors.Is(err, assist.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestEmailSummaryDisabledDelivery(t *testing.T) {
	client, _ := newServer(t)
	err := client.EmailSummary(context.Background(), "phq9", "PHQ-9 score: 3 / 27 — Minimal.", "me@example.com")
	var statusErr *assist.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}
}

func TestEmailSummaryMapsRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/nonce":
			_, _ = w.Write([]byte(`{"nonce":"abc"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
		}
	}))
	defer ts.Close()

	client, err := assist.New(assist.Config{ServerURL: ts.URL})
	if err != nil {
		t.Fatalf("assist.New: %v", err)
	}
	err = client.EmailSummary(context.Background(), "phq9", "summary", "me@example.com")
	if !errors.Is(err, assist.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestStaleNonceRetriedOnce(t *testing.T) {
	var nonceCalls, signCalls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/nonce":
			n := nonceCalls.Add(1)
			if n == 1 {
				_, _ = w.Write([]byte(`{"nonce":"stale"}`))
				return
			}
			_, _ = w.Write([]byte(`{"nonce":"fresh"}`))
		case "/api/sign":
			signCalls.Add(1)
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), `"stale"`) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"invalid or expired nonce"}`))
				return
			}
			_, _ = w.Write([]byte(`{"url":"http://example.test/result?type=phq9"}`))
		}
	}))
	defer ts.Close()

	client, err := assist.New(assist.Config{ServerURL: ts.URL})
	if err != nil {
		t.Fatalf("assist.New: %v", err)
	}
	link, err := client.SignURL(context.Background(), "phq9", 1)
	if err != nil {
		t.Fatalf("SignURL: %v", err)
	}
	if link != "http://example.test/result?type=phq9" {
		t.Fatalf("unexpected link %q", link)
	}
	if nonceCalls.Load() != 2 || signCalls.Load() != 2 {
		t.Fatalf("nonce calls = %d, sign calls = %d", nonceCalls.Load(), signCalls.Load())
	}
}

func TestTrackSwallowsFailures(t *testing.T) {
	client, err := assist.New(assist.Config{ServerURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("assist.New: %v", err)
	}
	client.Track(context.Background(), "practice_start", "Box breathing", "box-breathing")
}

func TestTrackAndStats(t *testing.T) {
	client, _ := newServer(t, testsupport.WithAPIToken("stats-token"))
	ctx := context.Background()
	client.Track(ctx, "practice_complete", "Box breathing", "box-breathing")
	client.Track(ctx, "practice_complete", "Body scan", "body-scan")

	if _, err := client.Stats(ctx, "", 0); err == nil {
		t.Fatal("expected unauthorized without token")
	}
	counts, err := client.Stats(ctx, "stats-token", time.Hour)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(counts) != 1 || counts[0].Name != "practice_complete" || counts[0].Count != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	recent, err := client.RecentEvents(ctx, "stats-token", 5)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(recent) != 2 || recent[0].EntityID == "" {
		t.Fatalf("unexpected recent events: %+v", recent)
	}
}

func TestPractices(t *testing.T) {
	client, _ := newServer(t)
	ctx := context.Background()

	list, err := client.Practices(ctx)
	if err != nil {
		t.Fatalf("Practices: %v", err)
	}
	if len(list) != 3 || list[0].ID != "body-scan" {
		t.Fatalf("unexpected practices: %+v", list)
	}
	practice, err := client.Practice(ctx, "box-breathing")
	if err != nil {
		t.Fatalf("Practice: %v", err)
	}
	if len(practice.Steps) != 4 || practice.Steps[0].Tip != "Through the nose" {
		t.Fatalf("unexpected practice: %+v", practice)
	}
	_, err = client.Practice(ctx, "missing")
	var statusErr *assist.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := assist.New(assist.Config{ServerURL: "localhost"}); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}

func TestClientSatisfiesAssessmentHelpers(t *testing.T) {
	var _ assessment.Helpers = (*assist.Client)(nil)
}
