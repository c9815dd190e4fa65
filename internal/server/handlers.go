package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"emindy/internal/analytics"
	"emindy/internal/logging"
	"emindy/internal/mailer"
	"emindy/internal/ratelimit"
)

// Nonce actions.
const (
	actionSign  = "sign"
	actionEmail = "email"
)

func (s *Server) allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func validAction(action string) bool {
	switch action {
	case actionSign, actionEmail:
		return true
	default:
		return false
	}
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	action := strings.TrimSpace(r.URL.Query().Get("action"))
	if !validAction(action) {
		s.writeError(w, http.StatusBadRequest, "unknown nonce action")
		return
	}
	session := ensureSession(w, r)
	s.writeJSON(w, http.StatusOK, map[string]string{"nonce": s.nonces.Create(action, session)})
}

// checkNonce writes a 403 and returns false when the request's nonce is not
// valid for action and the caller's session.
func (s *Server) checkNonce(w http.ResponseWriter, r *http.Request, action, value string) bool {
	session := sessionID(r)
	if session == "" {
		s.writeError(w, http.StatusForbidden, "missing session")
		return false
	}
	if err := s.nonces.Verify(value, action, session); err != nil {
		s.writeError(w, http.StatusForbidden, "invalid or expired nonce")
		return false
	}
	return true
}

type signRequest struct {
	Type  string `json:"type"`
	Score *int   `json:"score"`
	Nonce string `json:"nonce"`
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodPost) {
		return
	}
	var req signRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.signs.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.checkNonce(w, r, actionSign, req.Nonce) {
		s.metrics.signs.WithLabelValues("forbidden").Inc()
		return
	}
	if req.Score == nil {
		s.metrics.signs.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, "score is required")
		return
	}
	link, err := s.signer.SignedURL(strings.TrimSpace(req.Type), *req.Score)
	if err != nil {
		s.metrics.signs.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.signs.WithLabelValues("ok").Inc()
	s.log(r.Context()).Debug("result link signed",
		logging.String(logging.FieldKind, req.Type),
		logging.Int("score", *req.Score))
	s.writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

type emailRequest struct {
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Email   string `json:"email"`
	Nonce   string `json:"nonce"`
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodPost) {
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.emails.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.checkNonce(w, r, actionEmail, req.Nonce) {
		s.metrics.emails.WithLabelValues("forbidden").Inc()
		return
	}

	err := s.mailer.SendSummary(r.Context(), mailer.SummaryRequest{
		Kind:      req.Kind,
		Summary:   req.Summary,
		Email:     req.Email,
		Requester: clientAddr(r),
	})
	switch {
	case err == nil:
		s.metrics.emails.WithLabelValues("ok").Inc()
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, mailer.ErrInvalidRequest):
		s.metrics.emails.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ratelimit.ErrRateLimited):
		s.metrics.emails.WithLabelValues("rate_limited").Inc()
		s.writeError(w, http.StatusTooManyRequests, ratelimit.ErrRateLimited.Error())
	case errors.Is(err, mailer.ErrDisabled):
		s.metrics.emails.WithLabelValues("disabled").Inc()
		s.writeError(w, http.StatusServiceUnavailable, mailer.ErrDisabled.Error())
	default:
		s.metrics.emails.WithLabelValues("failed").Inc()
		s.writeError(w, http.StatusBadGateway, mailer.ErrDelivery.Error())
	}
}

type trackRequest struct {
	Event  string `json:"event"`
	Label  string `json:"label"`
	Entity string `json:"entity"`
}

// handleTrack always answers 204; analytics must never break the caller.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodPost) {
		return
	}
	defer w.WriteHeader(http.StatusNoContent)

	var req trackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.metrics.tracks.WithLabelValues("invalid").Inc()
		s.log(r.Context()).Debug("analytics event rejected", logging.Error(err))
		return
	}
	if s.analytics == nil {
		s.metrics.tracks.WithLabelValues("dropped").Inc()
		return
	}
	if _, err := s.analytics.Record(r.Context(), req.Event, req.Label, req.Entity); err != nil {
		outcome := "failed"
		if errors.Is(err, analytics.ErrInvalidEvent) {
			outcome = "invalid"
		}
		s.metrics.tracks.WithLabelValues(outcome).Inc()
		s.log(r.Context()).Debug("analytics event not recorded",
			logging.String("event", req.Event),
			logging.Error(err))
		return
	}
	s.metrics.tracks.WithLabelValues("ok").Inc()
}

func (s *Server) handlePractices(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"practices": s.catalog.List()})
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/practices/"), "/")
	if id == "" {
		s.handlePractices(w, r)
		return
	}
	practice, ok := s.catalog.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "practice not found")
		return
	}
	s.writeJSON(w, http.StatusOK, practice)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.analytics == nil {
		s.writeError(w, http.StatusServiceUnavailable, "analytics unavailable")
		return
	}
	var since time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil || window <= 0 {
			s.writeError(w, http.StatusBadRequest, "since must be a positive duration such as 24h")
			return
		}
		since = time.Now().Add(-window)
	}
	recent := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("recent")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "recent must be a non-negative number")
			return
		}
		recent = n
	}

	counts, err := s.analytics.Counts(r.Context(), since)
	if err != nil {
		s.statsFailed(w, r, err)
		return
	}
	resp := map[string]any{"events": counts}
	if recent > 0 {
		events, err := s.analytics.Recent(r.Context(), recent)
		if err != nil {
			s.statsFailed(w, r, err)
			return
		}
		resp["recent"] = events
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statsFailed(w http.ResponseWriter, r *http.Request, err error) {
	logging.ErrorWithContext(s.log(r.Context()), "analytics query failed", "stats_query_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the database file"))
	s.writeError(w, http.StatusInternalServerError, "failed to load stats")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
