package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"emindy/internal/analytics"
	"emindy/internal/catalog"
	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/mailer"
	"emindy/internal/nonce"
	"emindy/internal/resultsig"
)

const maxBodyBytes = 16 << 10

// Options wires a Server. Signer, Nonces, and Mailer are required.
type Options struct {
	Config    *config.Config
	Signer    *resultsig.Signer
	Nonces    *nonce.Manager
	Mailer    *mailer.Service
	Analytics *analytics.Recorder
	Catalog   *catalog.Catalog
	Logger    *slog.Logger
	Registry  *prometheus.Registry
}

// Server serves the HTTP API.
type Server struct {
	bind      string
	token     string
	signer    *resultsig.Signer
	nonces    *nonce.Manager
	mailer    *mailer.Service
	analytics *analytics.Recorder
	catalog   *catalog.Catalog
	logger    *slog.Logger
	metrics   *metrics
	handler   http.Handler

	listener net.Listener
	server   *http.Server
}

// New builds a Server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Signer == nil || opts.Nonces == nil || opts.Mailer == nil {
		return nil, errors.New("signer, nonces, and mailer are required")
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Empty()
	}
	s := &Server{
		bind:      strings.TrimSpace(opts.Config.Paths.APIBind),
		token:     strings.TrimSpace(opts.Config.Paths.APIToken),
		signer:    opts.Signer,
		nonces:    opts.Nonces,
		mailer:    opts.Mailer,
		analytics: opts.Analytics,
		catalog:   cat,
		logger:    logging.NewComponentLogger(opts.Logger, "api-server"),
		metrics:   newMetrics(opts.Registry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/nonce", s.route("nonce", s.handleNonce))
	mux.HandleFunc("/api/sign", s.route("sign", s.handleSign))
	mux.HandleFunc("/api/email", s.route("email", s.handleEmail))
	mux.HandleFunc("/api/track", s.route("track", s.handleTrack))
	mux.HandleFunc("/api/practices", s.route("practices", s.handlePractices))
	mux.HandleFunc("/api/practices/", s.route("practice", s.handlePractice))
	mux.HandleFunc("/api/stats", s.route("stats", authMiddleware(s.token, s.handleStats)))
	mux.HandleFunc("/api/health", s.route("health", s.handleHealth))
	mux.HandleFunc("/result", s.route("result", s.handleResult))
	mux.Handle("/metrics", s.metrics.handler())
	s.handler = mux

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// route attaches a request ID and records latency for a handler.
func (s *Server) route(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)
		next(w, r.WithContext(ctx))
		s.metrics.observe(name, started)
	}
}

func (s *Server) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.logger)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
