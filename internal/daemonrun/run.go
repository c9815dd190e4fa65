package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"emindy/internal/analytics"
	"emindy/internal/catalog"
	"emindy/internal/config"
	"emindy/internal/logging"
	"emindy/internal/mailer"
	"emindy/internal/nonce"
	"emindy/internal/ratelimit"
	"emindy/internal/resultsig"
	"emindy/internal/server"
	"emindy/internal/store"
)

// LockFileName guards against two servers sharing one log directory.
const LockFileName = "emindy.lock"

const pruneInterval = 10 * time.Minute

// Options configures server process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the bound API address once the server listens.
	Ready func(addr string)
}

// Run starts the eMINDy server and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another emindy server instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	logPath := logging.RunLogPath(cfg.Paths.LogDir, time.Now())
	logger, err := logging.NewFromConfig(cfg,
		logging.WithFile(logPath),
		logging.WithLevel(opts.LogLevel),
		logging.WithDevelopment(opts.Development))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logging.LinkCurrent(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)

	pidPath := filepath.Join(cfg.Paths.LogDir, "emindy.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	srv, limiter, err := Assemble(cfg, st, logger)
	if err != nil {
		return err
	}
	logConfigSnapshot(logger, cfg)

	if err := srv.Start(signalCtx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}
	defer srv.Stop()
	if opts.Ready != nil {
		opts.Ready(srv.Addr())
	}

	go pruneSends(signalCtx, limiter, logger)

	<-signalCtx.Done()
	logger.Info("emindy server shutting down")
	return nil
}

// Assemble builds the API server and its email limiter over st.
func Assemble(cfg *config.Config, st *store.Store, logger *slog.Logger) (*server.Server, *ratelimit.Limiter, error) {
	signer, err := resultsig.New(cfg.Signing.Secret, cfg.Signing.ResultBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("result signer: %w", err)
	}
	nonces, err := nonce.New(cfg.Signing.Secret, cfg.NonceLifetime())
	if err != nil {
		return nil, nil, fmt.Errorf("nonce manager: %w", err)
	}
	limiter, err := ratelimit.New(st, cfg.Email.RateLimit, cfg.EmailRateWindow())
	if err != nil {
		return nil, nil, fmt.Errorf("email rate limiter: %w", err)
	}
	mail, err := mailer.NewService(cfg, mailer.NewSender(cfg), limiter, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("mailer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(server.Options{
		Config:    cfg,
		Signer:    signer,
		Nonces:    nonces,
		Mailer:    mail,
		Analytics: analytics.NewRecorder(st, logger),
		Catalog:   loadCatalog(cfg, logger),
		Logger:    logger,
		Registry:  registry,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create api server: %w", err)
	}
	return srv, limiter, nil
}

// loadCatalog falls back to an empty catalog so the assessment endpoints stay
// available when the practice file is missing or broken.
func loadCatalog(cfg *config.Config, logger *slog.Logger) *catalog.Catalog {
	path := strings.TrimSpace(cfg.Paths.CatalogFile)
	if path == "" {
		return catalog.Empty()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		logging.WarnWithContext(logger, "practice catalog unavailable", "catalog_load_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "create the file or fix paths.catalog_file"),
			logging.String(logging.FieldImpact, "practice endpoints return no practices"),
		)
		return catalog.Empty()
	}
	logger.Info("practice catalog loaded",
		logging.String("path", path),
		logging.Int("practices", cat.Len()),
	)
	return cat
}

func pruneSends(ctx context.Context, limiter *ratelimit.Limiter, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := limiter.Prune(ctx); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(logger, "email ledger prune failed", "email_prune_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "old send records remain until the next prune"),
				)
			}
		}
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.String("result_base_url", cfg.Signing.ResultBaseURL),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("email_enabled", cfg.Email.Enabled),
		logging.Int("email_rate_limit", cfg.Email.RateLimit),
		logging.Duration("email_rate_window", cfg.EmailRateWindow()),
		logging.String("database", cfg.Paths.Database),
	)
}
