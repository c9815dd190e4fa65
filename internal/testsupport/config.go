package testsupport

import (
	"path/filepath"
	"testing"

	"emindy/internal/config"
)

// TestSecret is the signing secret NewConfig installs.
const TestSecret = "test-signing-secret-0123456789"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateFile = filepath.Join(base, "data", "player_state.json")
	cfgVal.Paths.Database = filepath.Join(base, "data", "emindy.db")
	cfgVal.Paths.CatalogFile = filepath.Join(base, "practices.yaml")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Signing.Secret = TestSecret

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSecret overrides the signing secret.
func WithSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Signing.Secret = secret
	}
}

// WithAPIToken protects the stats endpoint with token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithEmailLimit overrides the email rate limit and window in seconds.
func WithEmailLimit(limit, windowSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Email.RateLimit = limit
		b.cfg.Email.RateWindowSeconds = windowSeconds
	}
}

// WithCatalog writes content to the configured catalog file.
func WithCatalog(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Paths.CatalogFile, content)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
