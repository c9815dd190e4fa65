package main

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"emindy/internal/config"
	"emindy/internal/daemonrun"
	"emindy/internal/logging"
	"emindy/internal/testsupport"
)

// cliCatalog adds a practice of zero-length steps so run tests finish on the
// first frame.
const cliCatalog = testsupport.SampleCatalog + `  - id: quick
    title: Quick check-in
    steps:
      - label: Notice your breath
        duration: 0
        tip: No need to change it
      - label: Relax your shoulders
        duration: 0
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	serverURL  string
}

type cliEnvOption func(*cliEnvSettings)

type cliEnvSettings struct {
	withServer bool
	configOpts []testsupport.ConfigOption
}

func withServer() cliEnvOption {
	return func(s *cliEnvSettings) { s.withServer = true }
}

func withConfig(opts ...testsupport.ConfigOption) cliEnvOption {
	return func(s *cliEnvSettings) { s.configOpts = append(s.configOpts, opts...) }
}

func setupCLITestEnv(t *testing.T, opts ...cliEnvOption) *cliTestEnv {
	t.Helper()

	settings := cliEnvSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EMINDY_RESULT_SECRET", "")
	t.Setenv("EMINDY_API_TOKEN", "")

	configOpts := append([]testsupport.ConfigOption{testsupport.WithCatalog(cliCatalog)}, settings.configOpts...)
	cfg := testsupport.NewConfig(t, configOpts...)
	cfg.Player.FrameIntervalMillis = 1

	env := &cliTestEnv{
		cfg:     cfg,
		baseDir: testsupport.BaseDir(cfg),
	}

	if settings.withServer {
		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("EnsureDirectories: %v", err)
		}
		st := testsupport.MustOpenStore(t, cfg)
		srv, _, err := daemonrun.Assemble(cfg, st, logging.NewNop())
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		ts := httptest.NewServer(srv.Handler())
		t.Cleanup(ts.Close)
		env.serverURL = ts.URL
		cfg.Client.ServerURL = ts.URL
	}

	env.configPath = filepath.Join(env.baseDir, "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, strings.NewReader(""))
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(stdin)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
