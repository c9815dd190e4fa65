package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	StateFile   string `toml:"state_file"`
	Database    string `toml:"database"`
	CatalogFile string `toml:"catalog_file"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Signing contains the shared secret and URLs for signed result links.
type Signing struct {
	Secret               string `toml:"secret"`
	ResultBaseURL        string `toml:"result_base_url"`
	NonceLifetimeSeconds int    `toml:"nonce_lifetime_seconds"`
}

// Email contains configuration for assessment summary delivery.
type Email struct {
	Enabled           bool   `toml:"enabled"`
	SMTPHost          string `toml:"smtp_host"`
	SMTPPort          int    `toml:"smtp_port"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	From              string `toml:"from"`
	Subject           string `toml:"subject"`
	RateLimit         int    `toml:"rate_limit"`
	RateWindowSeconds int    `toml:"rate_window_seconds"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// Labels holds the user-facing strings rendered and announced by the player.
// Step is a format string receiving the 1-based step number, the step count,
// and the step label.
type Labels struct {
	Play      string `toml:"play"`
	Pause     string `toml:"pause"`
	Next      string `toml:"next"`
	Prev      string `toml:"prev"`
	Reset     string `toml:"reset"`
	Step      string `toml:"step"`
	Completed string `toml:"completed"`
	ResetDone string `toml:"reset_done"`
	Total     string `toml:"total"`
}

// Player contains configuration for the guided practice player.
type Player struct {
	Locale              string `toml:"locale"`
	BasePath            string `toml:"base_path"`
	FrameIntervalMillis int    `toml:"frame_interval_ms"`
	Labels              Labels `toml:"labels"`
}

// Client contains settings the CLI uses to reach a running server.
type Client struct {
	ServerURL      string `toml:"server_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for eMINDy.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, state file, database, catalog, API bind
//   - Signing: result link secret, result page URL, nonce lifetime
//   - Email: SMTP delivery and per-address rate limiting
//   - Player: locale, base path, frame interval, and labels
//   - Client: how the CLI reaches a running server
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Signing Signing `toml:"signing"`
	Email   Email   `toml:"email"`
	Player  Player  `toml:"player"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/emindy/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("emindy.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.StateFile); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireSecret reports an error when no signing secret is configured.
// Only the commands that sign or verify results call it.
func (c *Config) RequireSecret() error {
	if strings.TrimSpace(c.Signing.Secret) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/emindy/config.toml"
		}
		return fmt.Errorf("signing.secret is required. Set EMINDY_RESULT_SECRET env var or edit %s (create with 'emindy config init')", defaultPath)
	}
	return nil
}

// NonceLifetime returns the nonce validity window as a duration.
func (c *Config) NonceLifetime() time.Duration {
	return time.Duration(c.Signing.NonceLifetimeSeconds) * time.Second
}

// EmailRateWindow returns the sliding window used for email rate limiting.
func (c *Config) EmailRateWindow() time.Duration {
	return time.Duration(c.Email.RateWindowSeconds) * time.Second
}

// FrameInterval returns the delay between player frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Player.FrameIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
