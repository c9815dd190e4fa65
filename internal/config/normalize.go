package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSigning()
	c.normalizeEmail()
	if err := c.normalizePlayer(); err != nil {
		return err
	}
	c.normalizeClient()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateFile) == "" {
		c.Paths.StateFile = filepath.Join(c.Paths.DataDir, defaultStateFileName)
	}
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, defaultDatabaseFileName)
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if c.Paths.CatalogFile, err = expandPath(strings.TrimSpace(c.Paths.CatalogFile)); err != nil {
		return fmt.Errorf("paths.catalog_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("EMINDY_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeSigning() {
	c.Signing.Secret = strings.TrimSpace(c.Signing.Secret)
	if c.Signing.Secret == "" {
		if value, ok := os.LookupEnv("EMINDY_RESULT_SECRET"); ok {
			c.Signing.Secret = strings.TrimSpace(value)
		}
	}
	c.Signing.ResultBaseURL = strings.TrimSpace(c.Signing.ResultBaseURL)
	if c.Signing.ResultBaseURL == "" {
		c.Signing.ResultBaseURL = defaultResultBaseURL
	}
	if c.Signing.NonceLifetimeSeconds <= 0 {
		c.Signing.NonceLifetimeSeconds = defaultNonceLifetime
	}
}

func (c *Config) normalizeEmail() {
	c.Email.SMTPHost = strings.TrimSpace(c.Email.SMTPHost)
	c.Email.Username = strings.TrimSpace(c.Email.Username)
	c.Email.From = strings.TrimSpace(c.Email.From)
	if c.Email.Password == "" {
		if value, ok := os.LookupEnv("EMINDY_SMTP_PASSWORD"); ok {
			c.Email.Password = value
		}
	}
	if c.Email.SMTPPort <= 0 {
		c.Email.SMTPPort = defaultSMTPPort
	}
	c.Email.Subject = strings.TrimSpace(c.Email.Subject)
	if c.Email.Subject == "" {
		c.Email.Subject = defaultEmailSubject
	}
	if c.Email.RateLimit <= 0 {
		c.Email.RateLimit = defaultEmailRateLimit
	}
	if c.Email.RateWindowSeconds <= 0 {
		c.Email.RateWindowSeconds = defaultEmailRateWindow
	}
	if c.Email.RequestTimeout <= 0 {
		c.Email.RequestTimeout = defaultEmailRequestTimeout
	}
}

func (c *Config) normalizePlayer() error {
	locale := strings.TrimSpace(c.Player.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("player.locale: %w", err)
	}
	c.Player.Locale = tag.String()

	base := strings.TrimSpace(c.Player.BasePath)
	if base == "" {
		base = defaultBasePath
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c.Player.BasePath = base

	if c.Player.FrameIntervalMillis <= 0 {
		c.Player.FrameIntervalMillis = defaultFrameIntervalMillis
	}

	defaults := DefaultLabels()
	labels := &c.Player.Labels
	for _, field := range []struct {
		value    *string
		fallback string
	}{
		{&labels.Play, defaults.Play},
		{&labels.Pause, defaults.Pause},
		{&labels.Next, defaults.Next},
		{&labels.Prev, defaults.Prev},
		{&labels.Reset, defaults.Reset},
		{&labels.Step, defaults.Step},
		{&labels.Completed, defaults.Completed},
		{&labels.ResetDone, defaults.ResetDone},
		{&labels.Total, defaults.Total},
	} {
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			*field.value = field.fallback
		}
	}
	return nil
}

func (c *Config) normalizeClient() {
	c.Client.ServerURL = strings.TrimRight(strings.TrimSpace(c.Client.ServerURL), "/")
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = defaultClientServerURL
	}
	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = defaultClientTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
