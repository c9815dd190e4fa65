package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSigning(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSigning() error {
	if c.Signing.Secret != "" && len(c.Signing.Secret) < minSecretLength {
		return fmt.Errorf("signing.secret must be at least %d characters", minSecretLength)
	}
	if err := validateAbsoluteURL("signing.result_base_url", c.Signing.ResultBaseURL); err != nil {
		return err
	}
	if c.Signing.NonceLifetimeSeconds < 60 {
		return errors.New("signing.nonce_lifetime_seconds must be at least 60")
	}
	return nil
}

func (c *Config) validateEmail() error {
	if err := ensurePositiveMap(map[string]int{
		"email.rate_limit":          c.Email.RateLimit,
		"email.rate_window_seconds": c.Email.RateWindowSeconds,
		"email.request_timeout":     c.Email.RequestTimeout,
	}); err != nil {
		return err
	}
	if !c.Email.Enabled {
		return nil
	}
	if c.Email.SMTPHost == "" {
		return errors.New("email.smtp_host must be set when email.enabled is true")
	}
	if c.Email.From == "" {
		return errors.New("email.from must be set when email.enabled is true")
	}
	if c.Email.SMTPPort > 65535 {
		return errors.New("email.smtp_port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.FrameIntervalMillis > 1000 {
		return errors.New("player.frame_interval_ms must not exceed 1000")
	}
	sample := fmt.Sprintf(c.Player.Labels.Step, 1, 2, "label")
	if strings.Contains(sample, "%!") {
		return fmt.Errorf("player.labels.step must accept a step number, a step count, and a label: %q", c.Player.Labels.Step)
	}
	return nil
}

func (c *Config) validateClient() error {
	return validateAbsoluteURL("client.server_url", c.Client.ServerURL)
}

func validateAbsoluteURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
