package config

const (
	defaultDataDir             = "~/.local/share/emindy"
	defaultLogDir              = "~/.local/share/emindy/logs"
	defaultCatalogFile         = "~/.config/emindy/practices.yaml"
	defaultStateFileName       = "player_state.json"
	defaultDatabaseFileName    = "emindy.db"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultResultBaseURL       = "http://127.0.0.1:7490/result"
	defaultNonceLifetime       = 86400
	defaultSMTPPort            = 587
	defaultEmailSubject        = "Your eMINDy assessment summary"
	defaultEmailRateLimit      = 5
	defaultEmailRateWindow     = 3600
	defaultEmailRequestTimeout = 10
	defaultLocale              = "en-US"
	defaultBasePath            = "/"
	defaultFrameIntervalMillis = 250
	defaultClientServerURL     = "http://127.0.0.1:7490"
	defaultClientTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	minSecretLength            = 16
)

// DefaultLabels returns the English player labels.
func DefaultLabels() Labels {
	return Labels{
		Play:      "Play",
		Pause:     "Pause",
		Next:      "Next",
		Prev:      "Previous",
		Reset:     "Reset",
		Step:      "Step %d of %d: %s",
		Completed: "Practice complete. Well done.",
		ResetDone: "Practice reset to the first step.",
		Total:     "Total time",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			CatalogFile: defaultCatalogFile,
			APIBind:     defaultAPIBind,
		},
		Signing: Signing{
			ResultBaseURL:        defaultResultBaseURL,
			NonceLifetimeSeconds: defaultNonceLifetime,
		},
		Email: Email{
			SMTPPort:          defaultSMTPPort,
			Subject:           defaultEmailSubject,
			RateLimit:         defaultEmailRateLimit,
			RateWindowSeconds: defaultEmailRateWindow,
			RequestTimeout:    defaultEmailRequestTimeout,
		},
		Player: Player{
			Locale:              defaultLocale,
			BasePath:            defaultBasePath,
			FrameIntervalMillis: defaultFrameIntervalMillis,
			Labels:              DefaultLabels(),
		},
		Client: Client{
			ServerURL:      defaultClientServerURL,
			TimeoutSeconds: defaultClientTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
