package preflight

import (
	"context"

	"emindy/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckSecret(cfg.Signing.Secret),
	}

	// Catalog (when configured)
	if cfg.Paths.CatalogFile != "" {
		results = append(results, CheckCatalog(cfg.Paths.CatalogFile))
	}

	// SMTP relay
	if cfg.Email.Enabled {
		results = append(results, CheckSMTP(ctx, cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
