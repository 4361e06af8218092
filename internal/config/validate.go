package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the fields required for the given mode ("aggregate" or
// "serve"). Errors are collected so a single run reports every missing
// field at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Strapi.URL == "" {
		problems = append(problems, "strapi.url is required")
	}

	switch mode {
	case "aggregate":
		// Token is optional for dry runs; the command checks it before
		// submitting.
	case "serve":
		// Token absence is reported per request so the server can still
		// expose health and run history.
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(c.Sources.Enabled) == 0 {
		problems = append(problems, "sources.enabled must list at least one source")
	}
	if c.Sources.RatePerSec < 0 {
		problems = append(problems, "sources.rate_per_sec must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
