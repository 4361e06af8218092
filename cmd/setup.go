package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pubgrove/scholar-cli/internal/score"
	"github.com/pubgrove/scholar-cli/internal/source"
	"github.com/pubgrove/scholar-cli/internal/store"
	"github.com/pubgrove/scholar-cli/pkg/strapi"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "scholar.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initScorer() (*score.Scorer, error) {
	scoreCfg := score.DefaultConfig()
	if cfg.Score.KeywordsFile != "" {
		if err := scoreCfg.LoadKeywords(cfg.Score.KeywordsFile); err != nil {
			return nil, err
		}
	}
	return score.New(scoreCfg), nil
}

// buildRegistry constructs the adapters named in sources.enabled, in
// config order.
func buildRegistry(scorer *score.Scorer) (*source.Registry, error) {
	clientOpts := []source.ClientOption{
		source.WithRateLimit(cfg.Sources.RatePerSec, 1),
	}
	if cfg.Sources.TimeoutSecs > 0 {
		clientOpts = append(clientOpts, source.WithTimeout(time.Duration(cfg.Sources.TimeoutSecs)*time.Second))
	}

	registry := source.NewRegistry()
	for _, name := range cfg.Sources.Enabled {
		// Each adapter gets its own client so per-source rate limits
		// do not interfere.
		client := source.NewClient(clientOpts...)
		switch name {
		case "dblp":
			registry.Register(source.NewDBLP(client, scorer))
		case "arXiv":
			registry.Register(source.NewArxiv(client, scorer))
		case "Semantic Scholar":
			registry.Register(source.NewSemanticScholar(client, scorer))
		case "ORCID":
			registry.Register(source.NewORCID(client, scorer))
		case "Google Scholar":
			registry.Register(source.NewScholar(client, scorer))
		case "ResearchGate":
			registry.Register(source.NewResearchGate(client, scorer))
		case "University":
			if cfg.University.DirectoryURL == "" {
				return nil, eris.New("university.directory_url is required when the University source is enabled")
			}
			registry.Register(source.NewUniversity(client, scorer, source.UniversityConfig{
				DirectoryURL:     cfg.University.DirectoryURL,
				ProfilePathHint:  cfg.University.ProfilePathHint,
				InstitutionLabel: cfg.University.Label,
			}))
		default:
			return nil, eris.Errorf("unknown source: %s", name)
		}
	}
	return registry, nil
}

func newBackend() strapi.Client {
	return strapi.NewClient(cfg.Strapi.URL, cfg.Strapi.Token)
}
