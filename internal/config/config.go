package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pubgrove/scholar-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Strapi     StrapiConfig     `yaml:"strapi" mapstructure:"strapi"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Score      ScoreConfig      `yaml:"score" mapstructure:"score"`
	University UniversityConfig `yaml:"university" mapstructure:"university"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	Path        string            `yaml:"path" mapstructure:"path"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// StrapiConfig holds the Strapi backend endpoint and credentials.
type StrapiConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
}

// SourcesConfig configures the publication source adapters.
type SourcesConfig struct {
	Enabled     []string `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// RatePerSec throttles outbound requests per source.
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ScoreConfig configures confidence scoring.
type ScoreConfig struct {
	// KeywordsFile optionally overrides the built-in field keyword lists.
	KeywordsFile string `yaml:"keywords_file" mapstructure:"keywords_file"`
}

// UniversityConfig points the directory adapter at an institution site.
type UniversityConfig struct {
	DirectoryURL    string `yaml:"directory_url" mapstructure:"directory_url"`
	ProfilePathHint string `yaml:"profile_path_hint" mapstructure:"profile_path_hint"`
	Label           string `yaml:"label" mapstructure:"label"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCHOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "scholar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("strapi.url", "http://localhost:1337")
	// API-backed sources only. Google Scholar and ResearchGate are scraped
	// and block-prone, and University needs a directory URL, so all three
	// are opt-in.
	v.SetDefault("sources.enabled", []string{
		"dblp", "arXiv", "Semantic Scholar", "ORCID",
	})
	v.SetDefault("sources.timeout_secs", 30)
	v.SetDefault("sources.rate_per_sec", 1.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
