// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort      = 8060
	defaultServerTimeout   = 30 * time.Second
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultSourceTimeout   = 90 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultMaxArticles     = 20
	defaultMinBodyLength   = 50
	defaultRedisAddress    = "localhost:6379"
	defaultEnrichModel     = "claude-3-5-haiku-latest"
	defaultSourcesPath     = "config/sources.yaml"
	defaultRefreshSchedule = "@every 6h"
)

// Config is the root service configuration.
type Config struct {
	Debug      bool             `env:"APP_DEBUG" yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// IngestionConfig bounds scraping work per refresh pass.
type IngestionConfig struct {
	SourcesPath    string        `env:"SOURCES_PATH" yaml:"sources_path"`
	SourceTimeout  time.Duration `yaml:"source_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxArticles    int           `yaml:"max_articles"`
	MinBodyLength  int           `yaml:"min_body_length"`
	UserAgent      string        `yaml:"user_agent"`
	// ReplayFixture points at a JSON listing sample. When set, sources whose
	// strategy supports offline replay read from it instead of the network.
	ReplayFixture string `env:"INGEST_REPLAY_FIXTURE" yaml:"replay_fixture"`
}

// EnrichmentConfig configures the LLM enrichment collaborator.
type EnrichmentConfig struct {
	APIKey        string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model         string `env:"ENRICH_MODEL"      yaml:"model"`
	PromptVersion string `yaml:"prompt_version"`
	Enabled       bool   `env:"ENRICH_ENABLED"    yaml:"enabled"`
}

// RedisConfig holds Redis connection configuration for event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
}

// SchedulerConfig controls periodic background refreshes.
type SchedulerConfig struct {
	Enabled  bool     `env:"SCHEDULER_ENABLED" yaml:"enabled"`
	Schedule string   `yaml:"schedule"`
	Regions  []string `env:"SCHEDULER_REGIONS" yaml:"regions"`
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Enrichment.Enabled && c.Enrichment.APIKey == "" {
		return errors.New("enrichment.api_key is required when enrichment is enabled")
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Regions) == 0 {
		return errors.New("scheduler.regions is required when the scheduler is enabled")
	}
	return nil
}

// Load reads configuration from path, applies defaults and env overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := loadFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	setDefaults(&cfg)

	// Re-apply env overrides after defaults (env always wins)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if cfg.Ingestion.SourcesPath == "" {
		cfg.Ingestion.SourcesPath = defaultSourcesPath
	}
	if cfg.Ingestion.SourceTimeout == 0 {
		cfg.Ingestion.SourceTimeout = defaultSourceTimeout
	}
	if cfg.Ingestion.RequestTimeout == 0 {
		cfg.Ingestion.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Ingestion.MaxArticles == 0 {
		cfg.Ingestion.MaxArticles = defaultMaxArticles
	}
	if cfg.Ingestion.MinBodyLength == 0 {
		cfg.Ingestion.MinBodyLength = defaultMinBodyLength
	}
	if cfg.Ingestion.UserAgent == "" {
		cfg.Ingestion.UserAgent = "Mozilla/5.0 (compatible; CrimewatchIngest/1.0)"
	}
	if cfg.Enrichment.Model == "" {
		cfg.Enrichment.Model = defaultEnrichModel
	}
	if cfg.Enrichment.PromptVersion == "" {
		cfg.Enrichment.PromptVersion = "v1.0"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Scheduler.Schedule == "" {
		cfg.Scheduler.Schedule = defaultRefreshSchedule
	}
}
