// Package config loads and validates mirror configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"`
	API      APIConfig      `mapstructure:"api"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Compress CompressConfig `mapstructure:"compress"`
	Index    IndexConfig    `mapstructure:"index"`
	Storage  StorageConfig  `mapstructure:"storage"`
	CDN      CDNConfig      `mapstructure:"cdn"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SessionConfig selects which legislative session's documents to mirror.
type SessionConfig struct {
	ID                 string `mapstructure:"id"`
	LegislatureOrdinal int    `mapstructure:"legislature_ordinal"`
	SessionOrdinal     int    `mapstructure:"session_ordinal"`
}

// APIConfig configures the legislature API client.
type APIConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	BillsListURL     string `mapstructure:"bills_list_url"`
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// PathsConfig sets the local filesystem layout.
type PathsConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// FetchConfig governs the document download worker pool.
type FetchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// CompressConfig controls the ghostscript compression stage.
type CompressConfig struct {
	Quality           string  `mapstructure:"quality"`
	MinSavingsPercent float64 `mapstructure:"min_savings_percent"`
	Workers           int     `mapstructure:"workers"`
	GhostscriptPath   string  `mapstructure:"ghostscript_path"`
}

// IndexConfig controls the document index artifacts.
type IndexConfig struct {
	// URLPrefix is prepended to every document URL in the index.
	// When empty, "/capitol-tracker-<session>" is used.
	URLPrefix string `mapstructure:"url_prefix"`
}

// StorageConfig selects and configures the object-store provider.
type StorageConfig struct {
	Provider              string `mapstructure:"provider"`
	Bucket                string `mapstructure:"bucket"`
	Prefix                string `mapstructure:"prefix"`
	ContentType           string `mapstructure:"content_type"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`
}

// CDNConfig configures cache invalidation after a deploy.
type CDNConfig struct {
	Provider   string `mapstructure:"provider"`
	Project    string `mapstructure:"project"`
	URLMap     string `mapstructure:"url_map"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// PubSubConfig holds metadata for deploy completion events.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DBConfig controls the optional run-history database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAPITOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/capitol-pdfs/")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.id", "2025")
	v.SetDefault("session.legislature_ordinal", 69)
	v.SetDefault("session.session_ordinal", 20251)

	v.SetDefault("api.base_url", "https://api.legmt.gov")
	v.SetDefault("api.bills_list_url",
		"https://raw.githubusercontent.com/mtfreepress/legislative-interface/refs/heads/main/list-bills-%s.json")
	v.SetDefault("api.user_agent", "capitol-pdf-mirror/1.0 (+https://github.com/mtfreepress)")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.max_retries", 5)
	v.SetDefault("api.backoff_initial_ms", 1000)
	v.SetDefault("api.backoff_max_ms", 30000)

	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("fetch.concurrency", 10)

	v.SetDefault("compress.quality", "ebook")
	v.SetDefault("compress.min_savings_percent", 5.0)
	v.SetDefault("compress.workers", 0) // 0 means NumCPU
	v.SetDefault("compress.ghostscript_path", "gs")

	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.prefix", "capitol-tracker")
	v.SetDefault("storage.content_type", "application/pdf")
	v.SetDefault("storage.max_concurrent_requests", 20)

	v.SetDefault("cdn.provider", "noop")
	v.SetDefault("pubsub.provider", "noop")
	v.SetDefault("db.provider", "noop")
	v.SetDefault("db.table", "mirror_runs")

	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Session.ID == "" {
		return fmt.Errorf("session.id is required")
	}
	if c.Session.LegislatureOrdinal <= 0 {
		return fmt.Errorf("session.legislature_ordinal must be > 0")
	}
	if c.Session.SessionOrdinal <= 0 {
		return fmt.Errorf("session.session_ordinal must be > 0")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.Compress.MinSavingsPercent < 0 || c.Compress.MinSavingsPercent > 100 {
		return fmt.Errorf("compress.min_savings_percent must be within [0, 100]")
	}
	switch c.Compress.Quality {
	case "screen", "ebook", "printer", "prepress":
	default:
		return fmt.Errorf("compress.quality must be one of screen, ebook, printer, prepress")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.provider is 'gcs'")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.Storage.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("storage.max_concurrent_requests must be > 0")
	}
	if c.CDN.Provider == "cloudcdn" && (c.CDN.Project == "" || c.CDN.URLMap == "") {
		return fmt.Errorf("cdn.project and cdn.url_map are required when cdn.provider is 'cloudcdn'")
	}
	if c.PubSub.Provider == "pubsub" && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub.provider is 'pubsub'")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required when db.provider is 'postgres'")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// APITimeout converts the configured timeout into a duration.
func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// SiteURLPrefix returns the public URL prefix for index entries.
func (c Config) SiteURLPrefix() string {
	if c.Index.URLPrefix != "" {
		return strings.TrimRight(c.Index.URLPrefix, "/")
	}
	return "/capitol-tracker-" + c.Session.ID
}

// RemotePrefix returns the bucket key prefix documents are synced under.
func (c Config) RemotePrefix() string {
	return strings.Trim(c.Storage.Prefix, "/")
}
