// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/cdn"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/cdn/cloudcdn"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/clock/system"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/compress"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/config"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/database"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/fetch"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/hash/sha256"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/id/uuid"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/index"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/legislature"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/pipeline"
	pubsubpublisher "github.com/mtfreepress/capitol-pdf-mirror/internal/publisher/pubsub"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/storage"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/storage/gcs"
	storagememory "github.com/mtfreepress/capitol-pdf-mirror/internal/storage/memory"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/syncer"
)

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and passed to the commands that need it.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store       storage.ObjectStore
	invalidator cdn.Invalidator
	publisher   syncer.Publisher
	db          database.Provider
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the configured object store.
func (a *App) Store() storage.ObjectStore { return a.store }

// Database returns the run-history provider.
func (a *App) Database() database.Provider { return a.db }

// New wires every provider from configuration, failing fast when a
// configured backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	switch cfg.Storage.Provider {
	case "gcs":
		logger.Info("using GCS object store", zap.String("bucket", cfg.Storage.Bucket))
		store, err := gcs.New(ctx, gcs.Config{Bucket: cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("initialize storage: %w", err)
		}
		a.store = store
	case "memory", "noop":
		logger.Info("using in-memory object store; uploads will not persist")
		a.store = storagememory.New()
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}

	switch cfg.CDN.Provider {
	case "cloudcdn":
		logger.Info("using Cloud CDN invalidation", zap.String("url_map", cfg.CDN.URLMap))
		inv, err := cloudcdn.New(ctx, cloudcdn.Config{
			Project: cfg.CDN.Project,
			URLMap:  cfg.CDN.URLMap,
		}, logger)
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("initialize cdn: %w", err)
		}
		a.invalidator = inv
	case "noop":
		a.invalidator = cdn.NoOpInvalidator{}
	default:
		a.closePartial()
		return nil, fmt.Errorf("unknown cdn provider: %s", cfg.CDN.Provider)
	}

	switch cfg.PubSub.Provider {
	case "pubsub":
		logger.Info("using Pub/Sub deploy events", zap.String("topic", cfg.PubSub.TopicName))
		pub, err := pubsubpublisher.New(ctx, pubsubpublisher.Config{
			ProjectID: cfg.PubSub.ProjectID,
			TopicID:   cfg.PubSub.TopicName,
		})
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		a.publisher = pub
	case "noop":
		a.publisher = nil
	default:
		a.closePartial()
		return nil, fmt.Errorf("unknown pubsub provider: %s", cfg.PubSub.Provider)
	}

	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres run history")
		db, err := database.NewPostgresProvider(ctx, database.PostgresConfig{
			DSN:   cfg.DB.DSN,
			Table: cfg.DB.Table,
		})
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		a.db = db
	case "noop":
		a.db = database.NoOpProvider{}
	default:
		a.closePartial()
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	return a, nil
}

// FetchStage builds the document download stage.
func (a *App) FetchStage() (*fetch.Stage, error) {
	sink, err := fetch.NewSink(a.cfg.Paths.DataDir, a.cfg.Session.ID, a.logger)
	if err != nil {
		return nil, err
	}
	client := legislature.NewClient(legislature.Config{
		BaseURL:        a.cfg.API.BaseURL,
		BillsListURL:   a.cfg.API.BillsListURL,
		UserAgent:      a.cfg.API.UserAgent,
		Timeout:        a.cfg.APITimeout(),
		MaxRetries:     a.cfg.API.MaxRetries,
		BackoffInitial: time.Duration(a.cfg.API.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(a.cfg.API.BackoffMaxMs) * time.Millisecond,
		Token:          os.Getenv("GITHUB_TOKEN"),
	}, a.logger)
	return fetch.NewStage(client, sink, fetch.Config{
		SessionID:          a.cfg.Session.ID,
		LegislatureOrdinal: a.cfg.Session.LegislatureOrdinal,
		SessionOrdinal:     a.cfg.Session.SessionOrdinal,
		Concurrency:        a.cfg.Fetch.Concurrency,
	}, a.logger), nil
}

// CompressStage builds the ghostscript compression stage.
func (a *App) CompressStage(dryRun bool) *compress.Stage {
	runner := &compress.GhostscriptRunner{
		Path:    a.cfg.Compress.GhostscriptPath,
		Quality: a.cfg.Compress.Quality,
	}
	return compress.NewStage(runner, sha256.New(), system.New(), compress.Config{
		DataDir:           a.cfg.Paths.DataDir,
		SessionID:         a.cfg.Session.ID,
		MinSavingsPercent: a.cfg.Compress.MinSavingsPercent,
		Workers:           a.cfg.Compress.Workers,
		DryRun:            dryRun,
	}, a.logger)
}

// IndexStage builds the metadata generation stage.
func (a *App) IndexStage() *index.Stage {
	return index.NewStage(index.Config{
		DataDir:   a.cfg.Paths.DataDir,
		SessionID: a.cfg.Session.ID,
		URLPrefix: a.cfg.SiteURLPrefix(),
	}, a.logger)
}

// DeployStage builds the bucket sync stage.
func (a *App) DeployStage(dryRun bool) *syncer.Stage {
	return syncer.NewStage(a.store, a.invalidator, a.publisher, syncer.Config{
		DataDir:            a.cfg.Paths.DataDir,
		RemotePrefix:       a.cfg.RemotePrefix(),
		DefaultContentType: a.cfg.Storage.ContentType,
		MaxConcurrent:      a.cfg.Storage.MaxConcurrentRequests,
		DryRun:             dryRun,
	}, a.logger)
}

// Runner builds a pipeline runner recording into the configured database.
func (a *App) Runner() *pipeline.Runner {
	return pipeline.NewRunner(system.New(), uuid.New(), a.db, a.cfg.Session.ID, a.logger)
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.closePartial()
	// Best effort; syncing stderr fails on some platforms.
	_ = a.logger.Sync()
}

func (a *App) closePartial() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("error closing database", zap.Error(err))
		}
		a.db = nil
	}
	if closer, ok := a.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	a.publisher = nil
	if a.invalidator != nil {
		if err := a.invalidator.Close(); err != nil {
			a.logger.Warn("error closing cdn invalidator", zap.Error(err))
		}
		a.invalidator = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing object store", zap.Error(err))
		}
		a.store = nil
	}
}
