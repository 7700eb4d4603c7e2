// Package cloudcdn invalidates Google Cloud CDN caches fronting the
// deployment bucket.
package cloudcdn

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	compute "google.golang.org/api/compute/v1"
)

// Config identifies the load balancer whose cache is purged.
type Config struct {
	Project string
	URLMap  string
}

// Invalidator issues cache invalidation requests against a URL map.
type Invalidator struct {
	service *compute.Service
	cfg     Config
	logger  *zap.Logger
}

// New creates an Invalidator using Application Default Credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Invalidator, error) {
	if cfg.Project == "" || cfg.URLMap == "" {
		return nil, fmt.Errorf("cdn project and url map are required")
	}
	service, err := compute.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create compute service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{service: service, cfg: cfg, logger: logger}, nil
}

// Invalidate requests a cache purge for paths matching the pattern. The
// invalidation completes asynchronously on Google's side; we do not wait
// for the operation to finish.
func (i *Invalidator) Invalidate(ctx context.Context, pathPattern string) error {
	rule := &compute.CacheInvalidationRule{Path: pathPattern}
	op, err := i.service.UrlMaps.InvalidateCache(i.cfg.Project, i.cfg.URLMap, rule).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("invalidate %s on url map %s: %w", pathPattern, i.cfg.URLMap, err)
	}
	i.logger.Info("cdn invalidation requested",
		zap.String("path", pathPattern),
		zap.String("operation", op.Name),
	)
	return nil
}

// Close is a no-op; the compute service holds no persistent connections.
func (i *Invalidator) Close() error { return nil }
