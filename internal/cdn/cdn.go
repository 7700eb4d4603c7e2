// Package cdn abstracts cache invalidation after a deployment.
package cdn

import "context"

// Invalidator purges cached copies of paths matching the pattern.
type Invalidator interface {
	Invalidate(ctx context.Context, pathPattern string) error
	Close() error
}

// NoOpInvalidator satisfies Invalidator without touching any CDN. Used when
// no CDN sits in front of the bucket.
type NoOpInvalidator struct{}

// Invalidate does nothing.
func (NoOpInvalidator) Invalidate(context.Context, string) error { return nil }

// Close does nothing.
func (NoOpInvalidator) Close() error { return nil }
