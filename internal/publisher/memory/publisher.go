// Package memory contains an in-memory deploy event recorder for tests.
package memory

import (
	"context"
	"sync"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/syncer"
)

// Publisher stores published deploy events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []syncer.DeployEvent
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event.
func (p *Publisher) Publish(_ context.Context, event syncer.DeployEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the recorded publishes.
func (p *Publisher) Events() []syncer.DeployEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]syncer.DeployEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }
