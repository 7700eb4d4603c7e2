// Package database persists pipeline run records. The Provider interface
// decouples callers from Postgres so tests and credential-less environments
// can run with the no-op implementation.
package database

import (
	"context"
	"time"
)

// RunRecord is what gets stored for one pipeline run.
type RunRecord struct {
	ID         string    `db:"id"`
	SessionID  string    `db:"session_id"`
	Outcome    string    `db:"outcome"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`

	// Stages holds per-stage results keyed by stage name. Stored in a
	// JSONB column so stage result shapes can evolve freely.
	Stages map[string]any `db:"stages"`

	// Error is the failure message when Outcome is "failure".
	Error string `db:"error"`
}

// Provider is the persistence surface for pipeline runs.
type Provider interface {
	// RecordRun saves a completed run and returns its ID.
	RecordRun(ctx context.Context, record RunRecord) (string, error)

	// Close terminates the connection pool.
	Close() error
}

// NoOpProvider discards run records. Used when no database is configured.
type NoOpProvider struct{}

// RecordRun returns the record's own ID without persisting anything.
func (NoOpProvider) RecordRun(_ context.Context, record RunRecord) (string, error) {
	return record.ID, nil
}

// Close does nothing.
func (NoOpProvider) Close() error { return nil }
