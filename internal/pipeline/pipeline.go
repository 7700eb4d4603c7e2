// Package pipeline sequences the mirror stages and records their outcomes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/database"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/metrics"
)

// Stage is one unit of pipeline work.
type Stage interface {
	Name() string
	Run(ctx context.Context) (any, error)
}

// Wrap adapts a typed stage function into a Stage.
func Wrap[T any](name string, fn func(context.Context) (T, error)) Stage {
	return wrapped[T]{name: name, fn: fn}
}

type wrapped[T any] struct {
	name string
	fn   func(context.Context) (T, error)
}

func (w wrapped[T]) Name() string { return w.name }

func (w wrapped[T]) Run(ctx context.Context) (any, error) {
	out, err := w.fn(ctx)
	return out, err
}

// StageResult captures one stage's outcome.
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Run is the record of one pipeline execution.
type Run struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	Outcome    string        `json:"outcome"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageResult `json:"stages"`
	Error      string        `json:"error,omitempty"`
}

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Runner executes stages in order, stopping at the first failure, and
// records the run in the database.
type Runner struct {
	clock     Clock
	ids       IDGenerator
	db        database.Provider
	sessionID string
	logger    *zap.Logger
}

// NewRunner constructs a Runner. db may be the no-op provider.
func NewRunner(clock Clock, ids IDGenerator, db database.Provider, sessionID string, logger *zap.Logger) *Runner {
	if db == nil {
		db = database.NoOpProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		clock:     clock,
		ids:       ids,
		db:        db,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Execute runs the stages sequentially. A stage failure aborts the run;
// completed stages keep their results. The run record is persisted either
// way, and the stage error is returned to the caller.
func (r *Runner) Execute(ctx context.Context, stages ...Stage) (Run, error) {
	id, err := r.ids.NewID()
	if err != nil {
		return Run{}, fmt.Errorf("generate run id: %w", err)
	}
	run := Run{
		ID:        id,
		SessionID: r.sessionID,
		Outcome:   OutcomeSuccess,
		StartedAt: r.clock.Now(),
	}
	r.logger.Info("pipeline run started",
		zap.String("run_id", run.ID),
		zap.Int("stages", len(stages)),
	)

	var runErr error
	for _, stage := range stages {
		stageStart := r.clock.Now()
		output, err := stage.Run(ctx)
		duration := r.clock.Now().Sub(stageStart)
		metrics.ObserveStageDuration(stage.Name(), duration)

		result := StageResult{
			Name:     stage.Name(),
			Duration: duration,
			Output:   output,
		}
		if err != nil {
			result.Error = err.Error()
			run.Stages = append(run.Stages, result)
			run.Outcome = OutcomeFailure
			run.Error = err.Error()
			runErr = fmt.Errorf("stage %s: %w", stage.Name(), err)
			r.logger.Error("pipeline stage failed",
				zap.String("run_id", run.ID),
				zap.String("stage", stage.Name()),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			break
		}
		run.Stages = append(run.Stages, result)
		r.logger.Info("pipeline stage finished",
			zap.String("run_id", run.ID),
			zap.String("stage", stage.Name()),
			zap.Duration("duration", duration),
		)
	}
	run.FinishedAt = r.clock.Now()
	metrics.ObserveRun(run.Outcome)

	if _, err := r.db.RecordRun(ctx, toRecord(run)); err != nil {
		// Persistence problems must not mask a stage failure.
		r.logger.Error("record run failed", zap.String("run_id", run.ID), zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("record run: %w", err)
		}
	}
	return run, runErr
}

func toRecord(run Run) database.RunRecord {
	stages := make(map[string]any, len(run.Stages))
	for _, s := range run.Stages {
		stages[s.Name] = map[string]any{
			"duration_seconds": s.Duration.Seconds(),
			"output":           s.Output,
			"error":            s.Error,
		}
	}
	return database.RunRecord{
		ID:         run.ID,
		SessionID:  run.SessionID,
		Outcome:    run.Outcome,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Stages:     stages,
		Error:      run.Error,
	}
}
