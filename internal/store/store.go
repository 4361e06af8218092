// Package store persists aggregation run history. Two backends are
// provided: embedded SQLite for single-node use and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = eris.New("run not found")

// Run records one aggregation run for a subject.
type Run struct {
	ID         string        `json:"id"`
	Subject    model.Subject `json:"subject"`
	Status     string        `json:"status"`
	Collected  int           `json:"collected"`
	Kept       int           `json:"kept"`
	Submitted  int           `json:"submitted"`
	Report     string        `json:"report,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// CreateRun inserts a run in the running state and returns its ID.
	CreateRun(ctx context.Context, subject model.Subject) (*Run, error)
	// FinishRun records the terminal state and counters of a run.
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
