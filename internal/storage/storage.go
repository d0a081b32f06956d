// Package storage persists investigation runs: the run registry, the
// streamed audit trail, and the final state snapshot.
package storage

import (
	"context"

	"sleuth/internal/types"
)

// Storage is the persistence interface for investigation runs.
type Storage interface {
	// CreateRun registers a run before the first node executes.
	CreateRun(ctx context.Context, run types.RunSummary) error

	// AppendAuditEntries persists a batch of audit entries for the run.
	// Called after every node, so a crash mid-run still leaves a trail.
	AppendAuditEntries(ctx context.Context, runID string, entries []types.AuditEntry) error

	// SaveSnapshot stores the terminal state snapshot (JSON) and updates
	// the run's summary fields in the same transaction.
	SaveSnapshot(ctx context.Context, run types.RunSummary, snapshot []byte) error

	// GetRun returns one run's summary.
	GetRun(ctx context.Context, id string) (*types.RunSummary, error)

	// GetSnapshot returns a run's stored snapshot JSON, nil if none saved.
	GetSnapshot(ctx context.Context, id string) ([]byte, error)

	// GetAuditTrail returns a run's audit entries in insertion order.
	GetAuditTrail(ctx context.Context, runID string) ([]types.AuditEntry, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error)

	Close() error
}
