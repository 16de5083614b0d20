package core

import (
	"context"
	"time"
)

// =============================================================================
// Oracle Port
// =============================================================================

// Oracle is an external analysis service that answers a prompt for a role.
// Implementations hide the transport (HTTP, subprocess, in-process).
type Oracle interface {
	// Name returns the transport identifier (e.g., "a2a", "exec", "stub").
	Name() string

	// Ping checks if the oracle is reachable.
	Ping(ctx context.Context) error

	// Execute sends one request and returns the raw answer.
	Execute(ctx context.Context, req OracleRequest) (*OracleResult, error)
}

// OracleRequest is one call to an oracle.
type OracleRequest struct {
	Role     string
	Prompt   string
	Round    int
	Document string
	// Prior is set for discussion rounds.
	Prior *PriorContext
}

// OracleResult is the raw answer of an oracle.
type OracleResult struct {
	Output   string
	Duration time.Duration
}

// =============================================================================
// Report Store Port
// =============================================================================

// ReportStore persists finished analyses.
type ReportStore interface {
	// Save stores a report; the ID must already be set.
	Save(ctx context.Context, report *StoredReport) error

	// Get loads a report by ID.
	Get(ctx context.Context, id string) (*StoredReport, error)

	// List returns summaries, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]ReportSummary, error)

	// Delete removes a report.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
