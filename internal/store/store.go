// Package store persists claims, adjusters, and tasks. The adjuster
// workload counter is the engine's only shared mutable resource; both
// implementations commit a routing decision and the matching workload
// increment as one atomic unit, and fail the whole commit when the
// capacity check loses a race.
package store

import (
	"context"
	"errors"

	"github.com/bvsbharat/claimspilot/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrWorkloadRace is returned when the guarded workload increment
	// matched no row: the adjuster filled up (or went unavailable) between
	// the routing snapshot and the commit. The caller retries against a
	// fresh snapshot.
	ErrWorkloadRace = errors.New("adjuster at capacity at commit time")
)

// Store is the persistence boundary of the decision engine
type Store interface {
	// Claims
	SaveClaim(ctx context.Context, claim *model.Claim) error
	GetClaim(ctx context.Context, claimID string) (*model.Claim, error)
	GetClaimByFilename(ctx context.Context, filename string) (*model.Claim, error)
	ListClaims(ctx context.Context, statuses ...model.Status) ([]model.Claim, error)

	// UpdateClaimStatus writes the new status and records the transition
	// (timestamp + message) in the same atomic unit.
	UpdateClaimStatus(ctx context.Context, claimID string, status model.Status, message string) error
	ListTransitions(ctx context.Context, claimID string) ([]Transition, error)

	// Adjusters
	SaveAdjuster(ctx context.Context, adjuster *model.Adjuster) error
	GetAdjuster(ctx context.Context, adjusterID string) (*model.Adjuster, error)
	ListAdjusters(ctx context.Context, availableOnly bool) ([]model.Adjuster, error)

	// CommitRouting atomically writes the routing decision, moves the claim
	// to status, records the transition, and increments the assigned
	// adjuster's workload under a capacity guard. Returns ErrWorkloadRace
	// (and persists nothing) if the guard fails. Decisions naming no real
	// adjuster (SIU queue without an investigator, unassigned escalation,
	// AUTO_SYSTEM) skip the increment but commit the rest identically.
	CommitRouting(ctx context.Context, claimID string, decision *model.RoutingDecision, status model.Status, message string) error

	// ReleaseAssignment decrements an adjuster's workload when their claim
	// reaches a terminal state. Never drops below zero.
	ReleaseAssignment(ctx context.Context, adjusterID string) error

	// Tasks
	SaveTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	GetTaskByClaim(ctx context.Context, claimID string) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) error

	Close() error
}

// Transition is one recorded claim status change
type Transition struct {
	ClaimID string       `json:"claim_id"`
	Status  model.Status `json:"status"`
	Message string       `json:"message"`
	At      int64        `json:"at"` // unix seconds
}
