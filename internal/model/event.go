package model

import "time"

// EventType classifies status events emitted by the pipeline
type EventType string

const (
	EventClaimUploaded     EventType = "claim_uploaded"
	EventClaimStatusUpdate EventType = "claim_status_update"
	EventClaimProcessed    EventType = "claim_processed"
	EventClaimFailed       EventType = "claim_failed"
	EventTaskUpdate        EventType = "task_update"
)

// Event is one best-effort notification per state transition. Delivery is
// at-most-once from the engine's perspective; dashboards must tolerate gaps.
type Event struct {
	EventID string    `json:"event_id"`
	Type    EventType `json:"type"`
	ClaimID string    `json:"claim_id,omitempty"`
	Status  Status    `json:"status,omitempty"`
	Message string    `json:"message"`

	SeverityScore   *int             `json:"severity_score,omitempty"`
	ComplexityScore *int             `json:"complexity_score,omitempty"`
	RoutingDecision *RoutingDecision `json:"routing_decision,omitempty"`

	At time.Time `json:"at"`
}
