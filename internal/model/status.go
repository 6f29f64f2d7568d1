package model

import "fmt"

// Status is the claim lifecycle state
type Status string

const (
	StatusUploaded       Status = "uploaded"
	StatusExtracting     Status = "extracting"
	StatusScoring        Status = "scoring"
	StatusFraudDetection Status = "fraud_detection"
	StatusRouting        Status = "routing"
	StatusAssigned       Status = "assigned"
	StatusAutoApproved   Status = "auto_approved"
	StatusSIUQueued      Status = "siu_queued"
	StatusUnassigned     Status = "unassigned"
	StatusInProgress     Status = "in_progress"
	StatusReview         Status = "review"
	StatusCompleted      Status = "completed"
	StatusClosed         Status = "closed"
)

var terminalStatuses = map[Status]bool{
	StatusAutoApproved: true,
	StatusCompleted:    true,
	StatusClosed:       true,
}

// Pipeline transitions are one-directional. Any non-terminal status may
// additionally move to review on stage failure, and review may be patched
// by an operator override (validated separately).
var validStatusTransitions = map[Status]map[Status]bool{
	StatusUploaded: {
		StatusExtracting: true,
	},
	StatusExtracting: {
		StatusScoring: true,
	},
	StatusScoring: {
		StatusFraudDetection: true,
	},
	StatusFraudDetection: {
		StatusRouting: true,
	},
	StatusRouting: {
		StatusAssigned:     true,
		StatusAutoApproved: true,
		StatusSIUQueued:    true,
		StatusUnassigned:   true,
	},
	StatusAssigned: {
		StatusInProgress: true,
	},
	StatusSIUQueued: {
		StatusInProgress: true,
	},
	StatusUnassigned: {
		StatusAssigned: true, // escalation resolved by manual assignment
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusReview:    true,
	},
	StatusReview: {
		StatusClosed: true,
	},
}

func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// ValidateTransition checks an automated pipeline transition. Every
// non-terminal state may fail into review, so that edge is always allowed.
func ValidateTransition(from, to Status) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	if to == StatusReview {
		return nil
	}
	allowed, ok := validStatusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid status transition: %q → %q", from, to)
	}
	return nil
}

// ValidateOverride checks an operator-driven status patch. Overrides are
// out-of-band administrative moves: they may reopen review or reassign, but
// never resurrect a closed or completed claim.
func ValidateOverride(from, to Status) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot override terminal status %q", from)
	}
	switch to {
	case StatusReview, StatusAssigned, StatusInProgress, StatusClosed:
		return nil
	}
	return fmt.Errorf("status %q is not a valid override target", to)
}
