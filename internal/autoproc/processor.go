// Package autoproc implements the auto-approval gate for small claims.
package autoproc

import (
	"fmt"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// Decision is the gate outcome for one claim
type Decision struct {
	Approve bool
	Reason  string
}

// Processor decides whether a claim can bypass human review entirely.
// The gate is deliberately conservative: deferring a genuinely simple claim
// costs an adjuster a few minutes, auto-approving a risky one costs real
// money, so every condition must hold.
type Processor struct {
	ceiling float64
}

// NewProcessor creates a gate with the given small-claim ceiling.
func NewProcessor(ceiling float64) *Processor {
	return &Processor{ceiling: ceiling}
}

// Decide returns approve only when the claim amount is known and below the
// ceiling, no injuries are recorded, and not a single fraud flag of any
// severity is present. Anything else defers to the human routing path.
func (p *Processor) Decide(data *model.ExtractedData, flags []model.FraudFlag) Decision {
	if len(flags) > 0 {
		return Decision{Approve: false, Reason: fmt.Sprintf("%d fraud flag(s) present", len(flags))}
	}
	if data == nil || data.ClaimAmount <= 0 {
		return Decision{Approve: false, Reason: "claim amount unknown"}
	}
	if data.ClaimAmount >= p.ceiling {
		return Decision{Approve: false, Reason: fmt.Sprintf("claim amount $%.2f at or above auto-approval ceiling $%.2f", data.ClaimAmount, p.ceiling)}
	}
	if len(data.Injuries) > 0 {
		return Decision{Approve: false, Reason: fmt.Sprintf("%d injury(ies) recorded", len(data.Injuries))}
	}
	return Decision{
		Approve: true,
		Reason:  fmt.Sprintf("Auto-approved: $%.2f claim under $%.2f ceiling with no injuries and no fraud indicators", data.ClaimAmount, p.ceiling),
	}
}

// AutoApprovalDecision builds the routing record attached to an
// auto-approved claim: a synthetic assignee plus a short verification
// checklist so the approval stays auditable.
func AutoApprovalDecision(data *model.ExtractedData, reason string) *model.RoutingDecision {
	return &model.RoutingDecision{
		AssignedTo: "Auto-Processor System",
		AdjusterID: "AUTO_SYSTEM",
		Priority:   model.PriorityLow,
		Reason:     reason,
		// A verified auto approval takes about half an hour of spot checks.
		EstimatedWorkloadHours: 0.5,
		InvestigationChecklist: []string{
			"Quick review of documentation",
			"Verify claim amount",
			"Approve payment",
		},
	}
}
