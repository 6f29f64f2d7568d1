// Package router matches deferred claims to adjusters. Fraud escalations
// bypass matching entirely; everything else is scored against the adjuster
// pool and committed by the caller in one transaction with the workload
// increment.
package router

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// Destination names where a routed claim ends up
type Destination string

const (
	DestinationAssigned   Destination = "assigned"
	DestinationSIU        Destination = "siu"
	DestinationUnassigned Destination = "unassigned"
)

// Outcome is a routing result. Decision is always populated; AdjusterID is
// empty for the unassigned escalation path and for an SIU queue with no
// free investigator.
type Outcome struct {
	Destination Destination
	Decision    *model.RoutingDecision
}

// Engine routes claims to adjusters
type Engine struct{}

// NewEngine creates a new routing engine
func NewEngine() *Engine {
	return &Engine{}
}

// Route picks a destination for a claim that was not auto-approved.
// The adjuster snapshot is read-only here; the caller commits the decision
// together with the workload increment and retries with a fresh snapshot
// if that commit loses the capacity race.
func (e *Engine) Route(data *model.ExtractedData, severity, complexity int, flags []model.FraudFlag, adjusters []model.Adjuster) Outcome {
	if triggering := escalatingFlags(flags); len(triggering) > 0 {
		return e.routeToSIU(data, flags, triggering, adjusters)
	}

	priority := Priority(severity, complexity, flags)
	eligible := e.filterEligible(data, adjusters)

	if len(eligible) == 0 {
		return Outcome{
			Destination: DestinationUnassigned,
			Decision: &model.RoutingDecision{
				Priority:               priority,
				Reason:                 "No eligible adjusters available, escalation required",
				InvestigationChecklist: Checklist(data, flags),
			},
		}
	}

	best := e.selectBest(data, complexity, eligible)

	return Outcome{
		Destination: DestinationAssigned,
		Decision: &model.RoutingDecision{
			AssignedTo:             best.Name,
			AdjusterID:             best.AdjusterID,
			Priority:               priority,
			Reason:                 e.routingReason(data, best, complexity),
			EstimatedWorkloadHours: EstimateHours(data, flags),
			InvestigationChecklist: Checklist(data, flags),
		},
	}
}

// escalatingFlags returns the fraud flags that force SIU routing.
func escalatingFlags(flags []model.FraudFlag) []model.FraudFlag {
	var out []model.FraudFlag
	for _, f := range flags {
		if f.Severity == model.FlagHigh || f.Severity == model.FlagCritical {
			out = append(out, f)
		}
	}
	return out
}

// routeToSIU bypasses normal matching. An available SIU investigator is
// assigned directly when one has capacity; otherwise the claim sits in the
// SIU queue unowned.
func (e *Engine) routeToSIU(data *model.ExtractedData, flags, triggering []model.FraudFlag, adjusters []model.Adjuster) Outcome {
	types := make([]string, 0, len(triggering))
	for _, f := range triggering {
		types = append(types, fmt.Sprintf("%s (%s)", f.Type, f.Severity))
	}
	reason := fmt.Sprintf("Fraud indicators detected, routing to Special Investigation Unit: %s", strings.Join(types, ", "))

	decision := &model.RoutingDecision{
		Priority:               model.PriorityUrgent,
		Reason:                 reason,
		EstimatedWorkloadHours: EstimateHours(data, flags),
		InvestigationChecklist: Checklist(data, flags),
	}

	for _, a := range sortedByID(adjusters) {
		if a.HasCapacity() && a.Specializes(model.SpecializationSIU) {
			decision.AssignedTo = a.Name
			decision.AdjusterID = a.AdjusterID
			break
		}
	}

	return Outcome{Destination: DestinationSIU, Decision: decision}
}

// filterEligible narrows the pool to adjusters who are available, have
// capacity, and can carry the claim amount. Specialization narrows further
// only when at least one specialization match exists; an unmatched incident
// type relaxes back to all otherwise-eligible adjusters rather than
// returning nobody.
func (e *Engine) filterEligible(data *model.ExtractedData, adjusters []model.Adjuster) []model.Adjuster {
	amount := 0.0
	incidentType := ""
	if data != nil {
		amount = data.ClaimAmount
		incidentType = string(data.IncidentType)
	}

	var eligible []model.Adjuster
	for _, a := range adjusters {
		if !a.HasCapacity() {
			continue
		}
		if a.MaxClaimAmount > 0 && amount > a.MaxClaimAmount {
			continue
		}
		eligible = append(eligible, a)
	}

	if incidentType == "" {
		return eligible
	}

	var specialized []model.Adjuster
	for _, a := range eligible {
		if a.Specializes(incidentType) {
			specialized = append(specialized, a)
		}
	}
	if len(specialized) > 0 {
		return specialized
	}
	return eligible
}

// selectBest scores every eligible adjuster and returns the winner.
// Ties break by lowest current workload, then by adjuster id, so routing
// is deterministic for identical inputs.
func (e *Engine) selectBest(data *model.ExtractedData, complexity int, eligible []model.Adjuster) model.Adjuster {
	type scored struct {
		adjuster model.Adjuster
		score    float64
	}

	results := make([]scored, 0, len(eligible))
	for _, a := range eligible {
		results = append(results, scored{adjuster: a, score: e.adjusterScore(data, complexity, a)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].adjuster.CurrentWorkload != results[j].adjuster.CurrentWorkload {
			return results[i].adjuster.CurrentWorkload < results[j].adjuster.CurrentWorkload
		}
		return results[i].adjuster.AdjusterID < results[j].adjuster.AdjusterID
	})

	return results[0].adjuster
}

// adjusterScore is a weighted sum of independent contributions:
// specialization match (40), experience-to-complexity fit (up to 30),
// inverse workload (up to 30), and normalized amount headroom as a small
// tiebreak (up to 5).
func (e *Engine) adjusterScore(data *model.ExtractedData, complexity int, a model.Adjuster) float64 {
	score := 0.0

	if data != nil && data.IncidentType != "" && a.Specializes(string(data.IncidentType)) {
		score += 40
	}

	score += experienceFit(complexity, a.ExperienceLevel)

	if a.MaxConcurrentClaims > 0 {
		ratio := float64(a.CurrentWorkload) / float64(a.MaxConcurrentClaims)
		score += 30 * (1 - ratio)
	}

	if data != nil && a.MaxClaimAmount > 0 {
		headroom := (a.MaxClaimAmount - data.ClaimAmount) / a.MaxClaimAmount
		score += 5 * math.Max(0, math.Min(1, headroom))
	}

	return score
}

var experienceRank = map[model.ExperienceLevel]int{
	model.ExperienceJunior: 0,
	model.ExperienceMid:    1,
	model.ExperienceSenior: 2,
}

// experienceFit favors the level matching the complexity band: junior for
// complexity under 40, mid for 40-70, senior above 70. The bonus drops by
// 15 points per level of distance from the ideal band.
func experienceFit(complexity int, level model.ExperienceLevel) float64 {
	ideal := 0
	switch {
	case complexity > 70:
		ideal = 2
	case complexity >= 40:
		ideal = 1
	}

	distance := ideal - experienceRank[level]
	if distance < 0 {
		distance = -distance
	}
	fit := 30 - 15*distance
	if fit < 0 {
		fit = 0
	}
	return float64(fit)
}

// Priority derives handling urgency from the severity and complexity bands.
// Any fraud flag at all bumps the claim to urgent.
func Priority(severity, complexity int, flags []model.FraudFlag) model.Priority {
	switch {
	case severity >= 80 || len(flags) > 0:
		return model.PriorityUrgent
	case severity >= 60 || complexity >= 70:
		return model.PriorityHigh
	case severity >= 30:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// EstimateHours predicts adjuster effort: a 5 hour base plus 2 per injury,
// 1.5 per party beyond the second, 3 per fraud flag, and 5 when an
// attorney is involved.
func EstimateHours(data *model.ExtractedData, flags []model.FraudFlag) float64 {
	hours := 5.0
	if data != nil {
		hours += float64(len(data.Injuries)) * 2.0
		if extra := len(data.Parties) - 2; extra > 0 {
			hours += float64(extra) * 1.5
		}
		if data.AttorneyInvolved {
			hours += 5.0
		}
	}
	hours += float64(len(flags)) * 3.0
	return math.Round(hours*10) / 10
}

// routingReason explains the match in the order the factors were weighed.
func (e *Engine) routingReason(data *model.ExtractedData, a model.Adjuster, complexity int) string {
	var reasons []string

	if data != nil && data.IncidentType != "" && a.Specializes(string(data.IncidentType)) {
		reasons = append(reasons, fmt.Sprintf("Specialist in %s claims", data.IncidentType))
	}
	if complexity > 70 {
		reasons = append(reasons, fmt.Sprintf("%s adjuster for high-complexity case", capitalize(string(a.ExperienceLevel))))
	} else {
		reasons = append(reasons, fmt.Sprintf("Appropriate experience level (%s)", a.ExperienceLevel))
	}
	if a.CurrentWorkload < 5 {
		reasons = append(reasons, "Low current workload")
	} else if a.CurrentWorkload < a.MaxConcurrentClaims {
		reasons = append(reasons, "Available capacity")
	}

	return strings.Join(reasons, " | ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedByID(adjusters []model.Adjuster) []model.Adjuster {
	out := make([]model.Adjuster, len(adjusters))
	copy(out, adjusters)
	sort.Slice(out, func(i, j int) bool { return out[i].AdjusterID < out[j].AdjusterID })
	return out
}
