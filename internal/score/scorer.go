package score

import (
	"github.com/bvsbharat/claimspilot/internal/model"
)

// Scorer calculates severity and complexity scores for a claim
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the severity and complexity of a claim from its extracted
// fields. Both results are in [0,100]. The function is pure: no I/O, no
// side effects, and missing fields contribute zero weight instead of
// failing. Scores are sums of independent weighted contributions, so two
// moderate factors can outrank one severe factor.
func (s *Scorer) Score(data *model.ExtractedData) (severity int, complexity int) {
	if data == nil {
		return 0, 0
	}
	severity = clamp(s.amountWeight(data) + s.injuryWeight(data) + s.multipleInjuredWeight(data))
	complexity = clamp(s.partiesWeight(data) +
		s.faultWeight(data) +
		s.attorneyWeight(data) +
		s.subrogationWeight(data) +
		s.incidentTypeWeight(data) +
		s.highValueWeight(data))
	return severity, complexity
}

// amountWeight buckets financial exposure (0-40 points). Bucket boundaries
// are inclusive at the lower edge so raising the amount never lowers the
// contribution.
func (s *Scorer) amountWeight(data *model.ExtractedData) int {
	amount := data.ClaimAmount
	switch {
	case amount <= 0:
		return 0
	case amount < 500:
		return 5
	case amount < 2_000:
		return 10
	case amount < 10_000:
		return 20
	case amount < 50_000:
		return 30
	case amount < 100_000:
		return 35
	default:
		return 40
	}
}

// injuryWeight contributes a fixed weight for the worst injury present
// (0-45 points). Each severity level has its own weight; none reported is
// zero.
func (s *Scorer) injuryWeight(data *model.ExtractedData) int {
	worst := data.WorstInjury()
	if worst == nil {
		return 0
	}
	switch worst.Severity {
	case model.InjuryFatal:
		return 45
	case model.InjuryCritical:
		return 36
	case model.InjurySerious:
		return 27
	case model.InjuryModerate:
		return 18
	case model.InjuryMinor:
		return 9
	default:
		return 0
	}
}

// multipleInjuredWeight adds 10 points when more than one party is injured.
func (s *Scorer) multipleInjuredWeight(data *model.ExtractedData) int {
	if len(data.Injuries) >= 2 {
		return 10
	}
	return 0
}

// partiesWeight buckets the number of distinct involved parties (0-20).
func (s *Scorer) partiesWeight(data *model.ExtractedData) int {
	n := len(data.Parties)
	switch {
	case n == 0:
		return 0
	case n <= 2:
		return 5
	case n <= 4:
		return 10
	default:
		return 20
	}
}

// faultWeight grades fault determination ambiguity (0-25).
func (s *Scorer) faultWeight(data *model.ExtractedData) int {
	switch data.FaultDetermination {
	case "clear":
		return 5
	case "disputed":
		return 15
	case "multi-party", "shared":
		return 25
	default:
		return 0
	}
}

func (s *Scorer) attorneyWeight(data *model.ExtractedData) int {
	if data.AttorneyInvolved {
		return 20
	}
	return 0
}

// subrogationWeight adds 15 points when third-party recovery is in play:
// the claim gains a whole recovery workstream alongside the loss itself.
func (s *Scorer) subrogationWeight(data *model.ExtractedData) int {
	if data.SubrogationPotential() {
		return 15
	}
	return 0
}

// incidentTypeWeight grades the handling difficulty of the line of
// business (0-20).
func (s *Scorer) incidentTypeWeight(data *model.ExtractedData) int {
	switch data.IncidentType {
	case model.ClaimTypeCommercial, model.ClaimTypeLiability:
		return 20
	case model.ClaimTypeInjury:
		return 12
	case model.ClaimTypeProperty:
		return 10
	case model.ClaimTypeAuto:
		return 8
	default:
		return 0
	}
}

// highValueWeight adds 15 points for claims at or above $1M; reserves,
// reinsurance and layered coverage make these structurally harder.
func (s *Scorer) highValueWeight(data *model.ExtractedData) int {
	if data.ClaimAmount >= 1_000_000 {
		return 15
	}
	return 0
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
