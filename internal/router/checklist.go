package router

import (
	"fmt"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// Checklist builds the investigation checklist for a routed claim from the
// signals that fired: incident-type standard items first, then injury,
// attorney, subrogation, and fraud items. One fraud item per distinct flag
// type regardless of how many flags of that type fired.
func Checklist(data *model.ExtractedData, flags []model.FraudFlag) []string {
	checklist := []string{
		"Review all submitted documentation",
		"Verify policy coverage and limits",
		"Contact insured for statement",
	}

	if data != nil {
		switch data.IncidentType {
		case model.ClaimTypeAuto:
			checklist = append(checklist,
				"Obtain police report",
				"Inspect vehicle damage",
			)
		case model.ClaimTypeProperty:
			checklist = append(checklist,
				"Schedule property inspection",
				"Review photos and damage assessment",
			)
		case model.ClaimTypeCommercial:
			checklist = append(checklist,
				"Review business interruption documentation",
				"Analyze financial records",
			)
		}

		if len(data.Injuries) > 0 {
			checklist = append(checklist, "Verify medical records")
			if len(data.Injuries) > 1 {
				checklist = append(checklist, "Coordinate with multiple medical providers")
			}
		}
		if data.AttorneyInvolved {
			checklist = append(checklist, "Request legal correspondence")
		}
		if data.SubrogationPotential() {
			checklist = append(checklist, "Identify third-party insurer")
		}
	}

	if len(flags) > 0 {
		checklist = append(checklist, "Conduct detailed fraud investigation")
		seen := make(map[string]bool)
		for _, f := range flags {
			if seen[f.Type] {
				continue
			}
			seen[f.Type] = true
			checklist = append(checklist, fmt.Sprintf("Investigate fraud indicator: %s", f.Type))
		}
	}

	return checklist
}
