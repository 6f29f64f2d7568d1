// Package fraud implements the rule-based fraud detector. Rules are
// independent pure predicates run in fixed order; every rule that fires
// reports its own flags and no rule suppresses another, so a claim can
// accumulate many flags in a single pass.
package fraud

import (
	"github.com/bvsbharat/claimspilot/internal/model"
)

// Rule is a single fraud check. It inspects the structured claim and the
// raw document text and returns zero or more flags. Rules must be pure:
// no I/O, no shared state, no mutation of their inputs.
type Rule struct {
	Name  string
	Check func(data *model.ExtractedData, rawText string) []model.FraudFlag
}

// Detector runs a fixed battery of rules against a claim
type Detector struct {
	rules []Rule
}

// NewDetector creates a detector with the standard rule battery.
func NewDetector() *Detector {
	return &Detector{rules: []Rule{
		{Name: "late_reporting", Check: checkLateReporting},
		{Name: "inconsistent_story", Check: checkInconsistentStory},
		{Name: "suspicious_pattern", Check: checkSuspiciousPatterns},
		{Name: "soft_tissue_only", Check: checkSoftTissueOnly},
		{Name: "excessive_injuries", Check: checkExcessiveInjuries},
	}}
}

// Register appends a rule to the battery. Existing rule semantics are
// unaffected; order of registration is order of evaluation.
func (d *Detector) Register(rule Rule) {
	d.rules = append(d.rules, rule)
}

// Detect runs every rule and returns the concatenated flags in rule order.
// There is no early exit and no deduplication: downstream routing treats
// many medium-confidence flags as seriously as few high-confidence ones.
func (d *Detector) Detect(data *model.ExtractedData, rawText string) []model.FraudFlag {
	var flags []model.FraudFlag
	for _, rule := range d.rules {
		flags = append(flags, rule.Check(data, rawText)...)
	}
	return flags
}
