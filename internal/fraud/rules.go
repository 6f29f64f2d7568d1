package fraud

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bvsbharat/claimspilot/internal/model"
)

const (
	// Reporting later than this many days after the incident raises a flag.
	lateReportingThresholdDays = 14
	// Confidence plateaus at 45 days and beyond.
	lateReportingPlateauDays = 45
)

// checkLateReporting flags claims reported well after the incident.
// Confidence scales linearly from 0.3 at the 14-day threshold to 0.95 at
// 45+ days. Severity is medium up to 30 days, high beyond.
func checkLateReporting(data *model.ExtractedData, _ string) []model.FraudFlag {
	if data == nil || data.IncidentDate == nil || data.ReportDate == nil {
		return nil
	}

	days := int(data.ReportDate.Sub(*data.IncidentDate).Hours() / 24)
	if days <= lateReportingThresholdDays {
		return nil
	}

	span := float64(lateReportingPlateauDays - lateReportingThresholdDays)
	confidence := 0.3 + float64(days-lateReportingThresholdDays)*(0.65/span)
	if confidence > 0.95 {
		confidence = 0.95
	}

	severity := model.FlagMedium
	if days > 30 {
		severity = model.FlagHigh
	}

	return []model.FraudFlag{{
		Type:       "late_reporting",
		Severity:   severity,
		Confidence: confidence,
		Evidence:   fmt.Sprintf("Claim reported %d days after incident (threshold: %d days)", days, lateReportingThresholdDays),
	}}
}

// contradictionPairs are statements that cannot both be true of the same
// incident. The first term is matched against the structured description,
// the second against the raw document text.
var contradictionPairs = [][2]string{
	{"stopped", "moving"},
	{"no injuries", "injury"},
	{"clear visibility", "couldn't see"},
	{"sober", "drinking"},
}

// checkInconsistentStory raises one flag per matched contradiction pair.
// Multiple independent pairs produce multiple flags.
func checkInconsistentStory(data *model.ExtractedData, rawText string) []model.FraudFlag {
	if data == nil {
		return nil
	}
	description := strings.ToLower(data.Description)
	text := strings.ToLower(rawText)

	var flags []model.FraudFlag
	for _, pair := range contradictionPairs {
		if strings.Contains(description, pair[0]) && strings.Contains(text, pair[1]) {
			flags = append(flags, model.FraudFlag{
				Type:       "inconsistent_story",
				Severity:   model.FlagMedium,
				Confidence: 0.6,
				Evidence:   fmt.Sprintf("Contradicting statements found: %q vs %q", pair[0], pair[1]),
			})
		}
	}
	return flags
}

// suspiciousPatterns are phrasings that correlate with staged or inflated
// claims. Each match is its own flag.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`pre-existing`),
	regexp.MustCompile(`previous.*accident`),
	regexp.MustCompile(`similar.*claim`),
	regexp.MustCompile(`multiple.*injuries`),
	regexp.MustCompile(`witness.*unavailable`),
}

func checkSuspiciousPatterns(_ *model.ExtractedData, rawText string) []model.FraudFlag {
	text := strings.ToLower(rawText)

	var flags []model.FraudFlag
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(text) {
			flags = append(flags, model.FraudFlag{
				Type:       "suspicious_pattern",
				Severity:   model.FlagLow,
				Confidence: 0.5,
				Evidence:   fmt.Sprintf("Suspicious pattern detected: %s", pattern.String()),
			})
		}
	}
	return flags
}

var softTissueKeywords = []string{"whiplash", "strain", "sprain", "soft tissue"}

// checkSoftTissueOnly fires once when every reported injury is soft tissue.
// These injuries are hard to verify objectively.
func checkSoftTissueOnly(data *model.ExtractedData, _ string) []model.FraudFlag {
	if data == nil || len(data.Injuries) == 0 {
		return nil
	}
	for _, injury := range data.Injuries {
		desc := strings.ToLower(injury.Description)
		matched := false
		for _, kw := range softTissueKeywords {
			if strings.Contains(desc, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
	}
	return []model.FraudFlag{{
		Type:       "soft_tissue_only",
		Severity:   model.FlagLow,
		Confidence: 0.4,
		Evidence:   "Only soft tissue injuries reported (difficult to verify)",
	}}
}

// checkExcessiveInjuries fires once when more than five injuries are
// reported on a single claim.
func checkExcessiveInjuries(data *model.ExtractedData, _ string) []model.FraudFlag {
	if data == nil || len(data.Injuries) <= 5 {
		return nil
	}
	return []model.FraudFlag{{
		Type:       "excessive_injuries",
		Severity:   model.FlagMedium,
		Confidence: 0.5,
		Evidence:   fmt.Sprintf("%d injuries reported (unusually high)", len(data.Injuries)),
	}}
}
