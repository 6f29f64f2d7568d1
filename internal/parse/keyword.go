package parse

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// KeywordParser extracts fields from labeled claim documents with regular
// expressions. It understands the common "Label: value" bundle layout and
// infers the incident type and injuries from keywords when no label exists.
type KeywordParser struct{}

// NewKeywordParser creates a keyword parser.
func NewKeywordParser() *KeywordParser {
	return &KeywordParser{}
}

var (
	claimNumberRe  = regexp.MustCompile(`(?im)^claim\s*(?:number|#|no\.?)\s*[:#]?\s*(\S+)`)
	policyNumberRe = regexp.MustCompile(`(?im)^policy\s*(?:number|#|no\.?)\s*[:#]?\s*(\S+)`)
	amountRe       = regexp.MustCompile(`(?im)(?:claim\s*amount|amount\s*claimed|estimated\s*(?:damage|loss)s?)\s*[:#]?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	incidentDateRe = regexp.MustCompile(`(?im)^(?:incident|loss|accident)\s*date\s*[:#]?\s*([0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`)
	reportDateRe   = regexp.MustCompile(`(?im)^(?:report(?:ed)?|filing)\s*date\s*[:#]?\s*([0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`)
	faultRe        = regexp.MustCompile(`(?im)^fault\s*(?:determination)?\s*[:#]?\s*(clear|disputed|multi-party|shared)`)
	partyRe        = regexp.MustCompile(`(?im)^(claimant|insured|third[\s_-]?party|witness)\s*[:#]\s*(.+)$`)
	attorneyRe     = regexp.MustCompile(`(?i)attorney|legal\s+(?:counsel|representation)|law\s+firm`)
)

// incidentKeywords maps trigger words to claim types, checked in order so
// the more specific lines of business win over plain auto.
var incidentKeywords = []struct {
	claimType model.ClaimType
	words     []string
}{
	{model.ClaimTypeCommercial, []string{"commercial", "business interruption", "fleet"}},
	{model.ClaimTypeLiability, []string{"liability", "slip and fall", "premises"}},
	{model.ClaimTypeInjury, []string{"bodily injury", "injury claim", "medical claim"}},
	{model.ClaimTypeProperty, []string{"property damage", "water damage", "fire damage", "roof", "burglary"}},
	{model.ClaimTypeAuto, []string{"auto", "vehicle", "collision", "rear-end", "fender"}},
}

// injuryKeywords maps phrases to severities, scanned most severe first.
var injuryKeywords = []struct {
	severity model.InjurySeverity
	words    []string
}{
	{model.InjuryFatal, []string{"fatal", "fatality", "deceased", "died"}},
	{model.InjuryCritical, []string{"critical condition", "life-threatening", "icu"}},
	{model.InjurySerious, []string{"fracture", "broken", "surgery", "hospitalized"}},
	{model.InjuryModerate, []string{"concussion", "laceration", "stitches"}},
	{model.InjuryMinor, []string{"whiplash", "bruise", "sprain", "strain", "sore"}},
}

// Parse never fails; text with no recognizable fields yields an empty
// record, which the pipeline treats as an input error.
func (p *KeywordParser) Parse(_ context.Context, rawText string) (*model.ExtractedData, error) {
	data := &model.ExtractedData{}

	if m := claimNumberRe.FindStringSubmatch(rawText); m != nil {
		data.ClaimNumber = m[1]
	}
	if m := policyNumberRe.FindStringSubmatch(rawText); m != nil {
		data.PolicyNumber = m[1]
	}
	if m := amountRe.FindStringSubmatch(rawText); m != nil {
		if amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			data.ClaimAmount = amount
		}
	}
	if m := incidentDateRe.FindStringSubmatch(rawText); m != nil {
		data.IncidentDate = parseDate(m[1])
	}
	if m := reportDateRe.FindStringSubmatch(rawText); m != nil {
		data.ReportDate = parseDate(m[1])
	}
	if m := faultRe.FindStringSubmatch(rawText); m != nil {
		data.FaultDetermination = strings.ToLower(m[1])
	}
	data.AttorneyInvolved = attorneyRe.MatchString(rawText)

	for _, m := range partyRe.FindAllStringSubmatch(rawText, -1) {
		role := strings.ToLower(m[1])
		role = strings.NewReplacer(" ", "_", "-", "_").Replace(role)
		data.Parties = append(data.Parties, model.Party{
			Name: strings.TrimSpace(m[2]),
			Role: role,
		})
	}

	lower := strings.ToLower(rawText)
	for _, group := range incidentKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				data.IncidentType = group.claimType
				break
			}
		}
		if data.IncidentType != "" {
			break
		}
	}

	for _, group := range injuryKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				data.Injuries = append(data.Injuries, model.Injury{
					Person:      injuredPerson(data),
					Severity:    group.severity,
					Description: w,
				})
				break
			}
		}
	}

	// First non-empty line stands in for a description when nothing better
	// is labeled.
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			data.Description = line
			break
		}
	}

	return data, nil
}

func injuredPerson(data *model.ExtractedData) string {
	for _, p := range data.Parties {
		if p.Role == "claimant" {
			return p.Name
		}
	}
	return "unknown"
}

func parseDate(s string) *time.Time {
	for _, layout := range []string{"2006-01-02", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
