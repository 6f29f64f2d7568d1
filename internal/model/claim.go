package model

import "time"

// ClaimType categorizes the line of business an incident falls under
type ClaimType string

const (
	ClaimTypeAuto       ClaimType = "auto"
	ClaimTypeProperty   ClaimType = "property"
	ClaimTypeInjury     ClaimType = "injury"
	ClaimTypeCommercial ClaimType = "commercial"
	ClaimTypeLiability  ClaimType = "liability"
)

// Priority is the handling urgency assigned by routing
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// InjurySeverity orders reported injuries from least to most severe
type InjurySeverity string

const (
	InjuryMinor    InjurySeverity = "minor"
	InjuryModerate InjurySeverity = "moderate"
	InjurySerious  InjurySeverity = "serious"
	InjuryCritical InjurySeverity = "critical"
	InjuryFatal    InjurySeverity = "fatal"
)

// injurySeverityRank is used to find the worst injury on a claim.
// Unknown values rank below minor so malformed input never inflates severity.
var injurySeverityRank = map[InjurySeverity]int{
	InjuryMinor:    1,
	InjuryModerate: 2,
	InjurySerious:  3,
	InjuryCritical: 4,
	InjuryFatal:    5,
}

// Rank returns the numeric ordering of an injury severity (0 for unknown).
func (s InjurySeverity) Rank() int {
	return injurySeverityRank[s]
}

// Party is a person or entity involved in the incident
type Party struct {
	Name    string `json:"name"`
	Role    string `json:"role"` // claimant, insured, third_party, witness
	Contact string `json:"contact,omitempty"`
	Address string `json:"address,omitempty"`
	Insurer string `json:"insurer,omitempty"` // third-party carrier, if known
}

// Location is where the incident occurred
type Location struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// Injury is a single reported injury
type Injury struct {
	Person      string         `json:"person"`
	Severity    InjurySeverity `json:"severity"`
	Description string         `json:"description"`
}

// ExtractedData holds the structured fields supplied by the extraction
// collaborator. Every field is optional; scoring treats absence as zero
// weight rather than an error.
type ExtractedData struct {
	ClaimNumber        string     `json:"claim_number,omitempty"`
	PolicyNumber       string     `json:"policy_number,omitempty"`
	ClaimAmount        float64    `json:"claim_amount,omitempty"`
	IncidentType       ClaimType  `json:"incident_type,omitempty"`
	IncidentDate       *time.Time `json:"incident_date,omitempty"`
	ReportDate         *time.Time `json:"report_date,omitempty"`
	Parties            []Party    `json:"parties,omitempty"`
	Location           *Location  `json:"location,omitempty"`
	Injuries           []Injury   `json:"injuries,omitempty"`
	Description        string     `json:"description,omitempty"`
	FaultDetermination string     `json:"fault_determination,omitempty"` // clear, disputed, multi-party
	AttorneyInvolved   bool       `json:"attorney_involved,omitempty"`
}

// Empty reports whether the record carries no usable signal at all.
// Such claims are input errors and go to review instead of scoring.
func (d *ExtractedData) Empty() bool {
	if d == nil {
		return true
	}
	return d.ClaimAmount == 0 &&
		len(d.Parties) == 0 &&
		len(d.Injuries) == 0 &&
		d.Description == "" &&
		d.IncidentType == ""
}

// WorstInjury returns the most severe injury present, or nil when none.
func (d *ExtractedData) WorstInjury() *Injury {
	if d == nil {
		return nil
	}
	var worst *Injury
	for i := range d.Injuries {
		if worst == nil || d.Injuries[i].Severity.Rank() > worst.Severity.Rank() {
			worst = &d.Injuries[i]
		}
	}
	return worst
}

// SubrogationPotential reports whether recovery from a third party looks
// viable: fault is clearly determined and a third party with an identifiable
// insurer is on record.
func (d *ExtractedData) SubrogationPotential() bool {
	if d == nil || d.FaultDetermination != "clear" {
		return false
	}
	for _, p := range d.Parties {
		if p.Role == "third_party" && p.Insurer != "" {
			return true
		}
	}
	return false
}

// FlagSeverity grades how strongly an indicator suggests fraud
type FlagSeverity string

const (
	FlagLow      FlagSeverity = "low"
	FlagMedium   FlagSeverity = "medium"
	FlagHigh     FlagSeverity = "high"
	FlagCritical FlagSeverity = "critical"
)

// FraudFlag is a single typed, evidenced suspicion signal.
// Flags are append-only within a processing pass; a claim may carry many.
type FraudFlag struct {
	Type       string       `json:"type"`
	Severity   FlagSeverity `json:"severity"`
	Confidence float64      `json:"confidence"` // 0.0-1.0
	Evidence   string       `json:"evidence"`
}

// RoutingDecision records where a claim was sent and why.
// Written exactly once per processing pass.
type RoutingDecision struct {
	AssignedTo             string   `json:"assigned_to,omitempty"`
	AdjusterID             string   `json:"adjuster_id,omitempty"`
	Priority               Priority `json:"priority"`
	Reason                 string   `json:"reason"`
	EstimatedWorkloadHours float64  `json:"estimated_workload_hours,omitempty"`
	InvestigationChecklist []string `json:"investigation_checklist,omitempty"`
}

// Assigned reports whether the decision names a concrete adjuster.
func (r *RoutingDecision) Assigned() bool {
	return r != nil && r.AdjusterID != ""
}

// Claim is the unit of work moving through the triage pipeline
type Claim struct {
	ClaimID        string `json:"claim_id"`
	SourceFilename string `json:"source_filename,omitempty"`
	Source         string `json:"source,omitempty"` // upload, watch, seed

	Status Status `json:"status"`

	ExtractedData *ExtractedData `json:"extracted_data,omitempty"`
	RawText       string         `json:"raw_text,omitempty"`

	SeverityScore   *int `json:"severity_score,omitempty"`   // 0-100, nil until scored
	ComplexityScore *int `json:"complexity_score,omitempty"` // 0-100, nil until scored

	FraudFlags      []FraudFlag      `json:"fraud_flags,omitempty"`
	RoutingDecision *RoutingDecision `json:"routing_decision,omitempty"`

	TaskID string `json:"task_id,omitempty"`

	ProcessingTimeSeconds float64   `json:"processing_time_seconds,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Amount returns the claim amount, zero when extraction is missing.
func (c *Claim) Amount() float64 {
	if c.ExtractedData == nil {
		return 0
	}
	return c.ExtractedData.ClaimAmount
}
