package model

import "time"

// ExperienceLevel grades an adjuster's seniority
type ExperienceLevel string

const (
	ExperienceJunior ExperienceLevel = "junior"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
)

// SpecializationSIU marks adjusters who work Special Investigation Unit
// referrals. It lives in the same tag space as incident types.
const SpecializationSIU = "siu"

// Adjuster is a routing target. CurrentWorkload is the only mutable shared
// field in the engine and is written solely by the routing commit step.
type Adjuster struct {
	AdjusterID string `json:"adjuster_id" yaml:"adjuster_id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty"`

	Specializations []string        `json:"specializations" yaml:"specializations"`
	ExperienceLevel ExperienceLevel `json:"experience_level" yaml:"experience_level"`
	YearsExperience int             `json:"years_experience" yaml:"years_experience"`

	MaxClaimAmount      float64 `json:"max_claim_amount" yaml:"max_claim_amount"`
	MaxConcurrentClaims int     `json:"max_concurrent_claims" yaml:"max_concurrent_claims"`
	CurrentWorkload     int     `json:"current_workload" yaml:"current_workload"`

	Territories []string `json:"territories,omitempty" yaml:"territories,omitempty"`
	Available   bool     `json:"available" yaml:"available"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// HasCapacity reports whether the adjuster can take one more assignment.
func (a *Adjuster) HasCapacity() bool {
	return a.Available && a.CurrentWorkload < a.MaxConcurrentClaims
}

// Specializes reports whether the adjuster carries the given tag.
func (a *Adjuster) Specializes(tag string) bool {
	for _, s := range a.Specializations {
		if s == tag {
			return true
		}
	}
	return false
}
