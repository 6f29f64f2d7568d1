package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

func newProcessor(s store.Store) *Processor {
	return NewProcessor(s, events.NewBus(), model.EngineConfig{
		AutoApproveCeiling: 500,
		RouteRetries:       1,
	})
}

func seedAdjusters(t *testing.T, s store.Store, adjusters ...*model.Adjuster) {
	t.Helper()
	for _, a := range adjusters {
		require.NoError(t, s.SaveAdjuster(context.Background(), a))
	}
}

func uploaded(t *testing.T, s store.Store, id string, data *model.ExtractedData, rawText string) *model.Claim {
	t.Helper()
	claim := &model.Claim{
		ClaimID:       id,
		Status:        model.StatusUploaded,
		ExtractedData: data,
		RawText:       rawText,
	}
	require.NoError(t, s.SaveClaim(context.Background(), claim))
	return claim
}

func autoPool() []*model.Adjuster {
	return []*model.Adjuster{
		{
			AdjusterID: "ADJ-001", Name: "Jamie Fox", Available: true,
			Specializations: []string{"auto"}, ExperienceLevel: model.ExperienceJunior,
			MaxClaimAmount: 25000, MaxConcurrentClaims: 5,
		},
		{
			AdjusterID: "ADJ-002", Name: "Morgan Hale", Available: true,
			Specializations: []string{"auto", "injury"}, ExperienceLevel: model.ExperienceSenior,
			MaxClaimAmount: 500000, MaxConcurrentClaims: 5,
		},
		{
			AdjusterID: "ADJ-003", Name: "Riley Quinn", Available: true,
			Specializations: []string{model.SpecializationSIU}, ExperienceLevel: model.ExperienceSenior,
			MaxClaimAmount: 1000000, MaxConcurrentClaims: 3,
		},
	}
}

func TestSmallCleanClaimAutoApproved(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	claim := uploaded(t, s, "CLM-20260101-090000-AAAA", &model.ExtractedData{
		ClaimAmount:  300,
		IncidentType: model.ClaimTypeAuto,
		Parties:      []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
		Description:  "minor parking lot scrape, no injuries",
	}, "minor parking lot scrape")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAutoApproved, status)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAutoApproved, got.Status)
	require.NotNil(t, got.RoutingDecision)
	require.Equal(t, "AUTO_SYSTEM", got.RoutingDecision.AdjusterID)
	require.NotNil(t, got.SeverityScore)
	require.Empty(t, got.FraudFlags)
	require.Empty(t, got.TaskID)

	// No adjuster slot was consumed.
	for _, id := range []string{"ADJ-001", "ADJ-002", "ADJ-003"} {
		adj, err := s.GetAdjuster(ctx, id)
		require.NoError(t, err)
		require.Zero(t, adj.CurrentWorkload)
	}
}

func TestSuspiciousClaimRoutedToSIU(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	incident := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	report := incident.AddDate(0, 0, 40)
	claim := uploaded(t, s, "CLM-20260101-090000-BBBB", &model.ExtractedData{
		ClaimAmount:  50000,
		IncidentType: model.ClaimTypeAuto,
		IncidentDate: &incident,
		ReportDate:   &report,
		Parties: []model.Party{
			{Name: "Dana Ortiz", Role: "claimant"},
			{Name: "Lee Park", Role: "third_party"},
		},
		Injuries: []model.Injury{
			{Person: "Dana Ortiz", Severity: model.InjuryMinor, Description: "whiplash"},
		},
		Description: "rear-end collision, whiplash reported",
	}, "rear-end collision with whiplash strain")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusSIUQueued, status)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.NotEmpty(t, got.FraudFlags)
	require.Equal(t, model.PriorityUrgent, got.RoutingDecision.Priority)
	require.Equal(t, "ADJ-003", got.RoutingDecision.AdjusterID)
	require.NotEmpty(t, got.TaskID)

	siu, err := s.GetAdjuster(ctx, "ADJ-003")
	require.NoError(t, err)
	require.Equal(t, 1, siu.CurrentWorkload)
}

func TestNormalClaimAssignedWithTask(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	claim := uploaded(t, s, "CLM-20260101-090000-CCCC", &model.ExtractedData{
		ClaimAmount:  8000,
		IncidentType: model.ClaimTypeAuto,
		Parties: []model.Party{
			{Name: "Dana Ortiz", Role: "claimant"},
			{Name: "Lee Park", Role: "insured"},
		},
		FaultDetermination: "clear",
		Description:        "fender bender on Main St",
	}, "fender bender on Main St")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, status)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.NotEmpty(t, got.RoutingDecision.AdjusterID)
	require.NotEmpty(t, got.TaskID)
	require.Greater(t, got.RoutingDecision.EstimatedWorkloadHours, 0.0)
	require.GreaterOrEqual(t, got.ProcessingTimeSeconds, 0.0)

	task, err := s.GetTaskByClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, got.TaskID, task.TaskID)
	require.Equal(t, got.RoutingDecision.AdjusterID, task.AdjusterID)

	adj, err := s.GetAdjuster(ctx, got.RoutingDecision.AdjusterID)
	require.NoError(t, err)
	require.Equal(t, 1, adj.CurrentWorkload)
}

func TestAllAdjustersAtCapacityEscalates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)

	full := autoPool()
	for _, a := range full {
		a.CurrentWorkload = a.MaxConcurrentClaims
	}
	seedAdjusters(t, s, full...)

	claim := uploaded(t, s, "CLM-20260101-090000-DDDD", &model.ExtractedData{
		ClaimAmount:  8000,
		IncidentType: model.ClaimTypeAuto,
		Parties:      []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
		Description:  "fender bender",
	}, "fender bender")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusUnassigned, status)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Empty(t, got.RoutingDecision.AdjusterID)
	require.Empty(t, got.TaskID)
	_, err = s.GetTaskByClaim(ctx, claim.ClaimID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// No workload changed.
	for _, a := range full {
		adj, err := s.GetAdjuster(ctx, a.AdjusterID)
		require.NoError(t, err)
		require.Equal(t, a.MaxConcurrentClaims, adj.CurrentWorkload)
	}
}

func TestEmptyExtractionFailsToReview(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	claim := uploaded(t, s, "CLM-20260101-090000-EEEE", &model.ExtractedData{}, "")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReview, status)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReview, got.Status)
	require.Nil(t, got.SeverityScore)
	require.Nil(t, got.RoutingDecision)
}

func TestResumePicksUpStrandedClaims(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	// Simulate a crash after scoring was persisted: claim sits at
	// fraud_detection with scores already on record.
	sev, cpx := 35, 20
	stranded := &model.Claim{
		ClaimID: "CLM-20260101-090000-FFFF",
		Status:  model.StatusFraudDetection,
		ExtractedData: &model.ExtractedData{
			ClaimAmount:  8000,
			IncidentType: model.ClaimTypeAuto,
			Parties:      []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
			Description:  "fender bender",
		},
		SeverityScore:   &sev,
		ComplexityScore: &cpx,
	}
	require.NoError(t, s.SaveClaim(ctx, stranded))

	// A claim already routed must be left alone.
	settled := &model.Claim{ClaimID: "CLM-20260101-090000-GGGG", Status: model.StatusUnassigned}
	require.NoError(t, s.SaveClaim(ctx, settled))

	resumed, err := p.Resume(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, resumed)

	got, err := s.GetClaim(ctx, stranded.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, got.Status)
	require.Equal(t, 35, *got.SeverityScore)

	untouched, err := s.GetClaim(ctx, settled.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusUnassigned, untouched.Status)
}

func TestProcessedClaimIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)
	seedAdjusters(t, s, autoPool()...)

	claim := uploaded(t, s, "CLM-20260101-090000-HHHH", &model.ExtractedData{
		ClaimAmount:  8000,
		IncidentType: model.ClaimTypeAuto,
		Parties:      []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
		Description:  "fender bender",
	}, "fender bender")

	first, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, first)

	// A second pass changes nothing and consumes no extra capacity.
	second, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, second)

	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	adj, err := s.GetAdjuster(ctx, got.RoutingDecision.AdjusterID)
	require.NoError(t, err)
	require.Equal(t, 1, adj.CurrentWorkload)
}

func TestWorkloadRaceRetriesWithFreshSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	// racingStore makes the first commit lose the capacity race, as if the
	// chosen adjuster filled up between snapshot and commit.
	rs := &racingStore{Store: s, trip: 1}
	p := newProcessor(rs)

	seedAdjusters(t, s, autoPool()...)

	claim := uploaded(t, s, "CLM-20260101-090000-IIII", &model.ExtractedData{
		ClaimAmount:  8000,
		IncidentType: model.ClaimTypeAuto,
		Parties:      []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
		Description:  "fender bender",
	}, "fender bender")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, status)
	require.Equal(t, 2, rs.commits)
}

// racingStore forces the first n routing commits to lose the workload race.
type racingStore struct {
	store.Store
	trip    int
	commits int
}

func (r *racingStore) CommitRouting(ctx context.Context, claimID string, decision *model.RoutingDecision, status model.Status, message string) error {
	r.commits++
	if r.commits <= r.trip && decision.Assigned() && decision.AdjusterID != "AUTO_SYSTEM" {
		return store.ErrWorkloadRace
	}
	return r.Store.CommitRouting(ctx, claimID, decision, status, message)
}

func TestRoutedStatusSurvivesFinalSave(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	p := newProcessor(s)

	claim := uploaded(t, s, "CLM-20260101-090000-IIII", &model.ExtractedData{
		ClaimAmount:        300,
		IncidentType:       model.ClaimTypeAuto,
		Parties:            []model.Party{{Name: "Dana Ortiz", Role: "claimant"}},
		FaultDetermination: "clear",
		Description:        "cracked mirror",
	}, "cracked mirror")

	status, err := p.Process(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAutoApproved, status)

	// The row written after routing carries the routed status, not the
	// status the claim was loaded with.
	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusAutoApproved, got.Status)

	// Nothing looks stranded afterwards.
	resumed, err := p.Resume(ctx)
	require.NoError(t, err)
	require.Zero(t, resumed)

	// The transition history moves strictly forward through the stages.
	trs, err := s.ListTransitions(ctx, claim.ClaimID)
	require.NoError(t, err)
	want := []model.Status{
		model.StatusExtracting,
		model.StatusScoring,
		model.StatusFraudDetection,
		model.StatusRouting,
		model.StatusAutoApproved,
	}
	require.Len(t, trs, len(want))
	for i, tr := range trs {
		require.Equal(t, want[i], tr.Status)
	}
}
