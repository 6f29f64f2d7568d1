package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

func assignedClaim(t *testing.T, s store.Store, claimID, adjusterID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveAdjuster(ctx, &model.Adjuster{
		AdjusterID: adjusterID, Name: "Jamie Fox", Available: true,
		MaxConcurrentClaims: 3,
	}))
	require.NoError(t, s.SaveClaim(ctx, &model.Claim{
		ClaimID: claimID,
		Status:  model.StatusRouting,
	}))
	decision := &model.RoutingDecision{
		AdjusterID: adjusterID, AssignedTo: "Jamie Fox",
		Priority: model.PriorityMedium, Reason: "best available match",
	}
	require.NoError(t, s.CommitRouting(ctx, claimID, decision, model.StatusAssigned, "assigned"))
}

func TestOverrideCloseReleasesAdjusterSlot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	assignedClaim(t, s, "CLM-20260101-090000-AAAA", "ADJ-001")

	require.NoError(t, overrideStatus(ctx, s, "CLM-20260101-090000-AAAA", model.StatusClosed))

	got, err := s.GetClaim(ctx, "CLM-20260101-090000-AAAA")
	require.NoError(t, err)
	require.Equal(t, model.StatusClosed, got.Status)

	adj, err := s.GetAdjuster(ctx, "ADJ-001")
	require.NoError(t, err)
	require.Zero(t, adj.CurrentWorkload)
}

func TestOverrideCannotResurrectTerminalClaim(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	assignedClaim(t, s, "CLM-20260101-090000-BBBB", "ADJ-001")
	require.NoError(t, overrideStatus(ctx, s, "CLM-20260101-090000-BBBB", model.StatusClosed))

	for _, target := range []model.Status{model.StatusReview, model.StatusAssigned, model.StatusInProgress} {
		require.Error(t, overrideStatus(ctx, s, "CLM-20260101-090000-BBBB", target))
	}

	got, err := s.GetClaim(ctx, "CLM-20260101-090000-BBBB")
	require.NoError(t, err)
	require.Equal(t, model.StatusClosed, got.Status)
}

func TestOverrideSyntheticAssigneeKeepsWorkloads(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SaveAdjuster(ctx, &model.Adjuster{
		AdjusterID: "ADJ-001", Name: "Jamie Fox", Available: true,
		MaxConcurrentClaims: 3,
	}))
	require.NoError(t, s.SaveClaim(ctx, &model.Claim{
		ClaimID: "CLM-20260101-090000-CCCC",
		Status:  model.StatusUnassigned,
		RoutingDecision: &model.RoutingDecision{
			AdjusterID: "AUTO_SYSTEM", AssignedTo: "AUTO_SYSTEM",
			Priority: model.PriorityLow, Reason: "auto approved",
		},
	}))

	require.NoError(t, overrideStatus(ctx, s, "CLM-20260101-090000-CCCC", model.StatusClosed))

	adj, err := s.GetAdjuster(ctx, "ADJ-001")
	require.NoError(t, err)
	require.Zero(t, adj.CurrentWorkload)
}

func TestOverrideRejectsPipelineTargets(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	assignedClaim(t, s, "CLM-20260101-090000-DDDD", "ADJ-001")

	require.Error(t, overrideStatus(ctx, s, "CLM-20260101-090000-DDDD", model.StatusScoring))
	require.Error(t, overrideStatus(ctx, s, "CLM-20260101-090000-DDDD", model.StatusUploaded))

	got, err := s.GetClaim(ctx, "CLM-20260101-090000-DDDD")
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, got.Status)
}
