package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

func assignedClaim(t *testing.T, s store.Store, claimID, adjusterID string) *model.Claim {
	t.Helper()
	ctx := context.Background()

	adjuster := &model.Adjuster{
		AdjusterID:          adjusterID,
		Name:                "Adjuster " + adjusterID,
		Specializations:     []string{"auto"},
		ExperienceLevel:     model.ExperienceMid,
		MaxClaimAmount:      100000,
		MaxConcurrentClaims: 3,
		Available:           true,
	}
	require.NoError(t, s.SaveAdjuster(ctx, adjuster))

	claim := &model.Claim{ClaimID: claimID, Status: model.StatusRouting}
	require.NoError(t, s.SaveClaim(ctx, claim))

	decision := &model.RoutingDecision{
		AssignedTo: adjuster.Name,
		AdjusterID: adjusterID,
		Priority:   model.PriorityHigh,
		Reason:     "High severity auto claim",
	}
	require.NoError(t, s.CommitRouting(ctx, claimID, decision, model.StatusAssigned, "assigned"))

	got, err := s.GetClaim(ctx, claimID)
	require.NoError(t, err)
	return got
}

func TestCreateForClaim(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	mgr := NewManager(s, nil)

	claim := assignedClaim(t, s, "CLM-20260101-090000-AAAA", "ADJ-001")
	task, err := mgr.CreateForClaim(ctx, claim)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.True(t, model.ValidTaskID(task.TaskID))
	require.Equal(t, claim.ClaimID, task.ClaimID)
	require.Equal(t, "ADJ-001", task.AdjusterID)
	require.Equal(t, model.PriorityHigh, task.Priority)
	require.Equal(t, model.TaskCreated, task.Status)
	require.Equal(t, "High severity auto claim", task.Description)

	byClaim, err := s.GetTaskByClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, task.TaskID, byClaim.TaskID)
}

func TestCreateForClaimSkipsSyntheticAssignees(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	mgr := NewManager(s, nil)

	auto := &model.Claim{
		ClaimID: "CLM-20260101-090000-BBBB",
		Status:  model.StatusAutoApproved,
		RoutingDecision: &model.RoutingDecision{
			AssignedTo: "AUTO_SYSTEM",
			AdjusterID: "AUTO_SYSTEM",
			Priority:   model.PriorityLow,
		},
	}
	task, err := mgr.CreateForClaim(ctx, auto)
	require.NoError(t, err)
	require.Nil(t, task)

	unassigned := &model.Claim{
		ClaimID: "CLM-20260101-090000-CCCC",
		Status:  model.StatusUnassigned,
		RoutingDecision: &model.RoutingDecision{
			Priority: model.PriorityHigh,
			Reason:   "No eligible adjuster available",
		},
	}
	task, err = mgr.CreateForClaim(ctx, unassigned)
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestStartAndComplete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	mgr := NewManager(s, nil)

	claim := assignedClaim(t, s, "CLM-20260101-090000-DDDD", "ADJ-002")
	task, err := mgr.CreateForClaim(ctx, claim)
	require.NoError(t, err)

	adj, err := s.GetAdjuster(ctx, "ADJ-002")
	require.NoError(t, err)
	require.Equal(t, 1, adj.CurrentWorkload)

	require.NoError(t, mgr.Start(ctx, task.TaskID))
	got, err := s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusInProgress, got.Status)

	require.NoError(t, mgr.Complete(ctx, task.TaskID))

	got, err = s.GetClaim(ctx, claim.ClaimID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, got.Status)

	done, err := s.GetTask(ctx, task.TaskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskDone, done.Status)

	// Completing the task released the adjuster's slot.
	adj, err = s.GetAdjuster(ctx, "ADJ-002")
	require.NoError(t, err)
	require.Equal(t, 0, adj.CurrentWorkload)
}

func TestInvalidTaskMoves(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	mgr := NewManager(s, nil)

	claim := assignedClaim(t, s, "CLM-20260101-090000-EEEE", "ADJ-003")
	task, err := mgr.CreateForClaim(ctx, claim)
	require.NoError(t, err)

	// Cannot complete before starting.
	require.Error(t, mgr.Complete(ctx, task.TaskID))

	require.NoError(t, mgr.Start(ctx, task.TaskID))
	// Cannot start twice.
	require.Error(t, mgr.Start(ctx, task.TaskID))

	require.NoError(t, mgr.Complete(ctx, task.TaskID))
	// Done is final.
	require.Error(t, mgr.Complete(ctx, task.TaskID))

	require.ErrorIs(t, mgr.Start(ctx, "TSK-20260101-090000-ZZZZ"), store.ErrNotFound)
}
