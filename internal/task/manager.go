// Package task manages adjuster work items. A task is created once per
// assigned claim; adjusters move it created -> in_progress -> done, and
// finishing the task completes the claim and frees the adjuster's slot.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

// Manager creates and advances tasks against the store.
type Manager struct {
	store store.Store
	bus   *events.Bus
	now   func() time.Time
}

// NewManager creates a task manager.
func NewManager(st store.Store, bus *events.Bus) *Manager {
	return &Manager{store: st, bus: bus, now: time.Now}
}

// CreateForClaim derives a task from a routing decision and persists it.
// Claims without a concrete adjuster (auto-approved, SIU queue without an
// investigator, unassigned) get no task.
func (m *Manager) CreateForClaim(ctx context.Context, claim *model.Claim) (*model.Task, error) {
	decision := claim.RoutingDecision
	if !decision.Assigned() || decision.AdjusterID == "AUTO_SYSTEM" {
		return nil, nil
	}

	taskID, err := model.NewTaskID(m.now())
	if err != nil {
		return nil, err
	}
	task := &model.Task{
		TaskID:      taskID,
		ClaimID:     claim.ClaimID,
		AdjusterID:  decision.AdjusterID,
		Title:       fmt.Sprintf("Review claim %s", claim.ClaimID),
		Description: decision.Reason,
		Priority:    decision.Priority,
		Status:      model.TaskCreated,
	}
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task for %s: %w", claim.ClaimID, err)
	}
	m.publish(task, "task created")
	return task, nil
}

// Start moves a task to in_progress and the claim with it.
func (m *Manager) Start(ctx context.Context, taskID string) error {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := model.ValidateTaskTransition(task.Status, model.TaskInProgress); err != nil {
		return err
	}

	claim, err := m.store.GetClaim(ctx, task.ClaimID)
	if err != nil {
		return err
	}
	if err := model.ValidateTransition(claim.Status, model.StatusInProgress); err != nil {
		return fmt.Errorf("claim %s: %w", claim.ClaimID, err)
	}

	if err := m.store.UpdateTaskStatus(ctx, taskID, model.TaskInProgress); err != nil {
		return err
	}
	if err := m.store.UpdateClaimStatus(ctx, task.ClaimID, model.StatusInProgress, fmt.Sprintf("task %s started", taskID)); err != nil {
		return err
	}
	task.Status = model.TaskInProgress
	m.publish(task, "task started")
	return nil
}

// Complete finishes a task. The claim moves to completed and the owning
// adjuster's workload slot is released.
func (m *Manager) Complete(ctx context.Context, taskID string) error {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := model.ValidateTaskTransition(task.Status, model.TaskDone); err != nil {
		return err
	}

	claim, err := m.store.GetClaim(ctx, task.ClaimID)
	if err != nil {
		return err
	}
	if err := model.ValidateTransition(claim.Status, model.StatusCompleted); err != nil {
		return fmt.Errorf("claim %s: %w", claim.ClaimID, err)
	}

	if err := m.store.UpdateTaskStatus(ctx, taskID, model.TaskDone); err != nil {
		return err
	}
	if err := m.store.UpdateClaimStatus(ctx, task.ClaimID, model.StatusCompleted, fmt.Sprintf("task %s done", taskID)); err != nil {
		return err
	}
	if err := m.store.ReleaseAssignment(ctx, task.AdjusterID); err != nil {
		return fmt.Errorf("release adjuster %s: %w", task.AdjusterID, err)
	}

	task.Status = model.TaskDone
	m.publish(task, "task done")
	if m.bus != nil {
		m.bus.StatusUpdate(task.ClaimID, model.StatusCompleted, fmt.Sprintf("task %s done", taskID))
	}
	return nil
}

func (m *Manager) publish(task *model.Task, message string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(model.Event{
		Type:    model.EventTaskUpdate,
		ClaimID: task.ClaimID,
		Message: fmt.Sprintf("%s: %s (%s)", message, task.TaskID, task.Status),
	})
}
