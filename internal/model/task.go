package model

import (
	"fmt"
	"time"
)

// TaskStatus tracks adjuster work items independently of claim status
type TaskStatus string

const (
	TaskCreated    TaskStatus = "created"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

var validTaskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskCreated: {
		TaskInProgress: true,
	},
	TaskInProgress: {
		TaskDone: true,
	},
}

// ValidateTaskTransition checks an adjuster-driven task move.
func ValidateTaskTransition(from, to TaskStatus) error {
	if from == TaskDone {
		return fmt.Errorf("task is already done")
	}
	if !validTaskTransitions[from][to] {
		return fmt.Errorf("invalid task transition: %q → %q", from, to)
	}
	return nil
}

// Task is one unit of adjuster work derived from a routing decision.
// Exactly one task is owned by each (claim, adjuster) assignment.
type Task struct {
	TaskID      string     `json:"task_id"`
	ClaimID     string     `json:"claim_id"`
	AdjusterID  string     `json:"adjuster_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
