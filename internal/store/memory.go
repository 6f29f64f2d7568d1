package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// MemoryStore is an in-process Store for tests and --memory runs. A single
// mutex covers all tables, which makes the routing commit trivially atomic.
type MemoryStore struct {
	mu          sync.Mutex
	claims      map[string]model.Claim
	adjusters   map[string]model.Adjuster
	tasks       map[string]model.Task
	transitions map[string][]Transition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:      make(map[string]model.Claim),
		adjusters:   make(map[string]model.Adjuster),
		tasks:       make(map[string]model.Task),
		transitions: make(map[string][]Transition),
	}
}

func (s *MemoryStore) SaveClaim(_ context.Context, claim *model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim.UpdatedAt = time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = claim.UpdatedAt
	}
	s.claims[claim.ClaimID] = *claim
	return nil
}

func (s *MemoryStore) GetClaim(_ context.Context, claimID string) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, ErrNotFound
	}
	return &claim, nil
}

func (s *MemoryStore) GetClaimByFilename(_ context.Context, filename string) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, claim := range s.claims {
		if claim.SourceFilename == filename {
			c := claim
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListClaims(_ context.Context, statuses ...model.Status) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[model.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []model.Claim
	for _, claim := range s.claims {
		if len(want) == 0 || want[claim.Status] {
			out = append(out, claim)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out, nil
}

func (s *MemoryStore) UpdateClaimStatus(_ context.Context, claimID string, status model.Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(claimID, status, message)
}

func (s *MemoryStore) updateStatusLocked(claimID string, status model.Status, message string) error {
	claim, ok := s.claims[claimID]
	if !ok {
		return ErrNotFound
	}
	claim.Status = status
	claim.UpdatedAt = time.Now().UTC()
	s.claims[claimID] = claim
	s.transitions[claimID] = append(s.transitions[claimID], Transition{
		ClaimID: claimID,
		Status:  status,
		Message: message,
		At:      time.Now().Unix(),
	})
	return nil
}

func (s *MemoryStore) ListTransitions(_ context.Context, claimID string) ([]Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.transitions[claimID]))
	copy(out, s.transitions[claimID])
	return out, nil
}

func (s *MemoryStore) SaveAdjuster(_ context.Context, adjuster *model.Adjuster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	adjuster.UpdatedAt = time.Now().UTC()
	if adjuster.CreatedAt.IsZero() {
		adjuster.CreatedAt = adjuster.UpdatedAt
	}
	s.adjusters[adjuster.AdjusterID] = *adjuster
	return nil
}

func (s *MemoryStore) GetAdjuster(_ context.Context, adjusterID string) (*model.Adjuster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	adjuster, ok := s.adjusters[adjusterID]
	if !ok {
		return nil, ErrNotFound
	}
	return &adjuster, nil
}

func (s *MemoryStore) ListAdjusters(_ context.Context, availableOnly bool) ([]model.Adjuster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Adjuster
	for _, adjuster := range s.adjusters {
		if availableOnly && !adjuster.Available {
			continue
		}
		out = append(out, adjuster)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdjusterID < out[j].AdjusterID })
	return out, nil
}

func (s *MemoryStore) CommitRouting(_ context.Context, claimID string, decision *model.RoutingDecision, status model.Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return ErrNotFound
	}

	if needsIncrement(decision) {
		adjuster, ok := s.adjusters[decision.AdjusterID]
		if !ok {
			return ErrNotFound
		}
		if !adjuster.HasCapacity() {
			return ErrWorkloadRace
		}
		adjuster.CurrentWorkload++
		adjuster.UpdatedAt = time.Now().UTC()
		s.adjusters[decision.AdjusterID] = adjuster
	}

	claim.RoutingDecision = decision
	claim.Status = status
	claim.UpdatedAt = time.Now().UTC()
	s.claims[claimID] = claim
	s.transitions[claimID] = append(s.transitions[claimID], Transition{
		ClaimID: claimID,
		Status:  status,
		Message: message,
		At:      time.Now().Unix(),
	})
	return nil
}

func (s *MemoryStore) ReleaseAssignment(_ context.Context, adjusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	adjuster, ok := s.adjusters[adjusterID]
	if !ok {
		return ErrNotFound
	}
	if adjuster.CurrentWorkload > 0 {
		adjuster.CurrentWorkload--
		adjuster.UpdatedAt = time.Now().UTC()
		s.adjusters[adjusterID] = adjuster
	}
	return nil
}

func (s *MemoryStore) SaveTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.UpdatedAt = time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = task.UpdatedAt
	}
	s.tasks[task.TaskID] = *task
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, taskID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (s *MemoryStore) GetTaskByClaim(_ context.Context, claimID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.ClaimID == claimID {
			t := task
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateTaskStatus(_ context.Context, taskID string, status model.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	s.tasks[taskID] = task
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// needsIncrement reports whether the decision consumes real adjuster
// capacity. Synthetic assignees and unowned queue entries do not.
func needsIncrement(decision *model.RoutingDecision) bool {
	return decision.Assigned() && decision.AdjusterID != "AUTO_SYSTEM"
}
