// Package flow runs the claim lifecycle as a state machine. Each claim gets
// its own machine instance; an observer persists every entered state and
// publishes the matching status event, so the store and the dashboard feed
// can never see a transition the machine rejected.
package flow

import (
	"context"
	"fmt"

	"github.com/anggasct/fluo"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

// Lifecycle events. Fail is accepted from every non-terminal state and
// lands in review.
const (
	EventExtract     = "extract"
	EventScore       = "score"
	EventDetectFraud = "detect_fraud"
	EventRoute       = "route"
	EventAssign      = "assign"
	EventAutoApprove = "auto_approve"
	EventQueueSIU    = "queue_siu"
	EventEscalate    = "escalate"
	EventStartWork   = "start_work"
	EventComplete    = "complete"
	EventFail        = "fail"
	EventClose       = "close"
)

const ctxMessageKey = "status_message"

// NewDefinition builds the shared lifecycle definition. State ids are the
// claim status strings, so CurrentState maps directly onto model.Status.
func NewDefinition() fluo.MachineDefinition {
	b := fluo.NewMachine()

	b.State(string(model.StatusUploaded)).Initial().
		To(string(model.StatusExtracting)).On(EventExtract).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusExtracting)).
		To(string(model.StatusScoring)).On(EventScore).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusScoring)).
		To(string(model.StatusFraudDetection)).On(EventDetectFraud).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusFraudDetection)).
		To(string(model.StatusRouting)).On(EventRoute).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusRouting)).
		To(string(model.StatusAssigned)).On(EventAssign).
		To(string(model.StatusAutoApproved)).On(EventAutoApprove).
		To(string(model.StatusSIUQueued)).On(EventQueueSIU).
		To(string(model.StatusUnassigned)).On(EventEscalate).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusAssigned)).
		To(string(model.StatusInProgress)).On(EventStartWork).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusSIUQueued)).
		To(string(model.StatusInProgress)).On(EventStartWork).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusUnassigned)).
		To(string(model.StatusAssigned)).On(EventAssign).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusInProgress)).
		To(string(model.StatusCompleted)).On(EventComplete).
		To(string(model.StatusReview)).On(EventFail)

	b.State(string(model.StatusReview)).
		To(string(model.StatusClosed)).On(EventClose)

	b.State(string(model.StatusAutoApproved)).Final()
	b.State(string(model.StatusCompleted)).Final()
	b.State(string(model.StatusClosed)).Final()

	return b.Build()
}

// statusObserver writes every entered non-initial state to the store and
// publishes a status event. A persistence failure is recorded on the
// machine for Fire to surface.
type statusObserver struct {
	fluo.BaseObserver
	claimID  string
	store    store.Store
	bus      *events.Bus
	ctx      context.Context
	lastErr  error
	suppress bool
}

func (o *statusObserver) OnTransition(from, to string, _ fluo.Event, ctx fluo.Context) {
	if o.suppress {
		return
	}
	message := ""
	if v, ok := ctx.Get(ctxMessageKey); ok {
		message, _ = v.(string)
	}
	status := model.Status(to)
	if err := o.store.UpdateClaimStatus(o.ctx, o.claimID, status, message); err != nil {
		o.lastErr = fmt.Errorf("persist status %s: %w", to, err)
		return
	}
	if o.bus != nil {
		o.bus.StatusUpdate(o.claimID, status, message)
	}
}

// Machine drives one claim through its lifecycle.
type Machine struct {
	claimID  string
	machine  fluo.Machine
	observer *statusObserver
}

// New creates a machine for the claim sitting at its current stored status.
// For fresh claims the status is uploaded; for crash recovery the machine
// is fast-forwarded to wherever the claim last persisted.
func New(ctx context.Context, def fluo.MachineDefinition, claim *model.Claim, st store.Store, bus *events.Bus) (*Machine, error) {
	m := def.CreateInstance()
	obs := &statusObserver{claimID: claim.ClaimID, store: st, bus: bus, ctx: ctx}

	if err := m.Start(); err != nil {
		return nil, fmt.Errorf("start lifecycle for %s: %w", claim.ClaimID, err)
	}
	if string(claim.Status) != m.CurrentState() {
		if err := m.SetState(string(claim.Status)); err != nil {
			return nil, fmt.Errorf("resume %s at status %s: %w", claim.ClaimID, claim.Status, err)
		}
	}
	// Attach after positioning so resume does not re-persist old states.
	m.AddObserver(obs)

	return &Machine{claimID: claim.ClaimID, machine: m, observer: obs}, nil
}

// Status returns the machine's current claim status.
func (m *Machine) Status() model.Status {
	return model.Status(m.machine.CurrentState())
}

// Fire sends a lifecycle event. On acceptance the new status has already
// been persisted and published by the observer. A rejected event (illegal
// transition) returns an error and changes nothing.
func (m *Machine) Fire(event, message string) error {
	m.observer.lastErr = nil
	m.machine.Context().Set(ctxMessageKey, message)

	result := m.machine.SendEvent(event, nil)
	if result.Error != nil {
		return fmt.Errorf("lifecycle event %s for %s: %w", event, m.claimID, result.Error)
	}
	if !result.Success() {
		reason := result.RejectionReason
		if reason == "" {
			reason = fmt.Sprintf("not allowed from status %q", m.machine.CurrentState())
		}
		return fmt.Errorf("lifecycle event %s for %s rejected: %s", event, m.claimID, reason)
	}
	return m.observer.lastErr
}

// Advance persists a routing outcome that was committed out of band (the
// atomic routing commit writes status and workload together), then moves
// the machine to match without re-persisting.
func (m *Machine) Advance(status model.Status) error {
	if err := model.ValidateTransition(m.Status(), status); err != nil {
		return err
	}
	m.observer.suppress = true
	defer func() { m.observer.suppress = false }()
	return m.machine.SetState(string(status))
}
