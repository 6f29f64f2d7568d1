// Package pipeline orchestrates the triage pass over a claim: scoring,
// fraud detection, the auto-approval gate, and routing. Stage boundaries
// are persisted as they are crossed, so a crashed process can resume any
// claim from the last stage it finished.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anggasct/fluo"

	"github.com/bvsbharat/claimspilot/internal/autoproc"
	"github.com/bvsbharat/claimspilot/internal/docctx"
	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/flow"
	"github.com/bvsbharat/claimspilot/internal/fraud"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/router"
	"github.com/bvsbharat/claimspilot/internal/score"
	"github.com/bvsbharat/claimspilot/internal/store"
	"github.com/bvsbharat/claimspilot/internal/task"
)

// Processor runs the triage pass. It is safe for concurrent use; all shared
// state lives in the store.
type Processor struct {
	store    store.Store
	bus      *events.Bus
	scorer   *score.Scorer
	detector *fraud.Detector
	gate     *autoproc.Processor
	engine   *router.Engine
	tasks    *task.Manager
	contexts *docctx.Cache
	lifedef  fluo.MachineDefinition

	routeRetries int
	now          func() time.Time
}

// NewProcessor wires the engine components against the given store.
func NewProcessor(st store.Store, bus *events.Bus, cfg model.EngineConfig) *Processor {
	return &Processor{
		store:        st,
		bus:          bus,
		scorer:       score.NewScorer(),
		detector:     fraud.NewDetector(),
		gate:         autoproc.NewProcessor(cfg.AutoApproveCeiling),
		engine:       router.NewEngine(),
		tasks:        task.NewManager(st, bus),
		contexts:     docctx.NewCache(time.Hour, 10*time.Minute),
		lifedef:      flow.NewDefinition(),
		routeRetries: cfg.RouteRetries,
		now:          time.Now,
	}
}

// Process runs one claim from its stored status to a routing outcome.
// The claim must already carry its extracted data; claims with no usable
// signal fail into review. Returns the final status.
func (p *Processor) Process(ctx context.Context, claimID string) (status model.Status, err error) {
	claim, err := p.store.GetClaim(ctx, claimID)
	if err != nil {
		return "", fmt.Errorf("load claim %s: %w", claimID, err)
	}
	switch claim.Status {
	case model.StatusUploaded, model.StatusExtracting, model.StatusScoring,
		model.StatusFraudDetection, model.StatusRouting:
	default:
		// Already routed or terminal; nothing left for the pipeline.
		return claim.Status, nil
	}

	machine, err := flow.New(ctx, p.lifedef, claim, p.store, p.bus)
	if err != nil {
		return "", err
	}

	// A panicking stage parks the claim in review instead of taking the
	// whole worker down.
	defer func() {
		if r := recover(); r != nil {
			failErr := machine.Fire(flow.EventFail, fmt.Sprintf("stage panic: %v", r))
			status = model.StatusReview
			err = errors.Join(fmt.Errorf("claim %s stage panic: %v", claimID, r), failErr)
		}
	}()

	started := p.now()

	if machine.Status() == model.StatusUploaded {
		if err := fire(machine, claim, flow.EventExtract, "extraction recorded"); err != nil {
			return machine.Status(), err
		}
	}

	if machine.Status() == model.StatusExtracting {
		if claim.ExtractedData.Empty() {
			if err := fire(machine, claim, flow.EventFail, "no usable fields extracted"); err != nil {
				return machine.Status(), err
			}
			return model.StatusReview, nil
		}
		p.contexts.Put(claim.ClaimID, claim.RawText, nil)
		if err := fire(machine, claim, flow.EventScore, "scoring started"); err != nil {
			return machine.Status(), err
		}
	}

	if machine.Status() == model.StatusScoring {
		severity, complexity := p.scorer.Score(claim.ExtractedData)
		claim.SeverityScore = &severity
		claim.ComplexityScore = &complexity
		if err := p.store.SaveClaim(ctx, claim); err != nil {
			return machine.Status(), fmt.Errorf("persist scores for %s: %w", claimID, err)
		}
		msg := fmt.Sprintf("scored severity=%d complexity=%d", severity, complexity)
		if err := fire(machine, claim, flow.EventDetectFraud, msg); err != nil {
			return machine.Status(), err
		}
	}

	if machine.Status() == model.StatusFraudDetection {
		claim.FraudFlags = p.detector.Detect(claim.ExtractedData, claim.RawText)
		for _, f := range claim.FraudFlags {
			p.contexts.AddSnippet(claim.ClaimID, f.Evidence)
		}
		if err := p.store.SaveClaim(ctx, claim); err != nil {
			return machine.Status(), fmt.Errorf("persist fraud flags for %s: %w", claimID, err)
		}
		msg := fmt.Sprintf("%d fraud flag(s)", len(claim.FraudFlags))
		if err := fire(machine, claim, flow.EventRoute, msg); err != nil {
			return machine.Status(), err
		}
	}

	if machine.Status() != model.StatusRouting {
		return machine.Status(), fmt.Errorf("claim %s in unexpected status %s", claimID, machine.Status())
	}

	final, err := p.routeAndCommit(ctx, claim, machine)
	if err != nil {
		failErr := fire(machine, claim, flow.EventFail, fmt.Sprintf("routing failed: %v", err))
		return model.StatusReview, errors.Join(err, failErr)
	}

	claim.ProcessingTimeSeconds = p.now().Sub(started).Seconds()
	if err := p.store.SaveClaim(ctx, claim); err != nil {
		return final, fmt.Errorf("persist processing time for %s: %w", claimID, err)
	}

	p.publish(model.Event{
		Type:            model.EventClaimProcessed,
		ClaimID:         claim.ClaimID,
		Status:          final,
		Message:         claim.RoutingDecision.Reason,
		SeverityScore:   claim.SeverityScore,
		ComplexityScore: claim.ComplexityScore,
		RoutingDecision: claim.RoutingDecision,
	})
	return final, nil
}

// routeAndCommit resolves the routing destination and commits it together
// with the workload increment. A lost capacity race re-routes against a
// fresh adjuster snapshot a bounded number of times, then escalates.
func (p *Processor) routeAndCommit(ctx context.Context, claim *model.Claim, machine *flow.Machine) (model.Status, error) {
	if gate := p.gate.Decide(claim.ExtractedData, claim.FraudFlags); gate.Approve {
		decision := autoproc.AutoApprovalDecision(claim.ExtractedData, gate.Reason)
		if err := p.store.CommitRouting(ctx, claim.ClaimID, decision, model.StatusAutoApproved, gate.Reason); err != nil {
			return machine.Status(), fmt.Errorf("commit auto approval: %w", err)
		}
		claim.RoutingDecision = decision
		if err := machine.Advance(model.StatusAutoApproved); err != nil {
			return machine.Status(), err
		}
		claim.Status = model.StatusAutoApproved
		p.statusUpdate(claim.ClaimID, model.StatusAutoApproved, gate.Reason)
		return model.StatusAutoApproved, nil
	}

	for attempt := 0; ; attempt++ {
		adjusters, err := p.store.ListAdjusters(ctx, true)
		if err != nil {
			return machine.Status(), fmt.Errorf("snapshot adjusters: %w", err)
		}

		outcome := p.engine.Route(claim.ExtractedData, deref(claim.SeverityScore), deref(claim.ComplexityScore), claim.FraudFlags, adjusters)
		status := destinationStatus(outcome.Destination)

		err = p.store.CommitRouting(ctx, claim.ClaimID, outcome.Decision, status, outcome.Decision.Reason)
		if errors.Is(err, store.ErrWorkloadRace) && attempt < p.routeRetries {
			continue
		}
		if errors.Is(err, store.ErrWorkloadRace) {
			// Retries exhausted. SIU claims stay queued unowned; everything
			// else escalates.
			if outcome.Destination == router.DestinationSIU {
				outcome.Decision.AssignedTo = ""
				outcome.Decision.AdjusterID = ""
			} else {
				outcome.Decision = &model.RoutingDecision{
					Priority:               outcome.Decision.Priority,
					Reason:                 "No eligible adjusters available, escalation required",
					InvestigationChecklist: outcome.Decision.InvestigationChecklist,
				}
				status = model.StatusUnassigned
			}
			err = p.store.CommitRouting(ctx, claim.ClaimID, outcome.Decision, status, outcome.Decision.Reason)
		}
		if err != nil {
			return machine.Status(), fmt.Errorf("commit routing: %w", err)
		}

		claim.RoutingDecision = outcome.Decision
		if err := machine.Advance(status); err != nil {
			return machine.Status(), err
		}
		claim.Status = status
		p.statusUpdate(claim.ClaimID, status, outcome.Decision.Reason)

		if status == model.StatusAssigned || (status == model.StatusSIUQueued && outcome.Decision.Assigned()) {
			t, err := p.tasks.CreateForClaim(ctx, claim)
			if err != nil {
				return status, fmt.Errorf("create task: %w", err)
			}
			if t != nil {
				claim.TaskID = t.TaskID
			}
		}
		return status, nil
	}
}

// Resume re-runs every claim stranded mid-pipeline by a crash. Claims park
// at their last persisted stage, so processing picks up where it stopped.
func (p *Processor) Resume(ctx context.Context) (int, error) {
	stranded, err := p.store.ListClaims(ctx,
		model.StatusUploaded,
		model.StatusExtracting,
		model.StatusScoring,
		model.StatusFraudDetection,
		model.StatusRouting,
	)
	if err != nil {
		return 0, fmt.Errorf("list stranded claims: %w", err)
	}

	resumed := 0
	for i := range stranded {
		if _, err := p.Process(ctx, stranded[i].ClaimID); err != nil {
			return resumed, fmt.Errorf("resume %s: %w", stranded[i].ClaimID, err)
		}
		resumed++
	}
	return resumed, nil
}

// Tasks exposes the task manager sharing this processor's store and bus.
func (p *Processor) Tasks() *task.Manager {
	return p.tasks
}

// Contexts exposes the document context cache.
func (p *Processor) Contexts() *docctx.Cache {
	return p.contexts
}

func (p *Processor) publish(ev model.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}

func (p *Processor) statusUpdate(claimID string, status model.Status, message string) {
	if p.bus != nil {
		p.bus.StatusUpdate(claimID, status, message)
	}
}

// fire sends a lifecycle event and keeps the in-memory claim aligned with
// the status the observer just persisted. SaveClaim writes the whole row,
// so a stale claim.Status would drag the persisted stage backwards.
func fire(machine *flow.Machine, claim *model.Claim, event, message string) error {
	if err := machine.Fire(event, message); err != nil {
		return err
	}
	claim.Status = machine.Status()
	return nil
}

func destinationStatus(d router.Destination) model.Status {
	switch d {
	case router.DestinationSIU:
		return model.StatusSIUQueued
	case router.DestinationUnassigned:
		return model.StatusUnassigned
	default:
		return model.StatusAssigned
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
