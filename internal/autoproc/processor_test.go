package autoproc

import (
	"testing"

	"github.com/bvsbharat/claimspilot/internal/model"
)

func TestProcessor_ApprovesSimpleSmallClaim(t *testing.T) {
	p := NewProcessor(500)

	d := p.Decide(&model.ExtractedData{ClaimAmount: 300, Description: "windshield chip"}, nil)
	if !d.Approve {
		t.Errorf("expected approval for $300 claim with no injuries and no flags, got defer: %s", d.Reason)
	}
}

func TestProcessor_AnyFraudFlagDefers(t *testing.T) {
	p := NewProcessor(500)

	// Even a low-severity, low-confidence flag blocks approval regardless
	// of amount.
	flags := []model.FraudFlag{{Type: "soft_tissue_only", Severity: model.FlagLow, Confidence: 0.4, Evidence: "x"}}
	d := p.Decide(&model.ExtractedData{ClaimAmount: 50}, flags)
	if d.Approve {
		t.Error("expected defer when any fraud flag is present")
	}
}

func TestProcessor_InjuriesDefer(t *testing.T) {
	p := NewProcessor(500)

	data := &model.ExtractedData{
		ClaimAmount: 100,
		Injuries:    []model.Injury{{Person: "A", Severity: model.InjuryMinor, Description: "bruise"}},
	}
	if d := p.Decide(data, nil); d.Approve {
		t.Error("expected defer when injuries are recorded")
	}
}

func TestProcessor_CeilingIsExclusive(t *testing.T) {
	p := NewProcessor(500)

	if d := p.Decide(&model.ExtractedData{ClaimAmount: 500}, nil); d.Approve {
		t.Error("amount at ceiling must defer")
	}
	if d := p.Decide(&model.ExtractedData{ClaimAmount: 499.99}, nil); !d.Approve {
		t.Errorf("amount under ceiling should approve, got: %s", d.Reason)
	}
}

func TestProcessor_UnknownAmountDefers(t *testing.T) {
	p := NewProcessor(500)

	if d := p.Decide(&model.ExtractedData{Description: "minor scratch"}, nil); d.Approve {
		t.Error("expected defer when amount is unknown")
	}
	if d := p.Decide(nil, nil); d.Approve {
		t.Error("expected defer for nil data")
	}
}

func TestAutoApprovalDecision(t *testing.T) {
	dec := AutoApprovalDecision(&model.ExtractedData{ClaimAmount: 300}, "test reason")
	if dec.AdjusterID != "AUTO_SYSTEM" {
		t.Errorf("AdjusterID = %q, want AUTO_SYSTEM", dec.AdjusterID)
	}
	if dec.Priority != model.PriorityLow {
		t.Errorf("Priority = %q, want low", dec.Priority)
	}
	if len(dec.InvestigationChecklist) == 0 {
		t.Error("expected a verification checklist")
	}
}
