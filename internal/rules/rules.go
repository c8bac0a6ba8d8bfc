package rules

import "phishtrainer/internal/catalog"

// Verdict classifies one user click.
type Verdict string

const (
	// Advance is the correct action: the one real element (flat) or the
	// current stage's correct action (sequential).
	Advance = Verdict("advance")
	// PenalizeContinue is a wrong click the session survives.
	PenalizeContinue = Verdict("penalize")
	// PenalizeFail is a wrong click that ends the session.
	PenalizeFail = Verdict("fail")
	// Dismiss is a safe close/cancel affordance. Never counted.
	Dismiss = Verdict("dismiss")
)

// Input is the one shape the presentation layer forwards per user action.
// IsRealHint lets flat-mode callers mark the authoritative real control
// directly instead of relying on a label lookup.
type Input struct {
	ActionID   string `json:"action_id"`
	IsRealHint bool   `json:"is_real_hint,omitempty"`
}

// Outcome carries the verdict plus the decoy group a penalty is attributed
// to, when the clicked element declares one.
type Outcome struct {
	Verdict  Verdict
	GroupKey string
}

// Classify decides what a click means for the given level. stageID is the
// current stage on sequential levels and ignored on flat ones.
//
// An empty action id never penalizes: it represents the close/cancel
// affordance a well-designed prompt always offers. An action id matching
// nothing known is also treated as a dismiss, so a presentation bug cannot
// end a session unfairly.
func Classify(lvl *catalog.Level, stageID string, in Input) Outcome {
	if lvl.Mode == catalog.ModeSequential {
		return classifySequential(lvl, stageID, in)
	}
	return classifyFlat(lvl, in)
}

func classifyFlat(lvl *catalog.Level, in Input) Outcome {
	if in.IsRealHint {
		return Outcome{Verdict: Advance}
	}
	if in.ActionID == "" {
		return Outcome{Verdict: Dismiss}
	}
	el := lvl.Element(in.ActionID)
	if el == nil {
		return Outcome{Verdict: Dismiss}
	}
	if el.IsReal {
		return Outcome{Verdict: Advance}
	}
	return Outcome{Verdict: PenalizeContinue, GroupKey: el.GroupKey}
}

func classifySequential(lvl *catalog.Level, stageID string, in Input) Outcome {
	if in.ActionID == "" {
		return Outcome{Verdict: Dismiss}
	}
	st := lvl.Stage(stageID)
	if st == nil {
		return Outcome{Verdict: Dismiss}
	}
	if in.ActionID == st.CorrectActionID {
		return Outcome{Verdict: Advance}
	}
	for _, d := range st.DecoyActionIDs {
		if in.ActionID == d {
			return Outcome{Verdict: PenalizeFail}
		}
	}
	if st.AllowsSilentDismiss {
		for _, d := range st.DismissActionIDs {
			if in.ActionID == d {
				return Outcome{Verdict: Dismiss}
			}
		}
	}
	return Outcome{Verdict: Dismiss}
}
