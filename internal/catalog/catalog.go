package catalog

import "fmt"

type Mode string

const (
	ModeFlat       = Mode("flat")
	ModeSequential = Mode("sequential")
)

// WrongClickPenalty is deducted from the base score for every wrong click,
// in both modes.
const WrongClickPenalty = 50

// Level is the immutable definition of one training level. Loaded once at
// startup and never mutated afterwards.
type Level struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Mode             Mode   `yaml:"mode"`
	TimeLimitSeconds int    `yaml:"time_limit_seconds"`
	BaseScore        int    `yaml:"base_score"`

	// NormalizeScore selects which scale the leaderboard receives: raw
	// points when false, the 0-10 normalized value when true. The two
	// conventions coexist across level families and are deliberately not
	// unified.
	NormalizeScore bool `yaml:"normalize_score"`

	// Time penalty: floor(elapsed/interval)*unit points.
	TimePenaltyInterval int `yaml:"time_penalty_interval"`
	TimePenaltyUnit     int `yaml:"time_penalty_unit"`

	// MaxWrongClicks ends the session FAILED when reached (flat mode).
	// 0 disables the strike-out.
	MaxWrongClicks int `yaml:"max_wrong_clicks"`

	Elements []Element `yaml:"elements"` // flat mode
	Stages   []Stage   `yaml:"stages"`   // sequential mode

	Responses ResponseSet `yaml:"responses"` // flat mode popup content
}

// Element is one interactive control on a flat level.
type Element struct {
	Label       string `yaml:"label" json:"label"`
	IsReal      bool   `yaml:"is_real" json:"is_real"`
	GroupKey    string `yaml:"group_key" json:"group_key,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Stage is one gated step on a sequential level. Exactly one action id
// progresses; any decoy action id is immediately fatal; dismiss action ids
// are safe no-ops when the stage allows silent dismissal.
type Stage struct {
	ID                  string   `yaml:"id" json:"id"`
	CorrectActionID     string   `yaml:"correct_action_id" json:"correct_action_id"`
	DecoyActionIDs      []string `yaml:"decoy_action_ids" json:"decoy_action_ids,omitempty"`
	DismissActionIDs    []string `yaml:"dismiss_action_ids" json:"dismiss_action_ids,omitempty"`
	AllowsSilentDismiss bool     `yaml:"allows_silent_dismiss" json:"allows_silent_dismiss"`
}

// Element returns the element definition for a label, or nil.
func (l *Level) Element(label string) *Element {
	for i := range l.Elements {
		if l.Elements[i].Label == label {
			return &l.Elements[i]
		}
	}
	return nil
}

// Stage returns the stage definition for an id, or nil.
func (l *Level) Stage(id string) *Stage {
	for i := range l.Stages {
		if l.Stages[i].ID == id {
			return &l.Stages[i]
		}
	}
	return nil
}

// StageOrder returns stage ids in play order.
func (l *Level) StageOrder() []string {
	order := make([]string, len(l.Stages))
	for i := range l.Stages {
		order[i] = l.Stages[i].ID
	}
	return order
}

// Validate rejects unplayable definitions at load time.
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("level is missing an id")
	}
	if l.Mode != ModeFlat && l.Mode != ModeSequential {
		return fmt.Errorf("level %s: unknown mode %q", l.ID, l.Mode)
	}
	if l.TimeLimitSeconds <= 0 {
		return fmt.Errorf("level %s: time_limit_seconds must be positive", l.ID)
	}
	if l.BaseScore <= 0 {
		return fmt.Errorf("level %s: base_score must be positive", l.ID)
	}
	if l.TimePenaltyInterval < 0 {
		return fmt.Errorf("level %s: time_penalty_interval must not be negative", l.ID)
	}
	if l.TimePenaltyUnit < 0 {
		return fmt.Errorf("level %s: time_penalty_unit must not be negative", l.ID)
	}
	if l.MaxWrongClicks < 0 {
		return fmt.Errorf("level %s: max_wrong_clicks must not be negative", l.ID)
	}
	switch l.Mode {
	case ModeFlat:
		if len(l.Stages) > 0 {
			return fmt.Errorf("level %s: flat levels must not declare stages", l.ID)
		}
		real := 0
		seen := make(map[string]bool, len(l.Elements))
		for _, e := range l.Elements {
			if e.Label == "" {
				return fmt.Errorf("level %s: element with empty label", l.ID)
			}
			if seen[e.Label] {
				return fmt.Errorf("level %s: duplicate element label %q", l.ID, e.Label)
			}
			seen[e.Label] = true
			if e.IsReal {
				real++
			}
		}
		if real != 1 {
			return fmt.Errorf("level %s: want exactly 1 real element, got %d", l.ID, real)
		}
		if len(l.Responses.Fallbacks) == 0 {
			return fmt.Errorf("level %s: flat levels need at least one fallback response", l.ID)
		}
	case ModeSequential:
		if len(l.Elements) > 0 {
			return fmt.Errorf("level %s: sequential levels must not declare elements", l.ID)
		}
		if len(l.Stages) == 0 {
			return fmt.Errorf("level %s: sequential level has no stages", l.ID)
		}
		seen := make(map[string]bool, len(l.Stages))
		for _, st := range l.Stages {
			if st.ID == "" {
				return fmt.Errorf("level %s: stage with empty id", l.ID)
			}
			if seen[st.ID] {
				return fmt.Errorf("level %s: duplicate stage id %q", l.ID, st.ID)
			}
			seen[st.ID] = true
			if st.CorrectActionID == "" {
				return fmt.Errorf("level %s: stage %s has no correct action", l.ID, st.ID)
			}
			for _, d := range st.DecoyActionIDs {
				if d == st.CorrectActionID {
					return fmt.Errorf("level %s: stage %s lists %q as both correct and decoy", l.ID, st.ID, d)
				}
			}
		}
	}
	return nil
}

// applyDefaults fills unset tuning knobs with the per-mode observed values.
func applyDefaults(l *Level) {
	if l.TimePenaltyInterval == 0 {
		if l.Mode == ModeFlat {
			l.TimePenaltyInterval = 5
		} else {
			l.TimePenaltyInterval = 1
		}
	}
	if l.TimePenaltyUnit == 0 {
		if l.Mode == ModeFlat {
			l.TimePenaltyUnit = 10
		} else {
			l.TimePenaltyUnit = 5
		}
	}
	if l.Mode == ModeFlat && l.MaxWrongClicks == 0 {
		l.MaxWrongClicks = 3
	}
}
