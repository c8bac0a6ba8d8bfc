package stages

// Sequencer walks the ordered stage list of a sequential level. The last
// listed stage is the open "main" surface; advancing past it is the
// terminal success transition.
type Sequencer struct {
	order []string
	idx   int
}

func NewSequencer(order []string) *Sequencer {
	return &Sequencer{order: order}
}

// Current returns the id of the stage the player is on.
func (s *Sequencer) Current() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[s.idx]
}

// AtMain reports whether the player has reached the final stage.
func (s *Sequencer) AtMain() bool {
	return len(s.order) > 0 && s.idx == len(s.order)-1
}

// Advance moves to the next stage in the fixed order. terminal is true when
// advancing from the final stage, which ends the session successfully.
func (s *Sequencer) Advance() (next string, terminal bool) {
	if s.AtMain() || len(s.order) == 0 {
		return "", true
	}
	s.idx++
	return s.order[s.idx], false
}
