package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"phishtrainer/internal/catalog"
	"phishtrainer/internal/events"
	"phishtrainer/internal/popups"
	"phishtrainer/internal/rules"
	"phishtrainer/internal/scoring"
	"phishtrainer/internal/stages"
)

type Status string

const (
	StatusRunning   = Status("running")
	StatusSucceeded = Status("succeeded")
	StatusFailed    = Status("failed")
)

// Attempt is what the engine hands to persistence when a session ends.
type Attempt struct {
	LevelID        string
	PlayerID       string
	Status         Status
	ElapsedSeconds int
	WrongClicks    int
	Score          int
}

// Saver receives finished attempts. Implementations must not block; a save
// that fails never changes session state.
type Saver interface {
	SaveAttempt(a Attempt)
}

// Session is one play-through of a level. All mutation goes through its
// methods; clock ticks and clicks serialize on the one lock, so no two
// events ever race on the same state.
type Session struct {
	ID       string
	PlayerID string
	Level    *catalog.Level

	mu          sync.Mutex
	startedAt   time.Time
	elapsed     int
	wrongClicks int
	groups      map[string]struct{}
	seq         *stages.Sequencer // sequential mode only
	popups      *popups.Manager   // flat mode only
	status      Status
	abandoned   bool
	score       scoring.Result
	done        chan struct{}

	bus   *events.Bus
	saver Saver
}

// Snapshot is the read-only view the presentation layer draws from.
type Snapshot struct {
	ID                 string         `json:"id"`
	LevelID            string         `json:"level_id"`
	Mode               catalog.Mode   `json:"mode"`
	Status             Status         `json:"status"`
	ElapsedSeconds     int            `json:"elapsed_seconds"`
	TimeLimitSeconds   int            `json:"time_limit_seconds"`
	WrongClicks        int            `json:"wrong_clicks"`
	DecoyGroupsTouched []string       `json:"decoy_groups_touched"`
	CurrentStage       string         `json:"current_stage,omitempty"`
	Popups             []popups.Popup  `json:"popups,omitempty"`
	Score              *scoring.Result `json:"score,omitempty"`
}

// New starts a fresh RUNNING session for the level. Replaying a level needs
// a new session; a finished one never restarts.
func New(lvl *catalog.Level, playerID string, bus *events.Bus, saver Saver) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		Level:     lvl,
		startedAt: time.Now(),
		groups:    make(map[string]struct{}),
		status:    StatusRunning,
		done:      make(chan struct{}),
		bus:       bus,
		saver:     saver,
	}
	if lvl.Mode == catalog.ModeSequential {
		s.seq = stages.NewSequencer(lvl.StageOrder())
	} else {
		s.popups = popups.NewManager(lvl.Responses)
	}
	return s
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed the moment the session leaves RUNNING.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.ID,
		LevelID:          s.Level.ID,
		Mode:             s.Level.Mode,
		Status:           s.status,
		ElapsedSeconds:   s.elapsed,
		TimeLimitSeconds: s.Level.TimeLimitSeconds,
		WrongClicks:      s.wrongClicks,
	}
	snap.DecoyGroupsTouched = make([]string, 0, len(s.groups))
	for g := range s.groups {
		snap.DecoyGroupsTouched = append(snap.DecoyGroupsTouched, g)
	}
	sort.Strings(snap.DecoyGroupsTouched)
	if s.seq != nil {
		snap.CurrentStage = s.seq.Current()
	}
	if s.popups != nil {
		snap.Popups = s.popups.Active()
	}
	if s.status != StatusRunning {
		score := s.score
		snap.Score = &score
	}
	return snap
}

// Click processes one user action. Clicks on a finished session are
// ignored and report a dismiss.
func (s *Session) Click(in rules.Input) rules.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return rules.Dismiss
	}

	stageID := ""
	if s.seq != nil {
		stageID = s.seq.Current()
	}
	out := rules.Classify(s.Level, stageID, in)

	switch out.Verdict {
	case rules.Advance:
		s.advanceLocked()
	case rules.PenalizeContinue:
		s.penalizeLocked(in.ActionID, out.GroupKey)
	case rules.PenalizeFail:
		s.wrongClicks++
		s.finishLocked(StatusFailed)
	case rules.Dismiss:
		// safe affordance, no state change
	}
	return out.Verdict
}

// ClickPopup handles the two affordances of a spawned decoy popup. Closing
// is always a safe dismiss. Acting on the bait is a fresh wrong click
// attributed to the popup's source group; the acted popup retires and the
// penalty follows the normal wrong-click path.
func (s *Session) ClickPopup(popupID string, act bool) rules.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning || s.popups == nil {
		return rules.Dismiss
	}
	p := s.popups.Get(popupID)
	if p == nil {
		return rules.Dismiss
	}
	s.popups.Dismiss(popupID)
	s.bus.PublishPopup(events.PopupEvent{SessionID: s.ID, PopupID: popupID})
	if !act {
		return rules.Dismiss
	}
	s.penalizeLocked(p.SourceLabel, p.SourceGroupKey)
	return rules.PenalizeContinue
}

// Tick advances the clock by one second. Expiry is always fatal, in both
// modes; ticks delivered after a terminal transition are silent no-ops.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return
	}
	s.elapsed++
	s.bus.PublishTick(events.TickEvent{SessionID: s.ID, Elapsed: s.elapsed})
	if s.elapsed >= s.Level.TimeLimitSeconds {
		s.finishLocked(StatusFailed)
	}
}

// Abandon ends the session without recording an attempt: the clock stops
// and all popups are discarded synchronously.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return
	}
	s.abandoned = true
	s.finishLocked(StatusFailed)
}

// RunClock drives the 1-second cadence until the session leaves RUNNING.
func (s *Session) RunClock() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (s *Session) advanceLocked() {
	if s.seq == nil {
		// Flat mode has exactly one real element; hitting it wins outright.
		s.finishLocked(StatusSucceeded)
		return
	}
	next, terminal := s.seq.Advance()
	if terminal {
		s.finishLocked(StatusSucceeded)
		return
	}
	s.bus.PublishStage(events.StageChangeEvent{SessionID: s.ID, Stage: next})
}

func (s *Session) penalizeLocked(label, groupKey string) {
	s.wrongClicks++
	if groupKey != "" {
		s.groups[groupKey] = struct{}{}
	}
	if s.Level.MaxWrongClicks > 0 && s.wrongClicks >= s.Level.MaxWrongClicks {
		s.finishLocked(StatusFailed)
		return
	}
	if s.popups != nil {
		if p := s.popups.Spawn(label, groupKey); p != nil {
			s.bus.PublishPopup(events.PopupEvent{SessionID: s.ID, PopupID: p.ID, Spawned: true})
		}
	}
}

func (s *Session) finishLocked(st Status) {
	s.status = st
	s.score = scoring.Compute(s.Level, st == StatusSucceeded, s.elapsed, s.wrongClicks)
	if s.popups != nil {
		s.popups.ClearAll()
	}
	s.bus.PublishStatus(events.StatusChangeEvent{SessionID: s.ID, Status: string(st)})
	close(s.done)

	if s.saver == nil || s.abandoned {
		return
	}
	// Nothing worth recording for a failure with zero activity.
	if st == StatusFailed && s.wrongClicks == 0 && s.elapsed == 0 {
		return
	}
	s.saver.SaveAttempt(Attempt{
		LevelID:        s.Level.ID,
		PlayerID:       s.PlayerID,
		Status:         st,
		ElapsedSeconds: s.elapsed,
		WrongClicks:    s.wrongClicks,
		Score:          scoring.LeaderboardValue(s.Level, s.score),
	})
}
