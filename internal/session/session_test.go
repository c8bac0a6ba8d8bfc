package session

import (
	"sync"
	"testing"

	"phishtrainer/internal/catalog"
	"phishtrainer/internal/events"
	"phishtrainer/internal/rules"
)

type captureSaver struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (c *captureSaver) SaveAttempt(a Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, a)
}

func (c *captureSaver) all() []Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Attempt(nil), c.attempts...)
}

func flatLevel() *catalog.Level {
	return &catalog.Level{
		ID:                  "inbox",
		Mode:                catalog.ModeFlat,
		TimeLimitSeconds:    60,
		BaseScore:           1000,
		TimePenaltyInterval: 5,
		TimePenaltyUnit:     10,
		MaxWrongClicks:      3,
		Elements: []catalog.Element{
			{Label: "real-notice", IsReal: true},
			{Label: "verify-now", GroupKey: "verify"},
			{Label: "confirm-account", GroupKey: "verify"},
			{Label: "free-prize", GroupKey: "prize"},
		},
		Responses: catalog.ResponseSet{
			Fallbacks: []catalog.Response{
				{Title: "Warning", Body: "Action required.", ActLabel: "OK", CloseLabel: "Close"},
			},
		},
	}
}

func sequentialLevel() *catalog.Level {
	return &catalog.Level{
		ID:                  "storm",
		Mode:                catalog.ModeSequential,
		TimeLimitSeconds:    90,
		BaseScore:           1200,
		NormalizeScore:      true,
		TimePenaltyInterval: 1,
		TimePenaltyUnit:     5,
		Stages: []catalog.Stage{
			{
				ID:                  "alert",
				CorrectActionID:     "close-alert",
				DecoyActionIDs:      []string{"install-now"},
				DismissActionIDs:    []string{"remind-later"},
				AllowsSilentDismiss: true,
			},
			{
				ID:              "update",
				CorrectActionID: "skip-update",
				DecoyActionIDs:  []string{"download-update"},
			},
			{
				ID:              "main",
				CorrectActionID: "open-real",
				DecoyActionIDs:  []string{"open-fake"},
			},
		},
	}
}

func newFlat(t *testing.T) (*Session, *captureSaver) {
	t.Helper()
	saver := &captureSaver{}
	return New(flatLevel(), "player-1", events.NewBus(), saver), saver
}

func newSequential(t *testing.T) (*Session, *captureSaver) {
	t.Helper()
	saver := &captureSaver{}
	return New(sequentialLevel(), "player-1", events.NewBus(), saver), saver
}

func TestFlat_WrongClicksThenWin(t *testing.T) {
	s, saver := newFlat(t)

	if v := s.Click(rules.Input{ActionID: "verify-now"}); v != rules.PenalizeContinue {
		t.Fatalf("decoy verdict = %q, want penalize", v)
	}
	if v := s.Click(rules.Input{ActionID: "confirm-account"}); v != rules.PenalizeContinue {
		t.Fatalf("decoy verdict = %q, want penalize", v)
	}
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if v := s.Click(rules.Input{ActionID: "real-notice"}); v != rules.Advance {
		t.Fatalf("real click verdict = %q, want advance", v)
	}

	snap := s.Snapshot()
	if snap.Status != StatusSucceeded {
		t.Errorf("status = %q, want succeeded", snap.Status)
	}
	if snap.WrongClicks != 2 {
		t.Errorf("wrong clicks = %d, want 2", snap.WrongClicks)
	}
	if snap.Score == nil || snap.Score.Raw != 880 {
		t.Errorf("score = %+v, want raw 880", snap.Score)
	}
	if len(snap.DecoyGroupsTouched) != 1 || snap.DecoyGroupsTouched[0] != "verify" {
		t.Errorf("groups touched = %v, want [verify]", snap.DecoyGroupsTouched)
	}
	if len(snap.Popups) != 0 {
		t.Errorf("popups after finish = %d, want 0", len(snap.Popups))
	}

	got := saver.all()
	if len(got) != 1 {
		t.Fatalf("saved attempts = %d, want 1", len(got))
	}
	if got[0].Score != 880 || got[0].Status != StatusSucceeded || got[0].WrongClicks != 2 {
		t.Errorf("saved attempt = %+v", got[0])
	}
}

func TestFlat_StrikeOut(t *testing.T) {
	s, saver := newFlat(t)

	s.Click(rules.Input{ActionID: "verify-now"})
	s.Click(rules.Input{ActionID: "free-prize"})
	if st := s.Status(); st != StatusRunning {
		t.Fatalf("status after 2 wrong clicks = %q, want running", st)
	}
	s.Click(rules.Input{ActionID: "verify-now"})

	snap := s.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}
	if snap.Score == nil || snap.Score.Raw != 0 {
		t.Errorf("score = %+v, want raw 0", snap.Score)
	}

	got := saver.all()
	if len(got) != 1 || got[0].Status != StatusFailed || got[0].Score != 0 {
		t.Errorf("saved attempts = %+v, want one failed zero-score attempt", got)
	}
}

func TestFlat_PopupCap(t *testing.T) {
	lvl := flatLevel()
	lvl.MaxWrongClicks = 0 // no strike-out, exercise the cap
	s := New(lvl, "player-1", events.NewBus(), nil)

	for i := 0; i < 5; i++ {
		s.Click(rules.Input{ActionID: "verify-now"})
	}
	snap := s.Snapshot()
	if snap.WrongClicks != 5 {
		t.Errorf("wrong clicks = %d, want 5", snap.WrongClicks)
	}
	if len(snap.Popups) != 3 {
		t.Errorf("popups = %d, want 3", len(snap.Popups))
	}
}

func TestFlat_PopupCloseIsSafe(t *testing.T) {
	s, _ := newFlat(t)
	s.Click(rules.Input{ActionID: "verify-now"})

	snap := s.Snapshot()
	if len(snap.Popups) != 1 {
		t.Fatalf("popups = %d, want 1", len(snap.Popups))
	}
	if v := s.ClickPopup(snap.Popups[0].ID, false); v != rules.Dismiss {
		t.Errorf("close verdict = %q, want dismiss", v)
	}

	snap = s.Snapshot()
	if snap.WrongClicks != 1 {
		t.Errorf("wrong clicks after close = %d, want 1", snap.WrongClicks)
	}
	if len(snap.Popups) != 0 {
		t.Errorf("popups after close = %d, want 0", len(snap.Popups))
	}
}

func TestFlat_PopupActPenalizes(t *testing.T) {
	lvl := flatLevel()
	lvl.MaxWrongClicks = 0
	s := New(lvl, "player-1", events.NewBus(), nil)
	s.Click(rules.Input{ActionID: "verify-now"})

	snap := s.Snapshot()
	if v := s.ClickPopup(snap.Popups[0].ID, true); v != rules.PenalizeContinue {
		t.Errorf("act verdict = %q, want penalize", v)
	}

	snap = s.Snapshot()
	if snap.WrongClicks != 2 {
		t.Errorf("wrong clicks after act = %d, want 2", snap.WrongClicks)
	}
	if len(snap.DecoyGroupsTouched) != 1 || snap.DecoyGroupsTouched[0] != "verify" {
		t.Errorf("groups touched = %v, want [verify]", snap.DecoyGroupsTouched)
	}
}

func TestFlat_UnknownPopupIDIsDismiss(t *testing.T) {
	s, _ := newFlat(t)
	if v := s.ClickPopup("no-such-popup", true); v != rules.Dismiss {
		t.Errorf("verdict = %q, want dismiss", v)
	}
	if snap := s.Snapshot(); snap.WrongClicks != 0 {
		t.Errorf("wrong clicks = %d, want 0", snap.WrongClicks)
	}
}

func TestSequential_CleanWalkthrough(t *testing.T) {
	s, saver := newSequential(t)

	if v := s.Click(rules.Input{ActionID: "remind-later"}); v != rules.Dismiss {
		t.Fatalf("silent dismiss verdict = %q, want dismiss", v)
	}
	if got := s.Snapshot().CurrentStage; got != "alert" {
		t.Fatalf("stage after dismiss = %q, want alert", got)
	}

	s.Click(rules.Input{ActionID: "close-alert"})
	if got := s.Snapshot().CurrentStage; got != "update" {
		t.Fatalf("stage = %q, want update", got)
	}
	s.Click(rules.Input{ActionID: "skip-update"})
	if got := s.Snapshot().CurrentStage; got != "main" {
		t.Fatalf("stage = %q, want main", got)
	}

	for i := 0; i < 8; i++ {
		s.Tick()
	}
	if v := s.Click(rules.Input{ActionID: "open-real"}); v != rules.Advance {
		t.Fatalf("final click verdict = %q, want advance", v)
	}

	snap := s.Snapshot()
	if snap.Status != StatusSucceeded {
		t.Errorf("status = %q, want succeeded", snap.Status)
	}
	if snap.Score == nil || snap.Score.Raw != 1160 {
		t.Errorf("score = %+v, want raw 1160", snap.Score)
	}

	// This level persists the normalized scale.
	got := saver.all()
	if len(got) != 1 || got[0].Score != 10 {
		t.Errorf("saved attempts = %+v, want one attempt with score 10", got)
	}
}

func TestSequential_DecoyActIsFatal(t *testing.T) {
	s, saver := newSequential(t)
	s.Click(rules.Input{ActionID: "close-alert"})

	if v := s.Click(rules.Input{ActionID: "download-update"}); v != rules.PenalizeFail {
		t.Fatalf("decoy verdict = %q, want fail", v)
	}

	snap := s.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}
	if snap.Score == nil || snap.Score.Raw != 0 {
		t.Errorf("score = %+v, want raw 0", snap.Score)
	}
	if got := saver.all(); len(got) != 1 || got[0].Status != StatusFailed {
		t.Errorf("saved attempts = %+v, want one failed attempt", got)
	}
}

func TestTick_ExpiryIsFatal(t *testing.T) {
	s, _ := newSequential(t)
	for i := 0; i < 90; i++ {
		s.Tick()
	}

	snap := s.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}
	if snap.ElapsedSeconds != 90 {
		t.Errorf("elapsed = %d, want 90", snap.ElapsedSeconds)
	}
	if snap.Score == nil || snap.Score.Raw != 0 {
		t.Errorf("score = %+v, want raw 0", snap.Score)
	}
}

func TestTick_AfterTerminalIsNoOp(t *testing.T) {
	s, _ := newFlat(t)
	s.Click(rules.Input{ActionID: "real-notice"})

	before := s.Snapshot()
	s.Tick()
	s.Tick()
	after := s.Snapshot()
	if after.ElapsedSeconds != before.ElapsedSeconds {
		t.Errorf("elapsed moved from %d to %d after finish", before.ElapsedSeconds, after.ElapsedSeconds)
	}
	if after.Status != StatusSucceeded {
		t.Errorf("status = %q, want succeeded", after.Status)
	}
}

func TestClick_AfterTerminalIsIgnored(t *testing.T) {
	s, saver := newFlat(t)
	s.Click(rules.Input{ActionID: "real-notice"})

	if v := s.Click(rules.Input{ActionID: "verify-now"}); v != rules.Dismiss {
		t.Errorf("post-finish verdict = %q, want dismiss", v)
	}
	if snap := s.Snapshot(); snap.WrongClicks != 0 {
		t.Errorf("wrong clicks = %d, want 0", snap.WrongClicks)
	}
	if got := saver.all(); len(got) != 1 {
		t.Errorf("saved attempts = %d, want 1", len(got))
	}
}

func TestDismiss_NeverTouchesGroups(t *testing.T) {
	s, _ := newFlat(t)
	s.Click(rules.Input{ActionID: ""})
	s.Click(rules.Input{ActionID: "never-heard-of-it"})

	snap := s.Snapshot()
	if snap.WrongClicks != 0 {
		t.Errorf("wrong clicks = %d, want 0", snap.WrongClicks)
	}
	if len(snap.DecoyGroupsTouched) != 0 {
		t.Errorf("groups touched = %v, want empty", snap.DecoyGroupsTouched)
	}
}

func TestAbandon_SkipsPersistence(t *testing.T) {
	s, saver := newFlat(t)
	s.Tick()
	s.Click(rules.Input{ActionID: "verify-now"})
	s.Abandon()

	snap := s.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want failed", snap.Status)
	}
	if len(snap.Popups) != 0 {
		t.Errorf("popups after abandon = %d, want 0", len(snap.Popups))
	}
	if got := saver.all(); len(got) != 0 {
		t.Errorf("saved attempts = %+v, want none", got)
	}

	select {
	case <-s.Done():
	default:
		t.Error("done channel not closed after abandon")
	}
}

func TestNew_StartsRunning(t *testing.T) {
	s, _ := newFlat(t)
	if st := s.Status(); st != StatusRunning {
		t.Errorf("status = %q, want running", st)
	}
	snap := s.Snapshot()
	if snap.Score != nil {
		t.Errorf("running session exposes score %+v", snap.Score)
	}
	if snap.TimeLimitSeconds != 60 {
		t.Errorf("time limit = %d, want 60", snap.TimeLimitSeconds)
	}
}

func TestNilSaverIsSafe(t *testing.T) {
	s := New(flatLevel(), "player-1", events.NewBus(), nil)
	s.Click(rules.Input{ActionID: "real-notice"})
	if st := s.Status(); st != StatusSucceeded {
		t.Errorf("status = %q, want succeeded", st)
	}
}
