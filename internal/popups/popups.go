package popups

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"phishtrainer/internal/catalog"
)

// MaxActive bounds the number of simultaneously visible decoy popups.
const MaxActive = 3

// jitterPx is the maximum pixel offset applied to a popup's anchor in each
// axis. Cosmetic only; slot assignment stays deterministic.
const jitterPx = 8

// positions is the fixed discrete anchor set. One more anchor than the
// popup cap, so a free slot always exists.
var positions = []struct{ X, Y int }{
	{X: 60, Y: 80},
	{X: 340, Y: 140},
	{X: 150, Y: 260},
	{X: 420, Y: 50},
}

// Popup is one ephemeral deceptive window, exclusively owned by the session
// that spawned it.
type Popup struct {
	ID             string           `json:"id"`
	SourceLabel    string           `json:"source_label"`
	SourceGroupKey string           `json:"source_group_key,omitempty"`
	Content        catalog.Response `json:"content"`
	Slot           int              `json:"slot"`
	X              int              `json:"x"`
	Y              int              `json:"y"`
	SpawnedAt      time.Time        `json:"spawned_at"`
}

// Manager owns the bounded set of visible popups for one flat-mode session.
type Manager struct {
	mu             sync.Mutex
	responses      catalog.ResponseSet
	active         map[string]*Popup
	order          []string // spawn order, for stable snapshots
	fallbackCursor int
	slotSeq        []int // last assignment tick per slot
	seq            int
}

func NewManager(responses catalog.ResponseSet) *Manager {
	return &Manager{
		responses: responses,
		active:    make(map[string]*Popup),
		slotSeq:   make([]int, len(positions)),
	}
}

// Spawn creates a popup for a wrong click on the given decoy. Returns nil
// when the active set is already at capacity.
func (m *Manager) Spawn(label, groupKey string) *Popup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.active) >= MaxActive {
		return nil
	}

	content, usedFallback := m.responses.Resolve(label, groupKey, m.fallbackCursor)
	if usedFallback {
		m.fallbackCursor++
	}

	slot := m.pickSlot()
	m.seq++
	m.slotSeq[slot] = m.seq

	p := &Popup{
		ID:             uuid.New().String(),
		SourceLabel:    label,
		SourceGroupKey: groupKey,
		Content:        content,
		Slot:           slot,
		X:              positions[slot].X + rand.Intn(2*jitterPx+1) - jitterPx,
		Y:              positions[slot].Y + rand.Intn(2*jitterPx+1) - jitterPx,
		SpawnedAt:      time.Now(),
	}
	m.active[p.ID] = p
	m.order = append(m.order, p.ID)
	return p
}

// pickSlot returns the first unoccupied anchor slot, or the least recently
// assigned one if every slot is somehow occupied.
func (m *Manager) pickSlot() int {
	occupied := make([]bool, len(positions))
	for _, p := range m.active {
		occupied[p.Slot] = true
	}
	for i := range positions {
		if !occupied[i] {
			return i
		}
	}
	oldest := 0
	for i := range m.slotSeq {
		if m.slotSeq[i] < m.slotSeq[oldest] {
			oldest = i
		}
	}
	return oldest
}

// Get returns the active popup with the given id, or nil.
func (m *Manager) Get(id string) *Popup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}

// Dismiss retires a popup. Reports whether it was active.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[id]; !ok {
		return false
	}
	delete(m.active, id)
	m.dropFromOrder(id)
	return true
}

// ClearAll retires every popup. Called when the owning session ends.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[string]*Popup)
	m.order = nil
}

// Active returns the visible popups in spawn order.
func (m *Manager) Active() []Popup {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]Popup, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.active[id]; ok {
			list = append(list, *p)
		}
	}
	return list
}

func (m *Manager) dropFromOrder(id string) {
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
