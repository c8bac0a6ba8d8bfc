package events

type StatusChangeEvent struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type StageChangeEvent struct {
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
}

type PopupEvent struct {
	SessionID string `json:"session_id"`
	PopupID   string `json:"popup_id"`
	Spawned   bool   `json:"spawned"`
}

type TickEvent struct {
	SessionID string `json:"session_id"`
	Elapsed   int    `json:"elapsed"`
}

// Bus carries engine state changes to whoever renders them. Sends are
// non-blocking; a bus nobody drains just drops events.
type Bus struct {
	StatusChanges chan StatusChangeEvent
	StageChanges  chan StageChangeEvent
	PopupChanges  chan PopupEvent
	Ticks         chan TickEvent
}

func NewBus() *Bus {
	return &Bus{
		StatusChanges: make(chan StatusChangeEvent, 10),
		StageChanges:  make(chan StageChangeEvent, 10),
		PopupChanges:  make(chan PopupEvent, 10),
		Ticks:         make(chan TickEvent, 10),
	}
}

func (b *Bus) PublishStatus(ev StatusChangeEvent) {
	select {
	case b.StatusChanges <- ev:
	default:
	}
}

func (b *Bus) PublishStage(ev StageChangeEvent) {
	select {
	case b.StageChanges <- ev:
	default:
	}
}

func (b *Bus) PublishPopup(ev PopupEvent) {
	select {
	case b.PopupChanges <- ev:
	default:
	}
}

func (b *Bus) PublishTick(ev TickEvent) {
	select {
	case b.Ticks <- ev:
	default:
	}
}
