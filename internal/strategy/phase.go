package strategy

import "sync"

type Phase string

type Event string

const (
	PhaseActive Phase = "ACTIVE"
	PhaseHalted Phase = "HALTED"
)

const (
	EventStopLoss Event = "STOP_LOSS"
)

// Latch is the strategy's one-way phase machine. The only legal transition
// is Active to Halted; once halted it never goes back.
type Latch struct {
	mu    sync.Mutex
	phase Phase
}

func NewLatch() *Latch {
	return &Latch{phase: PhaseActive}
}

func (l *Latch) Apply(event Event) Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = nextPhase(l.phase, event)
	return l.phase
}

func (l *Latch) Current() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

func nextPhase(current Phase, event Event) Phase {
	if current == PhaseActive && event == EventStopLoss {
		return PhaseHalted
	}
	return current
}
