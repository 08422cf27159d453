package transcript

import "sync"

// Log is the ordered, append-only list of finalized turns shown by the
// history UI. Clear is the only destructive operation and is invoked only by
// that UI.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turns...)
}

// Turns returns a copy of the log in append order.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
