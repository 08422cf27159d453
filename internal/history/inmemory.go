package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariavoice/aria/internal/transcript"
)

// InMemoryStore is a simple in-process history store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns []transcript.Turn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, _ string, turn transcript.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns = append(s.turns, turn)
	return nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, limit int) ([]transcript.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.turns) {
		limit = len(s.turns)
	}
	out := make([]transcript.Turn, 0, limit)
	for i := len(s.turns) - limit; i < len(s.turns); i++ {
		out = append(out, s.turns[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
