package history

import (
	"context"

	"github.com/ariavoice/aria/internal/transcript"
)

// Store persists finalized transcript turns across sessions. Persistence is
// best effort: the live transcript log is the source of truth for the UI.
type Store interface {
	SaveTurn(ctx context.Context, sessionID string, turn transcript.Turn) error
	RecentTurns(ctx context.Context, limit int) ([]transcript.Turn, error)
	Close() error
}
