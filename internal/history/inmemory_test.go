package history

import (
	"context"
	"testing"
	"time"

	"github.com/ariavoice/aria/internal/transcript"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		err := s.SaveTurn(ctx, "sess-1", transcript.Turn{
			Speaker:   transcript.SpeakerUser,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	recent, err := s.RecentTurns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentTurns() returned %d, want 2", len(recent))
	}
	if recent[0].Text != "b" || recent[1].Text != "c" {
		t.Fatalf("recent order = %q,%q, want b,c", recent[0].Text, recent[1].Text)
	}
	if recent[0].ID == "" {
		t.Fatalf("SaveTurn did not assign an id")
	}
}

func TestInMemoryStoreEmptyRecent(t *testing.T) {
	s := NewInMemoryStore()
	recent, err := s.RecentTurns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if recent != nil {
		t.Fatalf("RecentTurns() on empty store = %v, want nil", recent)
	}
}
