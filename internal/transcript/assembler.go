package transcript

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Speaker attributes a turn to one side of the conversation.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Turn is one finalized, speaker-attributed block of transcript text. It is
// immutable once created.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Assembler reconciles incremental transcript fragments into turns. It owns
// two accumulators, one per speaker; nothing else mutates them, and both are
// reset together at every turn boundary.
type Assembler struct {
	user  strings.Builder
	model strings.Builder
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// AppendUser adds an input-transcription delta. Concatenation is
// order-preserving with no deduplication.
func (a *Assembler) AppendUser(delta string) {
	a.user.WriteString(delta)
}

// AppendModel adds an output-transcription delta.
func (a *Assembler) AppendModel(delta string) {
	a.model.WriteString(delta)
}

// CommitTurn finalizes the current boundary: each non-empty accumulator
// (after trimming) becomes a Turn, user before model, and both accumulators
// reset regardless of whether anything was emitted.
func (a *Assembler) CommitTurn() []Turn {
	userText := strings.TrimSpace(a.user.String())
	modelText := strings.TrimSpace(a.model.String())
	a.user.Reset()
	a.model.Reset()

	var turns []Turn
	now := time.Now().UTC()
	if userText != "" {
		turns = append(turns, Turn{ID: uuid.NewString(), Speaker: SpeakerUser, Text: userText, CreatedAt: now})
	}
	if modelText != "" {
		turns = append(turns, Turn{ID: uuid.NewString(), Speaker: SpeakerModel, Text: modelText, CreatedAt: now})
	}
	return turns
}
