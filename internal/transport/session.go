package transport

import (
	"context"
	"errors"

	"github.com/ariavoice/aria/internal/audio"
)

// ErrConnect reports that the bidirectional channel could not be opened.
// Mid-session failures are delivered through the event stream instead.
var ErrConnect = errors.New("transport: connect failed")

// Config is everything the remote service needs at session open: the persona
// instruction, the voice to synthesize with, and transcription flags for both
// directions. Response modality is always audio.
type Config struct {
	Instruction         string
	VoiceID             string
	InputSampleRate     int
	OutputSampleRate    int
	InputTranscription  bool
	OutputTranscription bool
}

// Event is one entry of the ordered server event stream. Several payload
// fields may be set on a single event; consumers check each independently.
type Event struct {
	Opened                bool
	Audio                 *audio.Chunk
	OutputTranscriptDelta string
	InputTranscriptDelta  string
	TurnComplete          bool
	Interrupted           bool
	Err                   error
	Closed                bool
}

// Session is one open bidirectional channel. Sends are fire-and-forget and
// become no-ops once the handle leaves the open state; Close is idempotent.
// The Events channel is closed after the final Closed event.
type Session interface {
	SendAudio(chunk audio.Chunk)
	SendText(text string)
	Events() <-chan Event
	Close() error
}

// Dialer opens sessions against the remote conversational service.
type Dialer interface {
	Open(ctx context.Context, cfg Config) (Session, error)
}
