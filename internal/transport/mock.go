package transport

import (
	"context"
	"math"
	"sync"

	"github.com/ariavoice/aria/internal/audio"
)

// MockDialer is a local fallback used when no API key is configured. Sessions
// open immediately and answer every few seconds of audio (or any text) with a
// canned spoken reply, so the full pipeline can run without the live service.
type MockDialer struct{}

func NewMockDialer() *MockDialer { return &MockDialer{} }

func (d *MockDialer) Open(_ context.Context, cfg Config) (Session, error) {
	outRate := cfg.OutputSampleRate
	if outRate <= 0 {
		outRate = 24000
	}
	s := &mockSession{
		outRate: outRate,
		events:  make(chan Event, 64),
	}
	s.events <- Event{Opened: true}
	return s, nil
}

type mockSession struct {
	mu      sync.Mutex
	outRate int
	events  chan Event
	chunks  int
	replies int
	closed  bool
}

func (s *mockSession) SendAudio(_ audio.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.chunks++
	// Roughly every three seconds of 4096-sample frames at 16 kHz.
	if s.chunks%12 == 0 {
		s.replyLocked("simulated voice input")
	}
}

func (s *mockSession) SendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || text == "" {
		return
	}
	s.replyLocked("")
}

func (s *mockSession) replyLocked(heard string) {
	s.replies++
	if heard != "" {
		s.events <- Event{InputTranscriptDelta: heard}
	}
	s.events <- Event{OutputTranscriptDelta: "Okay. "}
	s.events <- Event{
		OutputTranscriptDelta: "I'm listening.",
		Audio:                 s.toneChunk(),
	}
	s.events <- Event{TurnComplete: true}
}

// toneChunk synthesizes 300ms of a soft tone at the output rate.
func (s *mockSession) toneChunk() *audio.Chunk {
	n := s.outRate * 3 / 10
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*440*float64(i)/float64(s.outRate)))
	}
	chunk := audio.Encode(audio.Frame{Samples: samples, SampleRate: s.outRate})
	return &chunk
}

func (s *mockSession) Events() <-chan Event { return s.events }

func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.events <- Event{Closed: true}
	close(s.events)
	return nil
}
