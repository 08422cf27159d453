package persona

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Voice identifies one of the prebuilt synthesis voices.
type Voice string

const (
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceKore   Voice = "Kore"
	VoiceFenrir Voice = "Fenrir"
	VoiceAoede  Voice = "Aoede"
)

var ErrInvalidPersona = errors.New("invalid persona")

// Persona configures how the assistant introduces itself and speaks.
type Persona struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	Voice       Voice  `json:"voice"`
}

// Default is the persona used when none has been configured.
func Default() Persona {
	return Persona{
		Name:        "Aria",
		Instruction: "You are Aria, a warm and concise voice assistant. Keep replies short enough to speak aloud.",
		Voice:       VoiceAoede,
	}
}

func validVoice(v Voice) bool {
	switch v {
	case VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir, VoiceAoede:
		return true
	}
	return false
}

// Validate reports whether the persona is usable for a live session.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPersona)
	}
	if strings.TrimSpace(p.Instruction) == "" {
		return fmt.Errorf("%w: instruction is required", ErrInvalidPersona)
	}
	if !validVoice(p.Voice) {
		return fmt.Errorf("%w: unknown voice %q", ErrInvalidPersona, p.Voice)
	}
	return nil
}

// Holder keeps the currently selected persona. Updates take effect on the
// next session start, never mid-session.
type Holder struct {
	mu      sync.RWMutex
	current Persona
}

func NewHolder() *Holder {
	return &Holder{current: Default()}
}

func (h *Holder) Current() Persona {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Holder) Set(p Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.current = p
	h.mu.Unlock()
	return nil
}
