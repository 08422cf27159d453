package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/audio"
)

// RealtimeConfig selects the live websocket endpoint.
type RealtimeConfig struct {
	WSBaseURL string
	APIKey    string
	Model     string
}

// RealtimeDialer speaks the provider's bidirectional JSON framing over a
// websocket: one setup message, then realtime audio/text input upstream and
// server content events downstream.
type RealtimeDialer struct {
	cfg    RealtimeConfig
	logger *zap.Logger
}

func NewRealtimeDialer(cfg RealtimeConfig, logger *zap.Logger) *RealtimeDialer {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://generativelanguage.googleapis.com"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash-live-001"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeDialer{cfg: cfg, logger: logger}
}

// Handle states. A pending handle becomes open when the server acknowledges
// setup, and closed exactly once after that; sends outside open are no-ops.
const (
	statePending int32 = iota
	stateOpen
	stateClosed
)

type realtimeSession struct {
	conn      *websocket.Conn
	logger    *zap.Logger
	outRate   int
	writeMu   sync.Mutex
	closeOnce sync.Once
	state     atomic.Int32
	events    chan Event
}

// Wire shapes. The framing is provider-defined; only the fields the client
// consumes are modeled.
type setupMessage struct {
	Setup setupBody `json:"setup"`
}

type setupBody struct {
	Model               string            `json:"model"`
	SystemInstruction   string            `json:"systemInstruction,omitempty"`
	Voice               string            `json:"voice,omitempty"`
	ResponseModalities  []string          `json:"responseModalities"`
	InputTranscription  *transcriptionCfg `json:"inputAudioTranscription,omitempty"`
	OutputTranscription *transcriptionCfg `json:"outputAudioTranscription,omitempty"`
}

type transcriptionCfg struct{}

type realtimeInputMessage struct {
	RealtimeInput realtimeInputBody `json:"realtimeInput"`
}

type realtimeInputBody struct {
	Audio *inlineBlob `json:"audio,omitempty"`
	Text  string      `json:"text,omitempty"`
}

type inlineBlob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type serverMessage struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *serverContentBody `json:"serverContent,omitempty"`
	Error         *serverErrorBody   `json:"error,omitempty"`
}

type serverContentBody struct {
	ModelTurn           *modelTurnBody  `json:"modelTurn,omitempty"`
	OutputTranscription *transcriptText `json:"outputTranscription,omitempty"`
	InputTranscription  *transcriptText `json:"inputTranscription,omitempty"`
	TurnComplete        bool            `json:"turnComplete,omitempty"`
	Interrupted         bool            `json:"interrupted,omitempty"`
}

type modelTurnBody struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	InlineData *inlineBlob `json:"inlineData,omitempty"`
}

type transcriptText struct {
	Text string `json:"text"`
}

type serverErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d *RealtimeDialer) Open(ctx context.Context, cfg Config) (Session, error) {
	u, err := url.Parse(strings.TrimRight(d.cfg.WSBaseURL, "/") + "/v1/live")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	q := u.Query()
	q.Set("model", d.cfg.Model)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	if d.cfg.APIKey != "" {
		headers.Set("x-goog-api-key", d.cfg.APIKey)
	}

	// Opening is single-shot: a failed handshake surfaces as ErrConnect and
	// the caller decides whether to start a fresh session.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
	}

	outRate := cfg.OutputSampleRate
	if outRate <= 0 {
		outRate = 24000
	}
	s := &realtimeSession{
		conn:    conn,
		logger:  d.logger,
		outRate: outRate,
		events:  make(chan Event, 256),
	}

	setup := setupMessage{Setup: setupBody{
		Model:              d.cfg.Model,
		SystemInstruction:  cfg.Instruction,
		Voice:              cfg.VoiceID,
		ResponseModalities: []string{"AUDIO"},
	}}
	if cfg.InputTranscription {
		setup.Setup.InputTranscription = &transcriptionCfg{}
	}
	if cfg.OutputTranscription {
		setup.Setup.OutputTranscription = &transcriptionCfg{}
	}
	if err := s.writeJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: setup: %v", ErrConnect, err)
	}

	go s.readLoop()
	return s, nil
}

func (s *realtimeSession) SendAudio(chunk audio.Chunk) {
	if s.state.Load() != stateOpen {
		return
	}
	rate := chunk.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	msg := realtimeInputMessage{RealtimeInput: realtimeInputBody{
		Audio: &inlineBlob{
			Data:     chunk.Data,
			MimeType: "audio/pcm;rate=" + strconv.Itoa(rate),
		},
	}}
	if err := s.writeJSON(msg); err != nil {
		s.logger.Debug("audio send dropped", zap.Error(err))
	}
}

func (s *realtimeSession) SendText(text string) {
	if s.state.Load() != stateOpen {
		return
	}
	msg := realtimeInputMessage{RealtimeInput: realtimeInputBody{Text: text}}
	if err := s.writeJSON(msg); err != nil {
		s.logger.Debug("text send dropped", zap.Error(err))
	}
}

func (s *realtimeSession) Events() <-chan Event { return s.events }

func (s *realtimeSession) Close() error {
	var retErr error
	s.closeOnce.Do(func() {
		s.state.Store(stateClosed)
		retErr = s.conn.Close()
	})
	return retErr
}

func (s *realtimeSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *realtimeSession) readLoop() {
	// The consumer drains Events until it is closed, so the terminal event
	// can be delivered unconditionally.
	defer func() {
		s.state.Store(stateClosed)
		s.closeOnce.Do(func() { _ = s.conn.Close() })
		s.events <- Event{Closed: true}
		close(s.events)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.state.Load() != stateClosed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events <- Event{Err: fmt.Errorf("transport: read: %w", err)}
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("unparseable server message", zap.Error(err))
			continue
		}

		if msg.SetupComplete != nil {
			// Only a pending handle can open; a racing Close wins.
			if s.state.CompareAndSwap(statePending, stateOpen) {
				s.events <- Event{Opened: true}
			}
			continue
		}
		if msg.Error != nil {
			s.events <- Event{Err: fmt.Errorf("transport: server error %s: %s", msg.Error.Code, msg.Error.Message)}
			continue
		}
		if msg.ServerContent == nil {
			continue
		}

		ev := Event{
			TurnComplete: msg.ServerContent.TurnComplete,
			Interrupted:  msg.ServerContent.Interrupted,
		}
		if tr := msg.ServerContent.OutputTranscription; tr != nil {
			ev.OutputTranscriptDelta = tr.Text
		}
		if tr := msg.ServerContent.InputTranscription; tr != nil {
			ev.InputTranscriptDelta = tr.Text
		}
		if mt := msg.ServerContent.ModelTurn; mt != nil {
			for _, part := range mt.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				ev.Audio = &audio.Chunk{
					Data:       part.InlineData.Data,
					SampleRate: rateFromMimeType(part.InlineData.MimeType, s.outRate),
					Channels:   1,
				}
				break
			}
		}
		s.events <- ev
	}
}

// rateFromMimeType extracts the rate parameter from values like
// "audio/pcm;rate=24000", falling back to the configured output rate.
func rateFromMimeType(mimeType string, fallback int) int {
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return fallback
}
