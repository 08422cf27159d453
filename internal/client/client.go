package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/audio"
	"github.com/ariavoice/aria/internal/capture"
	"github.com/ariavoice/aria/internal/history"
	"github.com/ariavoice/aria/internal/observability"
	"github.com/ariavoice/aria/internal/persona"
	"github.com/ariavoice/aria/internal/playback"
	"github.com/ariavoice/aria/internal/reliability"
	"github.com/ariavoice/aria/internal/transcript"
	"github.com/ariavoice/aria/internal/transport"
)

// State is the client session lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// ErrSessionActive reports a Start while a session is already running or
// being established.
var ErrSessionActive = errors.New("client: session already active")

const persistTimeout = 3 * time.Second

// Options wires the client's collaborators. Dialer, Mic and NewDevice are
// required; the rest default to no-ops or in-memory equivalents.
type Options struct {
	Dialer           transport.Dialer
	Mic              capture.Source
	NewDevice        func() (playback.Device, error)
	Personas         *persona.Holder
	History          history.Store
	Metrics          *observability.Metrics
	Latency          *observability.LatencyWindow
	Logger           *zap.Logger
	OutputSampleRate int
}

// Client drives one voice session at a time: microphone capture through the
// transport, and inbound audio through the playback scheduler. All methods
// are safe for concurrent use.
type Client struct {
	dialer     transport.Dialer
	mic        capture.Source
	newDevice  func() (playback.Device, error)
	personas   *persona.Holder
	store      history.Store
	metrics    *observability.Metrics
	latency    *observability.LatencyWindow
	logger     *zap.Logger
	outputRate int

	log *transcript.Log

	mu      sync.Mutex
	state   State
	gen     uint64
	lastErr error
	run     *run
}

// run bundles the per-session moving parts so a raced Stop can tear down
// exactly the session it targets.
type run struct {
	sessionID string
	sess      transport.Session
	sched     *playback.Scheduler
	device    playback.Device
	pipe      *capture.Pipeline
	cancelMic context.CancelFunc
	greeting  string
	startedAt time.Time
	once      sync.Once

	// Touched only from the event loop goroutine.
	gotFirstAudio bool
	asm           *transcript.Assembler
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	personas := opts.Personas
	if personas == nil {
		personas = persona.NewHolder()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsWith(prometheus.NewRegistry(), "aria")
	}
	latency := opts.Latency
	if latency == nil {
		latency = observability.NewLatencyWindow(256)
	}
	outputRate := opts.OutputSampleRate
	if outputRate <= 0 {
		outputRate = 24000
	}
	return &Client{
		dialer:     opts.Dialer,
		mic:        opts.Mic,
		newDevice:  opts.NewDevice,
		personas:   personas,
		store:      opts.History,
		metrics:    metrics,
		latency:    latency,
		logger:     logger,
		outputRate: outputRate,
		log:        transcript.NewLog(),
		state:      StateDisconnected,
	}
}

// Start establishes a new session with the current persona. The greeting, if
// non-empty, is spoken by the assistant once the channel opens. Only one
// session may run at a time.
func (c *Client) Start(ctx context.Context, greeting string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = StateConnecting
	c.lastErr = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	p := c.personas.Current()
	cfg := transport.Config{
		Instruction:         p.Instruction,
		VoiceID:             string(p.Voice),
		InputSampleRate:     capture.SampleRate,
		OutputSampleRate:    c.outputRate,
		InputTranscription:  true,
		OutputTranscription: true,
	}

	sess, err := c.dialer.Open(ctx, cfg)
	if err != nil {
		return c.failStart(gen, err)
	}

	device, err := c.newDevice()
	if err != nil {
		_ = sess.Close()
		return c.failStart(gen, fmt.Errorf("acquire output device: %w", err))
	}

	r := &run{
		sessionID: uuid.NewString(),
		sess:      sess,
		sched:     playback.NewScheduler(device, c.logger),
		device:    device,
		greeting:  greeting,
		startedAt: time.Now(),
		asm:       transcript.NewAssembler(),
	}
	r.pipe = capture.NewPipeline(sess.SendAudio, c.logger)

	micCtx, cancelMic := context.WithCancel(context.Background())
	r.cancelMic = cancelMic
	if err := c.mic.Start(micCtx, r.pipe.OnFrame); err != nil {
		cancelMic()
		_ = sess.Close()
		r.sched.Stop()
		return c.failStart(gen, fmt.Errorf("%w: %v", capture.ErrPermission, err))
	}

	c.mu.Lock()
	if c.gen != gen {
		// Stop raced the connect; the session never becomes visible.
		c.mu.Unlock()
		c.teardown(r, nil)
		return nil
	}
	c.run = r
	c.mu.Unlock()

	c.logger.Info("session starting",
		zap.String("session_id", r.sessionID),
		zap.String("persona", p.Name),
		zap.String("voice", string(p.Voice)))

	go c.eventLoop(r)
	return nil
}

func (c *Client) failStart(gen uint64, err error) error {
	c.mu.Lock()
	if c.gen == gen {
		c.state = StateDisconnected
		c.lastErr = err
	}
	c.mu.Unlock()
	c.metrics.SessionEvents.WithLabelValues("start_failed").Inc()
	c.logger.Warn("session start failed", zap.Error(err))
	return err
}

// Stop ends the current session, if any. Safe to call from any state and
// any number of times.
func (c *Client) Stop() {
	c.mu.Lock()
	r := c.run
	if r == nil {
		if c.state == StateConnecting {
			// Invalidate a Start still in flight.
			c.state = StateDisconnected
			c.gen++
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.teardown(r, nil)
}

func (c *Client) eventLoop(r *run) {
	for ev := range r.sess.Events() {
		c.handleEvent(r, ev)
	}
	c.teardown(r, nil)
}

func (c *Client) handleEvent(r *run, ev transport.Event) {
	// Disconnected gate: events drained after this run was torn down are
	// discarded, not applied.
	c.mu.Lock()
	stale := c.run != r
	c.mu.Unlock()
	if stale {
		return
	}

	if ev.Err != nil {
		c.metrics.TransportEvents.WithLabelValues("error").Inc()
		c.logger.Error("transport failure, ending session", zap.Error(ev.Err))
		c.teardown(r, ev.Err)
		return
	}

	if ev.Opened {
		c.metrics.TransportEvents.WithLabelValues("opened").Inc()
		c.mu.Lock()
		opened := c.run == r && c.state == StateConnecting
		if opened {
			c.state = StateConnected
		}
		c.mu.Unlock()
		// Only the connecting->connected transition greets and counts; a
		// duplicate opened event from the session is a no-op.
		if opened {
			c.metrics.SessionActive.Set(1)
			c.metrics.SessionEvents.WithLabelValues("connected").Inc()
			c.latency.Observe(observability.StageStartToOpen, time.Since(r.startedAt))
			c.logger.Info("session connected", zap.String("session_id", r.sessionID))
			if r.greeting != "" {
				r.sess.SendText(r.greeting)
			}
		}
	}

	if ev.Audio != nil {
		c.metrics.TransportEvents.WithLabelValues("audio").Inc()
		item, err := audio.Decode(ev.Audio.Data, ev.Audio.SampleRate, ev.Audio.Channels)
		if err != nil {
			// A bad chunk is dropped; the stream carries on.
			c.metrics.DecodeFailures.Inc()
			c.logger.Warn("dropping undecodable audio chunk", zap.Error(err))
		} else {
			if !r.gotFirstAudio {
				r.gotFirstAudio = true
				c.metrics.ObserveFirstAudioLatency(time.Since(r.startedAt))
				c.latency.Observe(observability.StageStartToFirstAudio, time.Since(r.startedAt))
			}
			if err := r.sched.Schedule(item); err != nil {
				c.logger.Warn("playback schedule failed", zap.Error(err))
			} else {
				c.metrics.ScheduledAudioSec.Add(item.Duration.Seconds())
			}
		}
	}

	if ev.InputTranscriptDelta != "" {
		r.asm.AppendUser(ev.InputTranscriptDelta)
	}
	if ev.OutputTranscriptDelta != "" {
		r.asm.AppendModel(ev.OutputTranscriptDelta)
	}

	if ev.TurnComplete {
		c.metrics.TransportEvents.WithLabelValues("turn_complete").Inc()
		turns := r.asm.CommitTurn()
		for _, turn := range turns {
			c.log.Append(turn)
			c.metrics.TurnsCommitted.WithLabelValues(string(turn.Speaker)).Inc()
		}
		if len(turns) > 0 && c.store != nil {
			// Persistence is best effort and retries with backoff; it must
			// not stall the event loop between turn boundaries.
			go func() {
				for _, turn := range turns {
					c.persistTurn(r.sessionID, turn)
				}
			}()
		}
	}

	if ev.Interrupted {
		c.metrics.TransportEvents.WithLabelValues("interrupted").Inc()
		c.logger.Debug("generation interrupted, flushing playback")
		r.sched.Flush()
	}

	if ev.Closed {
		c.metrics.TransportEvents.WithLabelValues("closed").Inc()
		c.teardown(r, nil)
	}
}

func (c *Client) persistTurn(sessionID string, turn transcript.Turn) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := reliability.Retry(ctx, 3, 100*time.Millisecond, time.Second, func(ctx context.Context) error {
		return c.store.SaveTurn(ctx, sessionID, turn)
	})
	if err != nil {
		// Best effort: the in-memory log already has the turn.
		c.logger.Warn("turn persistence failed",
			zap.String("turn_id", turn.ID), zap.Error(err))
	}
}

func (c *Client) teardown(r *run, cause error) {
	r.once.Do(func() {
		r.pipe.Stop()
		r.cancelMic()
		c.mic.Stop()
		if err := r.sess.Close(); err != nil {
			c.logger.Debug("session close", zap.Error(err))
		}
		r.sched.Stop()
		c.metrics.SessionActive.Set(0)
		c.metrics.SessionEvents.WithLabelValues("stopped").Inc()
		c.logger.Info("session stopped", zap.String("session_id", r.sessionID))
	})

	c.mu.Lock()
	if c.run == r {
		c.run = nil
		c.state = StateDisconnected
		c.gen++
		if cause != nil {
			c.lastErr = cause
		}
	}
	c.mu.Unlock()
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError reports the most recent session-ending failure. It is cleared by
// the next Start.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot is a point-in-time view of the session for the status API.
type Snapshot struct {
	State         State   `json:"state"`
	SessionID     string  `json:"session_id,omitempty"`
	LastError     string  `json:"last_error,omitempty"`
	PlaybackClock float64 `json:"playback_clock_seconds"`
	ActiveItems   int     `json:"active_playback_items"`
	Intensity     float64 `json:"intensity"`
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{State: c.state}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	r := c.run
	c.mu.Unlock()

	if r != nil {
		snap.SessionID = r.sessionID
		snap.PlaybackClock = r.sched.Clock()
		snap.ActiveItems = r.sched.ActiveCount()
		snap.Intensity = audio.Intensity(r.device.FrequencySnapshot())
	}
	return snap
}

// Latency reports recent session stage latencies.
func (c *Client) Latency() observability.LatencySnapshot {
	return c.latency.Snapshot()
}

// Transcript returns the finalized turns of the live transcript log.
func (c *Client) Transcript() []transcript.Turn {
	return c.log.Turns()
}

// ClearTranscript empties the live transcript log. Persisted history is
// unaffected.
func (c *Client) ClearTranscript() {
	c.log.Clear()
}
