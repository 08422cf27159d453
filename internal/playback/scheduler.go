package playback

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/audio"
)

// Device is the output-side collaborator: it accepts buffers scheduled at an
// absolute device time and reports the current device clock. The frequency
// snapshot feeds the waveform visualizer and is not part of the correctness
// contract.
type Device interface {
	Now() float64
	Play(item audio.Item, startAt float64, done func()) (Handle, error)
	FrequencySnapshot() []byte
	Release()
}

// Handle controls one in-flight buffer on the device.
type Handle interface {
	Stop()
}

// Scheduler owns the virtual clock and the set of in-flight playback items.
// Items from one stream are scheduled strictly back to back: the clock, not
// wall-clock arrival order, decides start times.
type Scheduler struct {
	device Device
	logger *zap.Logger

	mu     sync.Mutex
	clock  float64
	gen    uint64
	nextID uint64
	active map[uint64]Handle
}

func NewScheduler(device Device, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		device: device,
		logger: logger,
		active: make(map[uint64]Handle),
	}
}

// Schedule queues one decoded item to start at max(virtual clock, device now)
// and advances the clock past it.
func (s *Scheduler) Schedule(item audio.Item) error {
	s.mu.Lock()
	start := s.clock
	if now := s.device.Now(); now > start {
		start = now
	}
	s.clock = start + item.Duration.Seconds()
	s.nextID++
	id := s.nextID
	gen := s.gen
	s.mu.Unlock()

	handle, err := s.device.Play(item, start, func() { s.remove(id) })
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		// Flushed while the device call was in flight; the item must not
		// outlive the interruption.
		s.mu.Unlock()
		handle.Stop()
		return nil
	}
	s.active[id] = handle
	s.mu.Unlock()
	return nil
}

// Flush stops every in-flight item and resets the virtual clock to zero. The
// next scheduled item starts fresh relative to the current device time.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	handles := make([]Handle, 0, len(s.active))
	for _, h := range s.active {
		handles = append(handles, h)
	}
	s.active = make(map[uint64]Handle)
	s.clock = 0
	s.gen++
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
	if len(handles) > 0 {
		s.logger.Debug("playback flushed", zap.Int("stopped_items", len(handles)))
	}
}

// Stop flushes and releases the output routing. The scheduler must not be
// used again until the next session wires a fresh device.
func (s *Scheduler) Stop() {
	s.Flush()
	s.device.Release()
}

// Clock reports the current virtual clock value in seconds.
func (s *Scheduler) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// ActiveCount reports how many items are currently in flight.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}
