package playback

import (
	"sync"
	"time"

	"github.com/ariavoice/aria/internal/audio"
)

// WallClockDevice is the output device wired into the running binary. Its
// clock is real time since construction and each item completes on its own
// timer, so the scheduler's active set drains without an external driver.
// The actual audio routing lives in the presentation layer; this device
// models only the timing contract.
type WallClockDevice struct {
	epoch time.Time

	mu       sync.Mutex
	released bool
	nextID   int
	playing  map[int]*time.Timer
}

func NewWallClockDevice() *WallClockDevice {
	return &WallClockDevice{
		epoch:   time.Now(),
		playing: make(map[int]*time.Timer),
	}
}

func (d *WallClockDevice) Now() float64 {
	return time.Since(d.epoch).Seconds()
}

func (d *WallClockDevice) Play(item audio.Item, startAt float64, done func()) (Handle, error) {
	delay := time.Duration((startAt + item.Duration.Seconds() - d.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		// Routing is torn down; the item is dropped silently.
		return noopHandle{}, nil
	}
	d.nextID++
	id := d.nextID
	d.playing[id] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		_, live := d.playing[id]
		delete(d.playing, id)
		d.mu.Unlock()
		// A stopped or released item must not report completion.
		if live && done != nil {
			done()
		}
	})
	return &wallClockHandle{device: d, id: id}, nil
}

func (d *WallClockDevice) FrequencySnapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.playing) == 0 {
		return nil
	}
	bins := make([]byte, 32)
	for i := range bins {
		bins[i] = 128
	}
	return bins
}

func (d *WallClockDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	for id, timer := range d.playing {
		timer.Stop()
		delete(d.playing, id)
	}
}

// PlayingCount reports items whose completion timer has not fired yet.
func (d *WallClockDevice) PlayingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.playing)
}

type noopHandle struct{}

func (noopHandle) Stop() {}

type wallClockHandle struct {
	device *WallClockDevice
	id     int
}

func (h *wallClockHandle) Stop() {
	h.device.mu.Lock()
	defer h.device.mu.Unlock()
	if timer, ok := h.device.playing[h.id]; ok {
		timer.Stop()
		delete(h.device.playing, h.id)
	}
}
