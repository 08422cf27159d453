package playback

import (
	"sync"

	"github.com/ariavoice/aria/internal/audio"
)

// SimDevice is a headless output device used in mock mode and tests. Its
// clock only moves when Advance is called, which makes scheduling behavior
// deterministic to observe.
type SimDevice struct {
	mu       sync.Mutex
	now      float64
	released bool
	nextID   int
	playing  map[int]*simVoice
	starts   []float64
}

type simVoice struct {
	end     float64
	done    func()
	stopped bool
}

func NewSimDevice() *SimDevice {
	return &SimDevice{playing: make(map[int]*simVoice)}
}

func (d *SimDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *SimDevice) Play(item audio.Item, startAt float64, done func()) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.playing[id] = &simVoice{end: startAt + item.Duration.Seconds(), done: done}
	d.starts = append(d.starts, startAt)
	return &simHandle{device: d, id: id}, nil
}

func (d *SimDevice) FrequencySnapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.playing) == 0 {
		return nil
	}
	// Flat mid-level spectrum while anything is playing.
	bins := make([]byte, 32)
	for i := range bins {
		bins[i] = 128
	}
	return bins
}

func (d *SimDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

// Advance moves the device clock forward and completes items whose scheduled
// end has passed.
func (d *SimDevice) Advance(seconds float64) {
	d.mu.Lock()
	d.now += seconds
	var finished []func()
	for id, v := range d.playing {
		if v.end <= d.now && !v.stopped {
			if v.done != nil {
				finished = append(finished, v.done)
			}
			delete(d.playing, id)
		}
	}
	d.mu.Unlock()

	for _, done := range finished {
		done()
	}
}

// StartTimes returns every start time handed to Play, in submission order.
func (d *SimDevice) StartTimes() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, len(d.starts))
	copy(out, d.starts)
	return out
}

// PlayingCount reports items the device still considers live.
func (d *SimDevice) PlayingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.playing)
}

// Released reports whether the output routing was torn down.
func (d *SimDevice) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type simHandle struct {
	device *SimDevice
	id     int
}

func (h *simHandle) Stop() {
	h.device.mu.Lock()
	defer h.device.mu.Unlock()
	if v, ok := h.device.playing[h.id]; ok {
		v.stopped = true
		delete(h.device.playing, h.id)
	}
}
