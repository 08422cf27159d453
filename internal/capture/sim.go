package capture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ariavoice/aria/internal/audio"
)

// SimMicrophone is a headless source for mock mode: it delivers a quiet sine
// tone in fixed frames at the capture rate until stopped.
type SimMicrophone struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSimMicrophone() *SimMicrophone {
	return &SimMicrophone{}
}

func (m *SimMicrophone) Start(ctx context.Context, deliver func(audio.Frame)) error {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	interval := time.Duration(FrameSize) * time.Second / SampleRate
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		phase := 0.0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame := audio.Frame{SampleRate: SampleRate, Samples: make([]float32, FrameSize)}
				for i := range frame.Samples {
					frame.Samples[i] = float32(0.05 * math.Sin(phase))
					phase += 2 * math.Pi * 220 / SampleRate
				}
				deliver(frame)
			}
		}
	}()
	return nil
}

func (m *SimMicrophone) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
