package capture

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ariavoice/aria/internal/audio"
)

// ErrPermission reports that the microphone stream could not be acquired.
var ErrPermission = errors.New("capture: microphone unavailable")

// FrameSize is the fixed capture window in samples.
const FrameSize = 4096

// SampleRate is the fixed microphone capture rate.
const SampleRate = 16000

// Source is the microphone collaborator. Start begins delivering fixed-size
// frames to the callback until Stop or context cancellation; it returns a
// permission or device failure immediately if the stream cannot be acquired.
type Source interface {
	Start(ctx context.Context, deliver func(audio.Frame)) error
	Stop()
}

// Pipeline encodes every delivered frame and forwards it to the sink as it
// arrives. It keeps no frame history and never blocks on the sink; once
// stopped it stays stopped, and late frame callbacks are no-ops.
type Pipeline struct {
	sink    func(audio.Chunk)
	logger  *zap.Logger
	stopped atomic.Bool
}

func NewPipeline(sink func(audio.Chunk), logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{sink: sink, logger: logger}
}

// OnFrame is the Source delivery callback.
func (p *Pipeline) OnFrame(f audio.Frame) {
	if p.stopped.Load() {
		return
	}
	p.sink(audio.Encode(f))
}

// Stop gates out all subsequent frames. Irrevocable.
func (p *Pipeline) Stop() {
	if !p.stopped.Swap(true) {
		p.logger.Debug("capture pipeline stopped")
	}
}

// Stopped reports whether the stop gate has closed.
func (p *Pipeline) Stopped() bool {
	return p.stopped.Load()
}
