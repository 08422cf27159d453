package audio

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"
)

// Frame is one fixed-size window of normalized microphone samples.
// Samples are in [-1, 1] at SampleRate; a Frame is immutable once produced.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Chunk is the wire unit exchanged with the transport: a base64 envelope
// around little-endian 16-bit PCM, plus the declared rate and channel count.
type Chunk struct {
	Data       string
	SampleRate int
	Channels   int
}

// Item is a decoded playback buffer owned by the playback scheduler from
// creation until its scheduled end.
type Item struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// DecodeError reports a malformed audio payload. The offending chunk is
// dropped by callers; the session continues.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "audio: decode: " + e.Reason
}

// Encode converts a frame to its wire form. Out-of-range samples are clamped,
// not rejected; encoding has no failure modes.
func Encode(f Frame) Chunk {
	buf := make([]byte, 2*len(f.Samples))
	for i, s := range f.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	return Chunk{
		Data:       base64.StdEncoding.EncodeToString(buf),
		SampleRate: f.SampleRate,
		Channels:   1,
	}
}

// Decode reverses the envelope and rescales to float samples tagged with the
// given rate and channel count. The payload must hold whole 16-bit samples.
func Decode(data string, sampleRate, channels int) (Item, error) {
	if sampleRate <= 0 {
		return Item{}, &DecodeError{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}
	if channels <= 0 {
		channels = 1
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Item{}, &DecodeError{Reason: "invalid base64 envelope"}
	}
	if len(raw)%2 != 0 {
		return Item{}, &DecodeError{Reason: fmt.Sprintf("odd payload length %d", len(raw))}
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}

	frames := len(samples) / channels
	return Item{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
	}, nil
}
