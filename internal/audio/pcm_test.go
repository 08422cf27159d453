package audio

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := Frame{SampleRate: 16000}
	for i := 0; i < 4096; i++ {
		frame.Samples = append(frame.Samples, float32(math.Sin(float64(i)/31)))
	}

	chunk := Encode(frame)
	if chunk.SampleRate != 16000 || chunk.Channels != 1 {
		t.Fatalf("chunk tags = %d/%d, want 16000/1", chunk.SampleRate, chunk.Channels)
	}

	item, err := Decode(chunk.Data, chunk.SampleRate, chunk.Channels)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(item.Samples) != len(frame.Samples) {
		t.Fatalf("decoded %d samples, want %d", len(item.Samples), len(frame.Samples))
	}

	const tolerance = 1.0 / 32767
	for i := range frame.Samples {
		if diff := math.Abs(float64(frame.Samples[i] - item.Samples[i])); diff > tolerance {
			t.Fatalf("sample %d: |%f - %f| = %f exceeds tolerance", i, frame.Samples[i], item.Samples[i], diff)
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	chunk := Encode(Frame{Samples: []float32{2.5, -3, 0}, SampleRate: 16000})
	item, err := Decode(chunk.Data, 16000, 1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if item.Samples[0] < 0.999 {
		t.Fatalf("positive overflow decoded to %f, want ~1", item.Samples[0])
	}
	if item.Samples[1] > -0.999 {
		t.Fatalf("negative overflow decoded to %f, want ~-1", item.Samples[1])
	}
	if item.Samples[2] != 0 {
		t.Fatalf("zero sample decoded to %f", item.Samples[2])
	}
}

func TestDecodeRejectsOddPayload(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	_, err := Decode(data, 16000, 1)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Decode() error = %v, want *DecodeError", err)
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	_, err := Decode("not-base64!!", 16000, 1)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Decode() error = %v, want *DecodeError", err)
	}
}

func TestDecodeDuration(t *testing.T) {
	// 16000 mono samples at 16 kHz is exactly one second.
	samples := make([]float32, 16000)
	chunk := Encode(Frame{Samples: samples, SampleRate: 16000})
	item, err := Decode(chunk.Data, 16000, 1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if item.Duration != time.Second {
		t.Fatalf("Duration = %v, want 1s", item.Duration)
	}

	// Two channels halve the frame count.
	stereo, err := Decode(chunk.Data, 16000, 2)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if stereo.Duration != 500*time.Millisecond {
		t.Fatalf("stereo Duration = %v, want 500ms", stereo.Duration)
	}
}

func TestIntensityMonotonicAndClamped(t *testing.T) {
	quiet := Intensity([]byte{10, 10, 10, 10})
	loud := Intensity([]byte{200, 200, 200, 200})
	if quiet >= loud {
		t.Fatalf("Intensity not monotonic: quiet=%f loud=%f", quiet, loud)
	}
	if max := Intensity([]byte{255, 255}); max != 1 {
		t.Fatalf("Intensity(max) = %f, want 1", max)
	}
	if Intensity(nil) != 0 {
		t.Fatalf("Intensity(nil) should be 0")
	}
}
