package playback

import (
	"math"
	"testing"
	"time"

	"github.com/ariavoice/aria/internal/audio"
)

func itemWithDuration(d time.Duration) audio.Item {
	samples := int(d.Seconds() * 16000)
	return audio.Item{
		Samples:    make([]float32, samples),
		SampleRate: 16000,
		Channels:   1,
		Duration:   d,
	}
}

func TestScheduleBackToBack(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	durations := []time.Duration{
		100 * time.Millisecond,
		250 * time.Millisecond,
		80 * time.Millisecond,
		400 * time.Millisecond,
	}
	for _, d := range durations {
		if err := s.Schedule(itemWithDuration(d)); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}

	starts := device.StartTimes()
	if len(starts) != len(durations) {
		t.Fatalf("device saw %d items, want %d", len(starts), len(durations))
	}
	expected := starts[0]
	for i, d := range durations {
		if math.Abs(starts[i]-expected) > 1e-9 {
			t.Fatalf("item %d start = %f, want %f", i, starts[i], expected)
		}
		expected += d.Seconds()
	}
	if math.Abs(s.Clock()-expected) > 1e-9 {
		t.Fatalf("clock = %f, want %f", s.Clock(), expected)
	}
}

func TestScheduleContinuousPlaybackSpan(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	// Ten 100ms chunks must span exactly one second with no gap.
	for i := 0; i < 10; i++ {
		if err := s.Schedule(itemWithDuration(100 * time.Millisecond)); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}
	if math.Abs(s.Clock()-1.0) > 1e-9 {
		t.Fatalf("clock = %f, want 1.0", s.Clock())
	}
	starts := device.StartTimes()
	for i := 1; i < len(starts); i++ {
		gap := starts[i] - (starts[i-1] + 0.1)
		if math.Abs(gap) > 1e-9 {
			t.Fatalf("gap of %f between items %d and %d", gap, i-1, i)
		}
	}
}

func TestScheduleStartsAtDeviceTimeWhenIdle(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	device.Advance(2.5)
	if err := s.Schedule(itemWithDuration(200 * time.Millisecond)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	starts := device.StartTimes()
	if starts[0] != 2.5 {
		t.Fatalf("start = %f, want device time 2.5", starts[0])
	}
	if math.Abs(s.Clock()-2.7) > 1e-9 {
		t.Fatalf("clock = %f, want 2.7", s.Clock())
	}
}

func TestFlushStopsEverythingAndResetsClock(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	for i := 0; i < 3; i++ {
		if err := s.Schedule(itemWithDuration(time.Second)); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}
	if s.ActiveCount() != 3 {
		t.Fatalf("ActiveCount = %d, want 3", s.ActiveCount())
	}

	s.Flush()
	if s.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after flush = %d, want 0", s.ActiveCount())
	}
	if s.Clock() != 0 {
		t.Fatalf("clock after flush = %f, want 0", s.Clock())
	}
	if device.PlayingCount() != 0 {
		t.Fatalf("device still playing %d items after flush", device.PlayingCount())
	}

	// A subsequent item starts at or after current device time, not where the
	// old stream left off.
	device.Advance(1.2)
	if err := s.Schedule(itemWithDuration(100 * time.Millisecond)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	starts := device.StartTimes()
	if got := starts[len(starts)-1]; got < 1.2 {
		t.Fatalf("post-flush start = %f, want >= 1.2", got)
	}
}

func TestNaturalEndLeavesActiveSet(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	if err := s.Schedule(itemWithDuration(100 * time.Millisecond)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := s.Schedule(itemWithDuration(500 * time.Millisecond)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	device.Advance(0.2)
	if s.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1 after first item ended", s.ActiveCount())
	}
	device.Advance(1)
	if s.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0 after all items ended", s.ActiveCount())
	}
	// Natural completion must not reset the clock.
	if s.Clock() == 0 {
		t.Fatalf("clock reset by natural completion")
	}
}

func TestStopReleasesDevice(t *testing.T) {
	device := NewSimDevice()
	s := NewScheduler(device, nil)

	if err := s.Schedule(itemWithDuration(time.Second)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	s.Stop()
	if !device.Released() {
		t.Fatalf("device routing not released on Stop")
	}
	if s.ActiveCount() != 0 || s.Clock() != 0 {
		t.Fatalf("Stop did not flush: active=%d clock=%f", s.ActiveCount(), s.Clock())
	}
}
