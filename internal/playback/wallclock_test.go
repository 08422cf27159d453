package playback

import (
	"testing"
	"time"
)

func TestWallClockDeviceCompletesItems(t *testing.T) {
	device := NewWallClockDevice()
	defer device.Release()

	done := make(chan struct{})
	if _, err := device.Play(itemWithDuration(10*time.Millisecond), device.Now(), func() { close(done) }); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("item never completed")
	}
	if n := device.PlayingCount(); n != 0 {
		t.Fatalf("PlayingCount() = %d after completion, want 0", n)
	}
	if device.Now() <= 0 {
		t.Fatalf("Now() = %v, want a moving clock", device.Now())
	}
}

func TestWallClockDeviceStopPreventsCompletion(t *testing.T) {
	device := NewWallClockDevice()
	defer device.Release()

	done := make(chan struct{})
	h, err := device.Play(itemWithDuration(200*time.Millisecond), device.Now(), func() { close(done) })
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	h.Stop()

	select {
	case <-done:
		t.Fatalf("stopped item reported completion")
	case <-time.After(300 * time.Millisecond):
	}
	if n := device.PlayingCount(); n != 0 {
		t.Fatalf("PlayingCount() = %d after stop, want 0", n)
	}
}

func TestWallClockDeviceReleaseCancelsPending(t *testing.T) {
	device := NewWallClockDevice()

	done := make(chan struct{})
	if _, err := device.Play(itemWithDuration(200*time.Millisecond), device.Now(), func() { close(done) }); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	device.Release()

	select {
	case <-done:
		t.Fatalf("released item reported completion")
	case <-time.After(300 * time.Millisecond):
	}
	if device.FrequencySnapshot() != nil {
		t.Fatalf("snapshot non-nil after release")
	}
}

// The running binary uses this device without an external clock driver, so
// scheduled items must drain the active set on their own.
func TestSchedulerDrainsOnWallClockDevice(t *testing.T) {
	device := NewWallClockDevice()
	s := NewScheduler(device, nil)
	defer s.Stop()

	for i := 0; i < 5; i++ {
		if err := s.Schedule(itemWithDuration(10 * time.Millisecond)); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.ActiveCount() == 0 && device.PlayingCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("active set did not drain: scheduler=%d device=%d", s.ActiveCount(), device.PlayingCount())
}
