package capture

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestToneRequiresOpen(t *testing.T) {
	tone := NewTone(440, 0.5, 44100, 256)
	err := tone.Start(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if _, ok := tone.Frame(); ok {
		t.Error("expected no frame before Start")
	}
}

func TestToneFrames(t *testing.T) {
	tone := NewTone(441, 0.5, 44100, 200)
	if err := tone.Open(); err != nil {
		t.Fatal(err)
	}
	if err := tone.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	frame, ok := tone.Frame()
	if !ok {
		t.Fatal("expected a frame after Start")
	}
	if len(frame.Samples) != 200 || frame.SampleRate != 44100 {
		t.Fatalf("unexpected frame shape: %d samples at %v Hz", len(frame.Samples), frame.SampleRate)
	}

	peak := 0.0
	for _, s := range frame.Samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > 0.5+1e-6 || peak < 0.49 {
		t.Errorf("peak = %v, want about 0.5", peak)
	}

	// 441 Hz at 44100 Hz is exactly 100 samples per cycle, so the second
	// frame starts where the first one did.
	first := frame.Samples[1]
	frame, _ = tone.Frame()
	if math.Abs(float64(frame.Samples[1]-first)) > 1e-4 {
		t.Errorf("frames not phase continuous: %v vs %v", frame.Samples[1], first)
	}
}

func TestToneStopAndClose(t *testing.T) {
	tone := NewTone(440, 0.5, 44100, 64)
	_ = tone.Open()
	_ = tone.Start(context.Background())

	if err := tone.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := tone.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if tone.Started() {
		t.Error("tone still started after Stop")
	}
	if _, ok := tone.Frame(); ok {
		t.Error("expected no frame after Stop")
	}

	if err := tone.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tone.Start(context.Background()); err == nil {
		t.Error("expected Start after Close to fail")
	}
}

func TestToneStartCancelled(t *testing.T) {
	tone := NewTone(440, 0.5, 44100, 64)
	_ = tone.Open()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tone.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
