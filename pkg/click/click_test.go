package click

import (
	"math"
	"testing"

	"github.com/metalblueberry/bard/pkg/audio"
)

type scheduled struct {
	at      float64
	samples []float32
}

type recorder struct {
	rate   int
	events []scheduled
}

func (r *recorder) SampleRate() int { return r.rate }

func (r *recorder) Schedule(at float64, samples []float32) {
	r.events = append(r.events, scheduled{at, samples})
}

func crossings(samples []float32) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			n++
		}
	}
	return n
}

func TestPlayPitch(t *testing.T) {
	tests := []struct {
		accent bool
		hz     float64
	}{
		{true, AccentHz},
		{false, BeatHz},
	}

	for _, tt := range tests {
		r := &recorder{rate: 48000}
		New(r).Play(1.5, tt.accent, 1)

		if len(r.events) != 1 {
			t.Fatalf("expected one scheduled click, got %d", len(r.events))
		}
		ev := r.events[0]
		if ev.at != 1.5 {
			t.Errorf("scheduled at %v, want 1.5", ev.at)
		}
		if len(ev.samples) != 4800 {
			t.Errorf("click length %d samples, want 4800", len(ev.samples))
		}

		// two zero crossings per cycle over 100 ms
		want := int(2 * tt.hz * Duration)
		if got := crossings(ev.samples); got < want-2 || got > want+2 {
			t.Errorf("accent=%v: %d zero crossings, want about %d", tt.accent, got, want)
		}
	}
}

func TestRenderDecays(t *testing.T) {
	samples := Render(44100, BeatHz, 0.8)

	peak := func(from, to int) float64 {
		p := 0.0
		for _, s := range samples[from:to] {
			p = math.Max(p, math.Abs(float64(s)))
		}
		return p
	}

	head := peak(0, 200)
	tail := peak(len(samples)-200, len(samples))
	if head > 0.8+1e-6 || head < 0.7 {
		t.Errorf("head peak = %v, want close to 0.8", head)
	}
	if tail > 0.8*0.002 {
		t.Errorf("tail peak = %v, want near silence", tail)
	}
}

func TestSilentVolume(t *testing.T) {
	r := &recorder{rate: 44100}
	s := New(r)
	s.Play(0, true, 0)
	s.Play(0, false, -1)
	if len(r.events) != 0 {
		t.Errorf("expected nothing scheduled at zero volume, got %d", len(r.events))
	}
}

func TestPlayOnMixer(t *testing.T) {
	m := audio.NewMixer(1000, 1)
	s := New(m)
	s.Play(0.5, true, 1)
	s.Play(0.5, false, 1)

	if m.Pending() != 2 {
		t.Fatalf("expected two overlapping voices, got %d", m.Pending())
	}

	buf := make([]byte, 2*700)
	if _, err := m.Read(buf); err != nil {
		t.Fatal(err)
	}
	if m.Pending() != 0 {
		t.Errorf("clicks still pending after 0.6 s rendered: %d", m.Pending())
	}
}
