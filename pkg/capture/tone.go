package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
)

/*
 * Tone is a Source that synthesizes a sine wave instead of reading a device.
 * It is used by --simulate and in tests.
 */
type Tone struct {
	mu         sync.Mutex
	frequency  float64
	amplitude  float64
	sampleRate float64
	frame      []float32
	phase      float64
	opened     bool
	started    bool
}

var _ Source = (*Tone)(nil)

/*
 * NewTone creates a synthetic source producing frameSize samples per frame.
 */
func NewTone(frequency, amplitude, sampleRate float64, frameSize int) *Tone {
	if frameSize <= 0 {
		frameSize = FrameSize
	}
	return &Tone{
		frequency:  frequency,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		frame:      make([]float32, frameSize),
	}
}

/*
 * SetFrequency changes the pitch of subsequent frames.
 */
func (t *Tone) SetFrequency(frequency float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frequency = frequency
}

func (t *Tone) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened = true
	return nil
}

func (t *Tone) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.opened {
		return fmt.Errorf("tone not opened: %w", ErrDeviceUnavailable)
	}
	t.started = true
	t.phase = 0
	return nil
}

/*
 * Frame returns the next block of the tone. Consecutive frames are phase
 * continuous.
 */
func (t *Tone) Frame() (Frame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return Frame{}, false
	}

	step := 2 * math.Pi * t.frequency / t.sampleRate
	for i := range t.frame {
		t.frame[i] = float32(t.amplitude * math.Sin(t.phase))
		t.phase += step
	}
	t.phase = math.Mod(t.phase, 2*math.Pi)
	return Frame{Samples: t.frame, SampleRate: t.sampleRate}, true
}

/*
 * Started reports whether the tone is currently producing frames.
 */
func (t *Tone) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Tone) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	return nil
}

func (t *Tone) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	t.opened = false
	return nil
}
