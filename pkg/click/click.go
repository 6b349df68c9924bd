/*
 * Package click renders the metronome's percussive beeps.
 */
package click

import (
	"math"
)

const (
	AccentHz = 1000.0
	BeatHz   = 800.0
	// Duration of a click in seconds.
	Duration = 0.1
	// Floor is the envelope level reached at the end of a click.
	Floor = 0.001
)

/*
 * Scheduler accepts mono samples to be played at an audio-clock time.
 */
type Scheduler interface {
	SampleRate() int
	Schedule(at float64, samples []float32)
}

/*
 * Synthesizer turns click events into scheduled tones. It keeps no state
 * between calls.
 */
type Synthesizer struct {
	out Scheduler
}

/*
 * New creates a synthesizer writing to out.
 */
func New(out Scheduler) *Synthesizer {
	return &Synthesizer{out: out}
}

/*
 * Play schedules one click starting exactly at the audio-clock time at.
 * Nothing is scheduled when volume is not positive.
 */
func (s *Synthesizer) Play(at float64, accent bool, volume float64) {
	if volume <= 0 {
		return
	}
	frequency := BeatHz
	if accent {
		frequency = AccentHz
	}
	s.out.Schedule(at, Render(s.out.SampleRate(), frequency, volume))
}

/*
 * Render returns a sine of the given frequency whose amplitude decays
 * exponentially from volume to Floor*volume over Duration.
 */
func Render(sampleRate int, frequency float64, volume float64) []float32 {
	n := int(math.Round(Duration * float64(sampleRate)))
	samples := make([]float32, n)
	rate := float64(sampleRate)
	decay := math.Log(Floor) / Duration

	for i := range samples {
		t := float64(i) / rate
		envelope := volume * math.Exp(decay*t)
		samples[i] = float32(envelope * math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}
