package metronome

import (
	"log/slog"
	"math"
)

const (
	MinBPM = 40
	MaxBPM = 240

	DefaultBPM             = 120
	DefaultBeatsPerMeasure = 4
	DefaultVolume          = 0.8
)

/*
 * Meters lists the supported beats per measure in ascending order.
 */
var Meters = []int{2, 3, 4, 6}

/*
 * Config holds the user-adjustable metronome settings. Values are always
 * stored corrected; out-of-range input is clamped, never rejected.
 */
type Config struct {
	BPM             int
	BeatsPerMeasure int
	Volume          float64
}

/*
 * DefaultConfig returns 120 bpm in 4 at 80% volume.
 */
func DefaultConfig() Config {
	return Config{
		BPM:             DefaultBPM,
		BeatsPerMeasure: DefaultBeatsPerMeasure,
		Volume:          DefaultVolume,
	}
}

/*
 * Corrected returns c with every field brought into range.
 */
func (c Config) Corrected() Config {
	return Config{
		BPM:             ClampBPM(c.BPM),
		BeatsPerMeasure: NearestBeats(c.BeatsPerMeasure),
		Volume:          ClampVolume(c.Volume),
	}
}

/*
 * Interval returns the time between two beats in seconds.
 */
func (c Config) Interval() float64 {
	return 60.0 / float64(c.BPM)
}

/*
 * ClampBPM limits bpm to [MinBPM, MaxBPM].
 */
func ClampBPM(bpm int) int {
	switch {
	case bpm < MinBPM:
		return MinBPM
	case bpm > MaxBPM:
		return MaxBPM
	}
	return bpm
}

/*
 * NearestBeats snaps n to the closest supported meter. Ties go to the
 * smaller meter.
 */
func NearestBeats(n int) int {
	best := Meters[0]
	for _, m := range Meters[1:] {
		if abs(n-m) < abs(n-best) {
			best = m
		}
	}
	return best
}

/*
 * ClampVolume limits v to [0, 1]. NaN is treated as silence.
 */
func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func warnCorrected(setting string, requested any, applied any) {
	slog.Warn("metronome: value out of range, corrected", "setting", setting, "requested", requested, "applied", applied)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
