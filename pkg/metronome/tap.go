package metronome

import (
	"math"
	"sync"
	"time"
)

const (
	MinTapInterval = 200 * time.Millisecond
	MaxTapInterval = 2000 * time.Millisecond
)

/*
 * TapTempo estimates a tempo from the interval between the last two taps.
 */
type TapTempo struct {
	// Now returns the tap time. Defaults to time.Now.
	Now func() time.Time

	mutex   sync.Mutex
	last    time.Time
	hasLast bool
}

/*
 * Tap records a tap. When the interval since the previous tap lies within
 * [MinTapInterval, MaxTapInterval] it returns the implied bpm, clamped to
 * [MinBPM, MaxBPM], and true. The tap always becomes the new reference.
 */
func (t *TapTempo) Tap() (int, bool) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	at := now()

	t.mutex.Lock()
	defer t.mutex.Unlock()

	previous, hadLast := t.last, t.hasLast
	t.last = at
	t.hasLast = true

	if !hadLast {
		return 0, false
	}

	delta := at.Sub(previous)
	if delta < MinTapInterval || delta > MaxTapInterval {
		return 0, false
	}

	ms := float64(delta) / float64(time.Millisecond)
	bpm := int(math.Round(60000 / ms))
	return ClampBPM(bpm), true
}

/*
 * Reset forgets the previous tap.
 */
func (t *TapTempo) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.hasLast = false
}
