package pitch

import (
	"fmt"
	"math"
)

/*
 * Global constants.
 */
const (
	SilenceRMS     = 0.01
	TrimThreshold  = 0.2
	ReferencePitch = 440.0
	ReferenceNote  = 69
	InTuneCents    = 5
	CentsPerOctave = 1200.0
	NotesPerOctave = 12
	DefaultRateHz  = 44100.0
)

/*
 * Chromatic pitch classes, starting at C.
 */
var noteNames = [NotesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

/*
 * Result of a single detection pass.
 *
 * The zero value is NoSignal.
 */
type Estimate struct {
	frequency float64
}

/*
 * Estimate returned when the frame carries no usable pitch.
 */
var NoSignal = Estimate{}

/*
 * Returns true when the estimate carries a frequency.
 */
func (e Estimate) OK() bool {
	return e.frequency > 0
}

/*
 * Returns the estimated fundamental frequency in Hz, or zero for NoSignal.
 */
func (e Estimate) Frequency() float64 {
	return e.frequency
}

/*
 * Data structure representing a note derived from a frequency.
 */
type Reading struct {
	Note      string
	Octave    int
	MIDI      int
	Cents     int
	Frequency float64
}

/*
 * Returns true when the reading is close enough to the note to be
 * displayed as in tune.
 */
func (r Reading) InTune() bool {
	cents := r.Cents

	if cents < 0 {
		cents = -cents
	}

	return cents < InTuneCents
}

/*
 * Returns the reading as e.g. "A4 +3c".
 */
func (r Reading) String() string {
	if r.Note == "" {
		return "-"
	}

	return fmt.Sprintf("%s%d %+dc", r.Note, r.Octave, r.Cents)
}

/*
 * Returns the frequency of a note.
 *
 * f(n) = 440 * 2^((n - 69) / 12)
 *
 * Where n is the MIDI note number.
 */
func FrequencyOfNote(n int) float64 {
	steps := float64(n-ReferenceNote) / NotesPerOctave
	return ReferencePitch * math.Pow(2.0, steps)
}

/*
 * Returns the MIDI note number closest to a frequency.
 */
func NoteNumber(frequency float64) int {
	ratio := frequency / ReferencePitch
	semitones := NotesPerOctave * math.Log2(ratio)
	return int(math.Round(semitones)) + ReferenceNote
}

/*
 * Returns the name of the pitch class of a MIDI note number.
 */
func NoteName(n int) string {
	idx := n % NotesPerOctave

	/*
	 * Go's modulo keeps the sign of the dividend.
	 */
	if idx < 0 {
		idx += NotesPerOctave
	}

	return noteNames[idx]
}

/*
 * Maps a frequency onto the closest note and the deviation from it.
 */
func ReadingOf(frequency float64) Reading {
	n := NoteNumber(frequency)
	reference := FrequencyOfNote(n)
	ratio := frequency / reference
	cents := math.Floor(CentsPerOctave * math.Log2(ratio))
	octave := floorDiv(n, NotesPerOctave) - 1

	return Reading{
		Note:      NoteName(n),
		Octave:    octave,
		MIDI:      n,
		Cents:     int(cents),
		Frequency: frequency,
	}
}

func floorDiv(a int, b int) int {
	q := a / b

	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}
