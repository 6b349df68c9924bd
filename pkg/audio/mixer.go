/*
 * Package audio renders scheduled sample blocks into a PCM stream whose
 * position doubles as a sample-accurate clock.
 */
package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const (
	// BytesPerSample of the signed 16-bit little-endian output.
	BytesPerSample = 2
	// BlockDuration is the audio handed to the device per read. It bounds
	// the steps of the clock and stays well below the metronome lookahead.
	BlockDuration = 10 * time.Millisecond
)

/*
 * BlockFrames returns the number of frames in d at sampleRate, at least one.
 */
func BlockFrames(sampleRate int, d time.Duration) int {
	frames := int(int64(sampleRate) * int64(d) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	return frames
}

/*
 * Clock reports the playback position in seconds.
 */
type Clock interface {
	Now() float64
}

type voice struct {
	start   int64
	samples []float32
}

/*
 * Mixer is an io.Reader producing interleaved signed 16-bit little-endian
 * PCM. Scheduled voices are summed at their absolute sample positions and
 * dropped once fully rendered.
 */
type Mixer struct {
	// MaxFrames caps the frames rendered by one Read, which bounds how far
	// the clock can jump at once. Zero renders whatever is asked for.
	MaxFrames int

	mutex      sync.Mutex
	sampleRate int
	channels   int
	position   int64
	voices     []voice
	mix        []float32
}

/*
 * NewMixer creates a mixer for the given output format.
 */
func NewMixer(sampleRate int, channels int) *Mixer {
	if channels < 1 {
		channels = 1
	}
	return &Mixer{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

func (m *Mixer) Channels() int {
	return m.channels
}

/*
 * Now returns the number of seconds rendered so far.
 */
func (m *Mixer) Now() float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return float64(m.position) / float64(m.sampleRate)
}

/*
 * Position returns the number of frames rendered so far.
 */
func (m *Mixer) Position() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.position
}

/*
 * Schedule queues mono samples to start at the audio-clock time at. Voices
 * whose start has already been rendered begin at the current position.
 */
func (m *Mixer) Schedule(at float64, samples []float32) {
	if len(samples) == 0 {
		return
	}
	start := int64(math.Round(at * float64(m.sampleRate)))

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if start < m.position {
		start = m.position
	}
	m.voices = append(m.voices, voice{start: start, samples: samples})
}

/*
 * Pending returns the number of voices not yet fully rendered.
 */
func (m *Mixer) Pending() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.voices)
}

/*
 * Read renders len(p) bytes rounded down to whole frames, or MaxFrames
 * frames when that is less. It never fails; silence is produced when
 * nothing is scheduled.
 */
func (m *Mixer) Read(p []byte) (int, error) {
	frameBytes := BytesPerSample * m.channels
	frames := len(p) / frameBytes
	if m.MaxFrames > 0 && frames > m.MaxFrames {
		frames = m.MaxFrames
	}
	if frames == 0 {
		return 0, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if cap(m.mix) < frames {
		m.mix = make([]float32, frames)
	}
	mix := m.mix[:frames]
	for i := range mix {
		mix[i] = 0
	}

	from := m.position
	to := from + int64(frames)
	kept := m.voices[:0]

	for _, v := range m.voices {
		end := v.start + int64(len(v.samples))
		lo := max64(v.start, from)
		hi := min64(end, to)
		for pos := lo; pos < hi; pos++ {
			mix[pos-from] += v.samples[pos-v.start]
		}
		if end > to {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(m.voices); i++ {
		m.voices[i] = voice{}
	}
	m.voices = kept

	offset := 0
	for _, s := range mix {
		value := uint16(quantize(s))
		for c := 0; c < m.channels; c++ {
			binary.LittleEndian.PutUint16(p[offset:], value)
			offset += BytesPerSample
		}
	}

	m.position = to
	return offset, nil
}

func quantize(s float32) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return -math.MaxInt16
	}
	return int16(s * math.MaxInt16)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
