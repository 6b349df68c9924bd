/*
 * Package speaker plays an audio.Mixer on the default output device.
 *
 * The underlying oto context can only be created once per process, so the
 * speaker is a lazily created singleton that outlives individual metronome
 * sessions.
 */
package speaker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/oto/v2"
	"github.com/metalblueberry/bard/pkg/audio"
)

type player interface {
	Play()
	SetBufferSize(bufferSize int)
	Close() error
}

/*
 * Speaker is the process-wide output context.
 */
type Speaker struct {
	mixer  *audio.Mixer
	player player
}

var (
	mutex  sync.Mutex
	shared *Speaker
)

/*
 * Shared returns the process-wide speaker, creating it on the first call.
 * Later calls return the same speaker and ignore their arguments.
 */
func Shared(sampleRate int, channels int) (*Speaker, error) {
	mutex.Lock()
	defer mutex.Unlock()

	if shared != nil {
		return shared, nil
	}

	otoCtx, ready, err := oto.NewContext(sampleRate, channels, oto.FormatSignedInt16LE)
	if err != nil {
		return nil, fmt.Errorf("create audio output: %w", err)
	}
	<-ready

	mixer := audio.NewMixer(sampleRate, channels)
	mixer.MaxFrames = audio.BlockFrames(sampleRate, audio.BlockDuration)
	p := otoCtx.NewPlayer(mixer)
	p.SetBufferSize(mixer.MaxFrames * mixer.Channels() * audio.BytesPerSample)
	p.Play()

	shared = &Speaker{mixer: mixer, player: p}
	slog.Info("speaker: audio output ready", "sample_rate", sampleRate, "channels", channels, "block_frames", mixer.MaxFrames)
	return shared, nil
}

/*
 * Now returns the audio clock of the output device.
 */
func (s *Speaker) Now() float64 {
	return s.mixer.Now()
}

func (s *Speaker) SampleRate() int {
	return s.mixer.SampleRate()
}

func (s *Speaker) Schedule(at float64, samples []float32) {
	s.mixer.Schedule(at, samples)
}
