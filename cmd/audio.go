package cmd

import (
	"github.com/metalblueberry/bard/pkg/audio"
	"github.com/metalblueberry/bard/pkg/audio/speaker"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/capture/pa"
	"github.com/metalblueberry/bard/pkg/click"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/pitch"
)

const simulatedAmplitude = 0.6

// newSource returns the microphone, or a synthetic tone when simulate is a
// frequency in Hz.
func newSource(device string, simulate float64) capture.Source {
	if simulate > 0 {
		return capture.NewTone(simulate, simulatedAmplitude, pitch.DefaultRateHz, cfg.Tuner.FrameSize)
	}
	return pa.New(device, cfg.Tuner.FrameSize)
}

// openSpeaker acquires the process-wide output and a click synthesizer on
// top of it.
func openSpeaker() (audio.Clock, metronome.Player, error) {
	sp, err := speaker.Shared(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return nil, nil, err
	}
	return sp, click.New(sp), nil
}

// newMetronome applies mc through the setters so corrected values are
// logged.
func newMetronome(mc metronome.Config) *metronome.Scheduler {
	m := metronome.New(metronome.DefaultConfig(), openSpeaker)
	m.SetBPM(mc.BPM)
	m.SetBeatsPerMeasure(mc.BeatsPerMeasure)
	m.SetVolume(mc.Volume)
	m.TickInterval = cfg.Metronome.TickInterval
	m.Lookahead = cfg.Metronome.Lookahead.Seconds()
	return m
}

func metronomeConfig() metronome.Config {
	return metronome.Config{
		BPM:             cfg.Metronome.BPM,
		BeatsPerMeasure: cfg.Metronome.BeatsPerMeasure,
		Volume:          cfg.Metronome.Volume,
	}
}
