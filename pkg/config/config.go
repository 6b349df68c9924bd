/*
 * Package config loads bard's settings from a YAML file and BARD_*
 * environment variables.
 */
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metalblueberry/bard/pkg/capture"

	"github.com/spf13/viper"
)

/*
 * ErrInvalid is wrapped by every validation failure.
 */
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Tuner     TunerConfig     `mapstructure:"tuner" yaml:"tuner"`
	Metronome MetronomeConfig `mapstructure:"metronome" yaml:"metronome"`
}

/*
 * AudioConfig describes the output device feeding the metronome.
 */
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int `mapstructure:"channels" yaml:"channels"`
}

type TunerConfig struct {
	// Device selects the first input whose name contains it. Empty means
	// the system default.
	Device      string `mapstructure:"device" yaml:"device"`
	FrameSize   int    `mapstructure:"frame_size" yaml:"frame_size"`
	RefreshRate int    `mapstructure:"refresh_rate" yaml:"refresh_rate"`
}

/*
 * MetronomeConfig holds the initial metronome settings. Out-of-range bpm,
 * meter and volume are corrected by the metronome, not rejected here.
 */
type MetronomeConfig struct {
	BPM             int           `mapstructure:"bpm" yaml:"bpm"`
	BeatsPerMeasure int           `mapstructure:"beats_per_measure" yaml:"beats_per_measure"`
	Volume          float64       `mapstructure:"volume" yaml:"volume"`
	TickInterval    time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	Lookahead       time.Duration `mapstructure:"lookahead" yaml:"lookahead"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 2)

	v.SetDefault("tuner.device", "")
	v.SetDefault("tuner.frame_size", capture.FrameSize)
	v.SetDefault("tuner.refresh_rate", 60)

	v.SetDefault("metronome.bpm", 120)
	v.SetDefault("metronome.beats_per_measure", 4)
	v.SetDefault("metronome.volume", 0.8)
	v.SetDefault("metronome.tick_interval", "25ms")
	v.SetDefault("metronome.lookahead", "100ms")
}

/*
 * Load reads path, if not empty, over the defaults and applies BARD_*
 * environment overrides such as BARD_METRONOME_BPM.
 */
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

/*
 * Validate reports every setting that cannot be corrected automatically.
 */
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		invalid("audio.sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		invalid("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}

	if c.Tuner.FrameSize < 256 || c.Tuner.FrameSize&(c.Tuner.FrameSize-1) != 0 {
		invalid("tuner.frame_size must be a power of two of at least 256, got %d", c.Tuner.FrameSize)
	}
	if c.Tuner.RefreshRate <= 0 {
		invalid("tuner.refresh_rate must be positive, got %d", c.Tuner.RefreshRate)
	}

	if c.Metronome.TickInterval <= 0 {
		invalid("metronome.tick_interval must be positive, got %s", c.Metronome.TickInterval)
	}
	if c.Metronome.Lookahead <= c.Metronome.TickInterval {
		invalid("metronome.lookahead (%s) must be longer than metronome.tick_interval (%s)", c.Metronome.Lookahead, c.Metronome.TickInterval)
	}

	return errors.Join(errs...)
}

/*
 * RefreshInterval is the period of one display refresh tick.
 */
func (t TunerConfig) RefreshInterval() time.Duration {
	return time.Second / time.Duration(t.RefreshRate)
}
