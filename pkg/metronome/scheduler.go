/*
 * Package metronome schedules click events ahead of an audio clock.
 *
 * A wall-clock ticker decides when to schedule; the audio clock decides when
 * a click sounds. Each pass only fills the lookahead window by exact beat
 * increments, so timer jitter cannot drift or repeat a beat.
 */
package metronome

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/metalblueberry/bard/pkg/audio"
)

const (
	DefaultTickInterval = 25 * time.Millisecond
	DefaultLookahead    = 0.1
)

/*
 * ClickEvent is one beat handed to the player.
 */
type ClickEvent struct {
	Time   float64
	Accent bool
}

/*
 * Player renders a click at an audio-clock time.
 */
type Player interface {
	Play(at float64, accent bool, volume float64)
}

/*
 * OpenFunc acquires the audio output. It is called once, on the first Start
 * or on Open.
 */
type OpenFunc func() (audio.Clock, Player, error)

/*
 * Ticker is the periodic wall-clock trigger of the scheduling loop.
 */
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type wallTicker struct {
	*time.Ticker
}

func (t wallTicker) Chan() <-chan time.Time {
	return t.C
}

/*
 * NewWallTicker returns a time.Ticker based Ticker.
 */
func NewWallTicker(d time.Duration) Ticker {
	return wallTicker{time.NewTicker(d)}
}

/*
 * State is a snapshot of the metronome.
 */
type State struct {
	Playing         bool
	CurrentBeat     int
	BPM             int
	BeatsPerMeasure int
	Volume          float64
}

type beat struct {
	time  float64
	index int
}

/*
 * Scheduler drives a Player from a lookahead loop.
 */
type Scheduler struct {
	// TickInterval is the wall-clock period of the scheduling loop.
	TickInterval time.Duration
	// Lookahead is how far past the audio clock beats are scheduled, in
	// seconds.
	Lookahead float64
	// NewTicker creates the loop's ticker. Defaults to NewWallTicker.
	NewTicker func(time.Duration) Ticker
	// Taps estimates tempo for Tap.
	Taps TapTempo

	open OpenFunc

	mutex   sync.Mutex
	cfg     Config
	clock   audio.Clock
	player  Player
	playing bool
	next    float64
	index   int
	pending []beat
	current int
	cancel  context.CancelFunc
	done    chan struct{}
}

/*
 * New creates a stopped scheduler. The output is acquired through open on
 * first use.
 */
func New(cfg Config, open OpenFunc) *Scheduler {
	return &Scheduler{
		TickInterval: DefaultTickInterval,
		Lookahead:    DefaultLookahead,
		NewTicker:    NewWallTicker,
		open:         open,
		cfg:          cfg.Corrected(),
	}
}

/*
 * Open acquires the audio output if it has not been acquired yet.
 */
func (s *Scheduler) Open() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.openLocked()
}

func (s *Scheduler) openLocked() error {
	if s.clock != nil {
		return nil
	}
	clock, player, err := s.open()
	if err != nil {
		return fmt.Errorf("open metronome output: %w", err)
	}
	s.clock = clock
	s.player = player
	return nil
}

/*
 * Start resets the beat cursor to the current audio time and starts the
 * scheduling loop. Start on a running metronome is a no-op.
 */
func (s *Scheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.playing {
		return nil
	}
	if err := s.openLocked(); err != nil {
		return err
	}

	s.next = s.clock.Now()
	s.index = 0
	s.pending = s.pending[:0]
	s.current = 0
	s.playing = true
	s.Taps.Reset()
	s.scheduleLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.NewTicker(s.TickInterval), s.done)

	slog.Info("metronome: started", "bpm", s.cfg.BPM, "beats", s.cfg.BeatsPerMeasure)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

/*
 * Tick runs one scheduling pass: every beat that falls before the end of
 * the lookahead window is handed to the player, in order, exactly once.
 */
func (s *Scheduler) Tick() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.playing {
		return
	}
	s.scheduleLocked()
}

func (s *Scheduler) scheduleLocked() {
	now := s.clock.Now()
	s.advanceLocked(now)
	horizon := now + s.Lookahead

	for s.next < horizon {
		ev := ClickEvent{Time: s.next, Accent: s.index == 0}
		s.player.Play(ev.Time, ev.Accent, s.cfg.Volume)
		s.pending = append(s.pending, beat{time: ev.Time, index: s.index})

		s.next += s.cfg.Interval()
		s.index = (s.index + 1) % s.cfg.BeatsPerMeasure
	}
}

/*
 * advanceLocked drops the beats reached by now and remembers the last one.
 */
func (s *Scheduler) advanceLocked(now float64) {
	heard := 0
	for heard < len(s.pending) && s.pending[heard].time <= now {
		s.current = s.pending[heard].index
		heard++
	}
	s.pending = s.pending[:copy(s.pending, s.pending[heard:])]
}

/*
 * Stop cancels the scheduling loop and resets the beat index. No pass runs
 * after Stop returns. Clicks already handed to the player still sound.
 */
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.playing {
		s.mutex.Unlock()
		return
	}
	s.playing = false
	s.index = 0
	s.current = 0
	s.pending = s.pending[:0]
	s.Taps.Reset()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mutex.Unlock()

	cancel()
	<-done
	slog.Info("metronome: stopped")
}

/*
 * Close stops the metronome and lets go of the audio output. A player that
 * implements io.Closer is closed.
 */
func (s *Scheduler) Close() error {
	s.Stop()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var err error
	if closer, ok := s.player.(io.Closer); ok {
		err = closer.Close()
	}
	s.clock = nil
	s.player = nil
	return err
}

/*
 * SetBPM applies a tempo from the next computed beat interval on and
 * returns the value actually applied.
 */
func (s *Scheduler) SetBPM(bpm int) int {
	applied := ClampBPM(bpm)
	if applied != bpm {
		warnCorrected("bpm", bpm, applied)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cfg.BPM = applied
	return applied
}

/*
 * SetBeatsPerMeasure snaps n to a supported meter and returns it. When the
 * current position lies beyond the new measure, the next beat is an accent.
 */
func (s *Scheduler) SetBeatsPerMeasure(n int) int {
	applied := NearestBeats(n)
	if applied != n {
		warnCorrected("beats_per_measure", n, applied)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cfg.BeatsPerMeasure = applied
	if s.index >= applied {
		s.index = 0
	}
	return applied
}

/*
 * SetVolume applies to clicks scheduled from now on.
 */
func (s *Scheduler) SetVolume(v float64) float64 {
	applied := ClampVolume(v)
	if applied != v {
		warnCorrected("volume", v, applied)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cfg.Volume = applied
	return applied
}

/*
 * Tap feeds the tap tempo estimator and applies the tempo it implies, if
 * any. It returns the bpm in effect afterwards.
 */
func (s *Scheduler) Tap() int {
	if bpm, ok := s.Taps.Tap(); ok {
		return s.SetBPM(bpm)
	}
	return s.Config().BPM
}

/*
 * Config returns the settings in effect.
 */
func (s *Scheduler) Config() Config {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cfg
}

/*
 * State returns a snapshot. CurrentBeat is the index of the last scheduled
 * beat whose time has been reached on the audio clock.
 */
func (s *Scheduler) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.playing {
		s.advanceLocked(s.clock.Now())
	}

	return State{
		Playing:         s.playing,
		CurrentBeat:     s.current,
		BPM:             s.cfg.BPM,
		BeatsPerMeasure: s.cfg.BeatsPerMeasure,
		Volume:          s.cfg.Volume,
	}
}
