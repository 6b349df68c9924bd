package tuner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/pitch"
)

/*
 * Status is the lifecycle state of the tuner
 */
type Status string

const (
	StatusIdle                 Status = "IDLE"
	StatusRequestingPermission Status = "REQUESTING_PERMISSION"
	StatusListening            Status = "LISTENING"
	StatusError                Status = "ERROR"
)

/*
 * ErrInterrupted is returned by Start when Stop or Close ran while the
 * source was still being acquired.
 */
var ErrInterrupted = errors.New("tuner stopped while starting")

/*
 * State is a snapshot of the tuner for the presentation layer
 */
type State struct {
	Status    Status
	Listening bool
	Reading   pitch.Reading
	// HasReading is false until the first concrete estimate of a session.
	HasReading bool
	// Message is the user-facing description of the last failure.
	Message string
	Err     error
}

/*
 * Controller owns a capture source and a pitch detector and turns frames
 * into note readings.
 */
type Controller struct {
	source   capture.Source
	detector *pitch.Detector

	mutex      sync.Mutex
	status     Status
	err        error
	opened     bool
	closed     bool
	session    uint64
	reading    pitch.Reading
	hasReading bool
	samples    []float32
}

/*
 * New creates an idle controller for source.
 */
func New(source capture.Source) *Controller {
	return &Controller{
		source:   source,
		detector: pitch.NewDetector(),
		status:   StatusIdle,
	}
}

/*
 * Open prepares the audio host. Start opens it on demand when needed.
 */
func (c *Controller) Open() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.openLocked()
}

func (c *Controller) openLocked() error {
	if c.opened {
		return nil
	}
	if err := c.source.Open(); err != nil {
		return fmt.Errorf("open capture source: %w", err)
	}
	c.opened = true
	c.closed = false
	return nil
}

/*
 * Start moves the tuner to RequestingPermission and blocks until the source
 * has been acquired or refused. Calling Start while the tuner is already
 * listening or starting is a no-op.
 */
func (c *Controller) Start(ctx context.Context) error {
	c.mutex.Lock()
	switch c.status {
	case StatusListening, StatusRequestingPermission:
		c.mutex.Unlock()
		return nil
	}

	if err := c.openLocked(); err != nil {
		c.failLocked(err)
		c.mutex.Unlock()
		return err
	}

	c.session++
	session := c.session
	c.status = StatusRequestingPermission
	c.err = nil
	c.hasReading = false
	c.reading = pitch.Reading{}
	c.mutex.Unlock()

	slog.Debug("tuner: requesting microphone")
	err := c.source.Start(ctx)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if session != c.session {
		if err == nil {
			if stopErr := c.source.Stop(); stopErr != nil {
				slog.Warn("tuner: release after interrupted start", "error", stopErr)
			}
		}
		return ErrInterrupted
	}

	if err != nil {
		err = fmt.Errorf("start capture: %w", err)
		c.failLocked(err)
		return err
	}

	c.status = StatusListening
	slog.Info("tuner: listening")
	return nil
}

func (c *Controller) failLocked(err error) {
	c.status = StatusError
	c.err = err
	slog.Error("tuner: capture failed", "error", err)
}

/*
 * Stop releases the capture source and returns to Idle. Stop on an idle
 * tuner is a no-op; the source is released before Stop returns.
 */
func (c *Controller) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	switch c.status {
	case StatusIdle:
		return nil
	case StatusError:
		c.status = StatusIdle
		c.err = nil
		return nil
	}

	c.session++
	c.status = StatusIdle
	if err := c.source.Stop(); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	slog.Info("tuner: stopped")
	return nil
}

/*
 * Close stops the tuner if needed and releases the audio host, whatever the
 * current state.
 */
func (c *Controller) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stopErr := c.stopLocked()
	c.session++
	c.status = StatusIdle
	if !c.opened || c.closed {
		return stopErr
	}
	c.opened = false
	c.closed = true
	return errors.Join(stopErr, c.source.Close())
}

/*
 * Poll runs one detection pass on the latest frame. It is meant to be
 * called once per display refresh.
 */
func (c *Controller) Poll() {
	c.mutex.Lock()
	if c.status != StatusListening {
		c.mutex.Unlock()
		return
	}
	frame, ok := c.source.Frame()
	if !ok {
		c.mutex.Unlock()
		return
	}
	// the frame is only valid until the next Frame call
	samples := make([]float32, len(frame.Samples))
	copy(samples, frame.Samples)
	c.samples = samples
	session := c.session
	c.mutex.Unlock()

	est := c.detector.Detect(samples, frame.SampleRate)
	if !est.OK() {
		return
	}
	reading := pitch.ReadingOf(est.Frequency())

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if session != c.session {
		return
	}
	if !c.hasReading || reading.MIDI != c.reading.MIDI {
		slog.Debug("tuner: note", "reading", reading.String(), "hz", reading.Frequency)
	}
	c.reading = reading
	c.hasReading = true
}

/*
 * Run calls Poll every interval until ctx is done.
 */
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Poll()
		}
	}
}

/*
 * State returns a snapshot of the tuner.
 */
func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := State{
		Status:     c.status,
		Listening:  c.status == StatusListening,
		Reading:    c.reading,
		HasReading: c.hasReading,
		Err:        c.err,
	}
	if c.err != nil {
		s.Message = Message(c.err)
	}
	return s
}

/*
 * Samples copies the last analysed frame into dst and returns the number of
 * samples copied.
 */
func (c *Controller) Samples(dst []float32) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return copy(dst, c.samples)
}

/*
 * Message turns a capture failure into text for the user.
 */
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Microphone access was denied. Allow access and press start to retry."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "No microphone is available. Connect one and press start to retry."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Microphone request was cancelled."
	default:
		return "Could not start the microphone: " + err.Error()
	}
}
