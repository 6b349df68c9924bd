package capture

import (
	"context"
	"errors"
)

/*
 * FrameSize is the number of samples handed to the pitch detector per pass.
 */
const FrameSize = 2048

var (
	// ErrPermissionDenied is returned when the host refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned when no usable input device exists.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
)

/*
 * Frame is a fixed-length block of mono samples in [-1, 1].
 *
 * The Samples slice is owned by the source and is only valid until the next
 * call to Frame.
 */
type Frame struct {
	Samples    []float32
	SampleRate float64
}

/*
 * Source delivers microphone frames.
 */
type Source interface {
	// Open prepares the audio host. It does not touch the microphone.
	Open() error

	// Start acquires the input device. It may block while the host asks
	// the user for permission.
	Start(ctx context.Context) error

	// Frame returns the most recent frame, or false until enough samples
	// have been captured.
	Frame() (Frame, bool)

	// Stop releases the device. Calling Stop on a stopped source is a no-op.
	Stop() error

	// Close stops the source if needed and releases the audio host.
	Close() error
}
