/*
 * Package pa captures microphone audio through portaudio.
 */
package pa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/circular"
)

/*
 * Source captures mono float32 samples from a portaudio input device.
 */
type Source struct {
	device    string
	frameSize int

	mu         sync.Mutex
	opened     bool
	stream     *portaudio.Stream
	sampleRate float64
	ring       *circular.Buffer[float32]
	frame      []float32
}

var _ capture.Source = (*Source)(nil)

/*
 * New creates a capture source. device selects the first input device whose
 * name contains it; empty means the system default.
 */
func New(device string, frameSize int) *Source {
	if frameSize <= 0 {
		frameSize = capture.FrameSize
	}
	return &Source{
		device:    device,
		frameSize: frameSize,
		ring:      circular.CreateBuffer[float32](frameSize),
		frame:     make([]float32, frameSize),
	}
}

/*
 * Open initializes the portaudio host.
 */
func (p *Source) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opened {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio initialize: %w", classify(err))
	}
	p.opened = true
	return nil
}

/*
 * Start opens and starts the input stream at the device's native rate.
 */
func (p *Source) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.opened {
		return fmt.Errorf("portaudio not initialized: %w", capture.ErrDeviceUnavailable)
	}
	if p.stream != nil {
		return nil
	}

	dev, err := p.inputDevice()
	if err != nil {
		return err
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = dev.DefaultSampleRate

	p.ring.Reset()
	stream, err := portaudio.OpenStream(params, p.processAudio)
	if err != nil {
		return fmt.Errorf("open input stream %q: %w", dev.Name, classify(err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("start input stream %q: %w", dev.Name, classify(err))
	}

	p.stream = stream
	p.sampleRate = params.SampleRate
	slog.Info("capture: stream started", "device", dev.Name, "sample_rate", p.sampleRate)
	return nil
}

/*
 * processAudio runs on the portaudio callback thread.
 */
func (p *Source) processAudio(in []float32) {
	p.ring.Enqueue(in...)
}

/*
 * Frame returns the latest frameSize samples.
 */
func (p *Source) Frame() (capture.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.ring.Full() {
		return capture.Frame{}, false
	}
	if err := p.ring.Retrieve(p.frame); err != nil {
		return capture.Frame{}, false
	}
	return capture.Frame{Samples: p.frame, SampleRate: p.sampleRate}, true
}

/*
 * Stop stops and closes the stream. The stream is closed even when stopping
 * it fails.
 */
func (p *Source) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Source) stopLocked() error {
	if p.stream == nil {
		return nil
	}

	stream := p.stream
	p.stream = nil
	p.ring.Reset()

	stopErr := stream.Stop()
	closeErr := stream.Close()
	slog.Info("capture: stream closed")

	if err := errors.Join(stopErr, closeErr); err != nil {
		return fmt.Errorf("release input stream: %w", err)
	}
	return nil
}

/*
 * Close releases the stream and terminates the portaudio host.
 */
func (p *Source) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stopErr := p.stopLocked()
	if !p.opened {
		return stopErr
	}
	p.opened = false
	return errors.Join(stopErr, portaudio.Terminate())
}

func (p *Source) inputDevice() (*portaudio.DeviceInfo, error) {
	if p.device == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", classify(err))
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", classify(err))
	}
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && strings.Contains(dev.Name, p.device) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q: %w", p.device, capture.ErrDeviceUnavailable)
}

/*
 * Devices lists the names of all input-capable devices. The portaudio host
 * must be initialized.
 */
func Devices() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", classify(err))
	}

	var names []string
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			names = append(names, dev.Name)
		}
	}
	return names, nil
}

/*
 * classify maps portaudio failures onto the capture error taxonomy.
 */
func classify(err error) error {
	var hostErr portaudio.UnanticipatedHostError
	if errors.As(err, &hostErr) {
		return fmt.Errorf("%w: %s", capture.ErrPermissionDenied, hostErr.Text)
	}

	var paErr portaudio.Error
	if errors.As(err, &paErr) {
		return fmt.Errorf("%w: %s", capture.ErrDeviceUnavailable, paErr.Error())
	}
	return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
}
