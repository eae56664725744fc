package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"chronobooth/internal/compositor"
	"chronobooth/internal/domain"
)

// Stream is an acquired live video feed.
type Stream interface {
	// Frame returns the most recent frame, waiting for the first one if
	// none has arrived yet.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Device grants access to a camera stream.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Camera drives the Idle → Streaming → Idle lifecycle of a device. Any
// failure to acquire the stream leaves it in Error until the next Start.
type Camera struct {
	device Device

	mu      sync.Mutex
	state   domain.CameraState
	stream  Stream
	lastErr error
	cancel  context.CancelFunc
}

func NewCamera(device Device) *Camera {
	return &Camera{device: device, state: domain.CameraIdle}
}

func (c *Camera) State() domain.CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the camera into Error, if any.
func (c *Camera) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start acquires the stream. It blocks until the device grants or refuses
// access. Starting an already streaming camera is a no-op.
func (c *Camera) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == domain.CameraStreaming {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	if c.device == nil {
		c.fail(fmt.Errorf("%w: no device", domain.ErrCameraUnavailable))
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	openCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.lastErr = nil
	c.mu.Unlock()

	stream, err := c.device.Open(openCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancelled := openCtx.Err() != nil && ctx.Err() == nil
	c.cancel = nil
	cancel()
	if err != nil {
		if cancelled {
			c.state = domain.CameraIdle
			return context.Canceled
		}
		c.fail(fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err))
		return c.lastErr
	}
	if cancelled {
		_ = stream.Close()
		c.state = domain.CameraIdle
		return context.Canceled
	}
	c.stream = stream
	c.state = domain.CameraStreaming
	return nil
}

// Capture freezes the current frame, mirrors it horizontally, encodes it and
// releases the stream.
func (c *Camera) Capture(ctx context.Context) (*domain.RawImage, error) {
	c.mu.Lock()
	if c.state != domain.CameraStreaming || c.stream == nil {
		c.mu.Unlock()
		return nil, domain.ErrCameraNotStreaming
	}
	stream := c.stream
	c.mu.Unlock()

	frame, err := stream.Frame(ctx)
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}
	raw, err := mirror(frame)
	c.Release()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Produce makes Camera a Source: one capture per activation.
func (c *Camera) Produce(ctx context.Context) (*domain.RawImage, error) {
	return c.Capture(ctx)
}

// Cancel abandons the capture without producing an image.
func (c *Camera) Cancel() {
	c.Release()
}

// Release stops any pending or active stream and returns to Idle, dismissing
// a previous error. It is safe to call repeatedly.
func (c *Camera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.state = domain.CameraIdle
	c.lastErr = nil
}

func (c *Camera) fail(err error) {
	c.state = domain.CameraError
	c.lastErr = err
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

func mirror(frame image.Image) (*domain.RawImage, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: empty frame", domain.ErrCameraUnavailable)
	}
	flipped := imaging.FlipH(frame)
	data, err := compositor.EncodeJPEG(flipped)
	if err != nil {
		return nil, err
	}
	b := flipped.Bounds()
	return &domain.RawImage{
		Data:   data,
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  flipped,
	}, nil
}
