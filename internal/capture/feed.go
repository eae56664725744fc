package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"

	"chronobooth/internal/compositor"
)

const DefaultStartTimeout = 30 * time.Second

// ErrPermissionDenied is reported when the browser refuses camera access.
var ErrPermissionDenied = errors.New("camera permission denied")

var errNoPendingStart = errors.New("no camera start pending")

// FeedDevice is a Device backed by frames the browser pushes over a
// WebSocket. Open waits for the socket to be attached or for the client to
// report that access was denied.
type FeedDevice struct {
	timeout time.Duration
	attach  chan *websocket.Conn
	deny    chan error

	mu          sync.Mutex
	pending     bool
	expectUntil time.Time
}

func NewFeedDevice(timeout time.Duration) *FeedDevice {
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	return &FeedDevice{
		timeout: timeout,
		attach:  make(chan *websocket.Conn, 1),
		deny:    make(chan error, 1),
	}
}

// Expect announces an Open that is about to start, so a socket or denial
// racing ahead of it is held instead of rejected. The window lasts one start
// timeout.
func (d *FeedDevice) Expect() {
	d.mu.Lock()
	d.expectUntil = time.Now().Add(d.timeout)
	d.mu.Unlock()
}

func (d *FeedDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	d.pending = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.pending = false
		d.expectUntil = time.Time{}
		d.drainLocked()
		d.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	select {
	case conn := <-d.attach:
		s := newFeedStream(conn)
		go s.pump()
		return s, nil
	case err := <-d.deny:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for camera feed: %w", ctx.Err())
	}
}

// Attach hands a connected feed to the pending Open. Sockets arriving when
// no start is pending or expected, or after one was already handed over, are
// rejected.
func (d *FeedDevice) Attach(conn *websocket.Conn) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.acceptingLocked() {
		return errNoPendingStart
	}
	select {
	case d.attach <- conn:
		return nil
	default:
		return errNoPendingStart
	}
}

// Deny fails the pending Open with reason.
func (d *FeedDevice) Deny(reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.acceptingLocked() {
		return errNoPendingStart
	}
	err := ErrPermissionDenied
	if reason != "" {
		err = fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	}
	select {
	case d.deny <- err:
	default:
	}
	return nil
}

// Close drops any socket or denial not yet claimed by Open and ends the
// Expect window. The device stays usable for the next start.
func (d *FeedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expectUntil = time.Time{}
	d.drainLocked()
	return nil
}

func (d *FeedDevice) acceptingLocked() bool {
	return d.pending || time.Now().Before(d.expectUntil)
}

func (d *FeedDevice) drainLocked() {
	for {
		select {
		case conn := <-d.attach:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "camera released"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-d.deny:
		default:
			return
		}
	}
}

// feedStream keeps only the latest binary frame received on the socket.
type feedStream struct {
	conn  *websocket.Conn
	ready chan struct{}

	mu        sync.Mutex
	latest    []byte
	err       error
	readyOnce sync.Once
	closeOnce sync.Once
}

func newFeedStream(conn *websocket.Conn) *feedStream {
	return &feedStream{conn: conn, ready: make(chan struct{})}
}

func (s *feedStream) pump() {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.readyOnce.Do(func() { close(s.ready) })
			return
		}
		if mt != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		s.mu.Lock()
		s.latest = data
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *feedStream) Frame(ctx context.Context) (image.Image, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	data, err := s.latest, s.err
	s.mu.Unlock()
	if len(data) == 0 {
		if err == nil {
			err = errors.New("no frame received")
		}
		return nil, err
	}
	if _, err := compositor.CheckPixels(data); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (s *feedStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "capture finished"), deadline)
		err = s.conn.Close()
	})
	return err
}
