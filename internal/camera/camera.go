// Package camera wraps a capture device as a frame source.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"bookfold/pkg/geometry"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when no camera could be opened: the device is
// missing, busy or access was denied. The caller may retry later.
var ErrUnavailable = errors.New("camera unavailable")

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("camera closed")

// Config selects the device and the requested resolution.
type Config struct {
	Device int
	Width  int
	Height int
}

// Stream is a gocv capture device. Close is idempotent.
type Stream struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	size   geometry.Size
	closed bool
	logger *slog.Logger
}

// Open acquires the camera. Opening may block while the driver negotiates;
// ctx bounds how long the caller waits.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	type result struct {
		cap *gocv.VideoCapture
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := gocv.OpenVideoCapture(cfg.Device)
		done <- result{c, err}
	}()

	var vc *gocv.VideoCapture
	select {
	case <-ctx.Done():
		// The open finishes in the background; release whatever it returns.
		go func() {
			if r := <-done; r.cap != nil {
				r.cap.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			if r.cap != nil {
				r.cap.Close()
			}
			return nil, fmt.Errorf("%w: device %d: %v", ErrUnavailable, cfg.Device, r.err)
		}
		vc = r.cap
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrUnavailable, cfg.Device)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	size := geometry.NewSize(vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight))

	logger.Info("camera opened", "device", cfg.Device, "width", size.Width, "height", size.Height)
	return &Stream{cap: vc, mat: gocv.NewMat(), size: size, logger: logger}, nil
}

// Read grabs the next frame as an RGBA image.
func (s *Stream) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("camera read failed")
	}
	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(s.mat, &rgba, gocv.ColorBGRToRGBA)
	img, err := rgba.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	if w, h := float64(s.mat.Cols()), float64(s.mat.Rows()); w != s.size.Width || h != s.size.Height {
		s.size = geometry.NewSize(w, h)
	}
	return img, nil
}

// Size returns the intrinsic frame size.
func (s *Stream) Size() geometry.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Close releases the device.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	err := s.cap.Close()
	s.logger.Info("camera released")
	return err
}
