package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookfold/internal/detect"
)

// ErrNoCamera is returned when the state was built without an Opener.
var ErrNoCamera = errors.New("no camera support")

// maxReadFailures is how many consecutive failed reads stop the camera.
const maxReadFailures = 50

// StartCamera acquires the camera and starts the frame loop, plus the
// detection poller when calibration mode is on. Failure leaves the camera off
// and is reported through the status line.
func (s *State) StartCamera(ctx context.Context) error {
	s.mu.Lock()
	if s.source != nil || s.opening {
		s.mu.Unlock()
		return nil
	}
	if s.open == nil {
		s.mu.Unlock()
		s.SetStatus("Camera not supported on this system")
		return ErrNoCamera
	}
	s.opening = true
	s.mu.Unlock()

	src, err := s.open(ctx)

	s.mu.Lock()
	s.opening = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("camera open failed", "error", err)
		s.SetStatus("Camera unavailable: check that it is connected and allowed")
		s.Emit(EventCameraChanged, false)
		return fmt.Errorf("failed to start camera: %w", err)
	}
	s.source = src
	calibrating := s.calibrating
	if calibrating {
		s.calib.Begin()
	}
	s.mu.Unlock()

	s.view.SetVideoSize(src.Size())

	loopCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runFrames(loopCtx, src)
	}()
	// Reverse order on close: stop the loop, then release the device.
	s.camScope.add(func() {
		if err := src.Close(); err != nil {
			s.logger.Warn("camera close failed", "error", err)
		}
	})
	s.camScope.add(func() {
		cancel()
		wg.Wait()
	})

	if calibrating {
		s.startPolling()
	}
	s.SetStatus("Camera started")
	s.Emit(EventCameraChanged, true)
	return nil
}

// StopCamera cancels polling, discards detections, stops the frame loop and
// releases the device. Safe to call when the camera is off.
func (s *State) StopCamera() {
	s.stopPolling()
	wasOn := !s.camScope.empty()
	s.camScope.close()

	s.mu.Lock()
	s.source = nil
	s.frame = nil
	s.calib.Cancel()
	s.mu.Unlock()

	if wasOn {
		s.SetStatus("Camera stopped")
		s.Emit(EventCameraChanged, false)
	}
}

// runFrames reads frames until ctx is cancelled. Reads that keep failing
// stop the camera instead of spinning.
func (s *State) runFrames(ctx context.Context, src FrameSource) {
	defer recoverLog(s.logger, "frame loop")
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		img, err := src.Read()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			if failures == 1 {
				s.logger.Warn("camera read failed", "error", err)
			}
			if failures >= maxReadFailures {
				s.SetStatus("Camera stopped delivering frames")
				go s.StopCamera()
				return
			}
			continue
		}
		failures = 0

		if size := src.Size(); size != s.view.Layout().Video {
			s.view.SetVideoSize(size)
		}
		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()
		s.Emit(EventFrame, nil)
	}
}

// startPolling starts the detector under a new generation.
func (s *State) startPolling() {
	s.stopPolling()
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.pollScope.add(s.poller.Start(context.Background(), gen))
}

// stopPolling stops the detector, waits for a detection in flight and drops
// every result of the stopped generation.
func (s *State) stopPolling() {
	if s.pollScope.empty() {
		s.mu.Lock()
		s.corners = nil
		s.mu.Unlock()
		return
	}
	s.pollScope.close()
	s.mu.Lock()
	s.generation++
	s.corners = nil
	s.found = false
	s.mu.Unlock()
	s.Emit(EventCornersDetected, (*detect.ViewCorners)(nil))
}

// publishCorners stores a detection result unless it belongs to a stopped
// generation.
func (s *State) publishCorners(gen uint64, c *detect.Corners) {
	layout := s.view.Layout()
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("stale detection discarded", "generation", gen)
		return
	}
	s.corners = c
	wasFound := s.found
	s.found = c != nil
	weak := s.calib.Settings().WeakConfidence
	minConf := s.calib.Settings().MinConfidence
	s.mu.Unlock()

	vc := toView(c, layout)
	switch {
	case vc == nil && wasFound:
		s.SetStatus("Page lost: align with the guides")
	case vc != nil && !wasFound:
		switch {
		case vc.Confidence > minConf:
			s.SetStatus(fmt.Sprintf("Page detected (%.0f%% confidence)", vc.Confidence*100))
		case vc.Confidence < weak:
			s.SetStatus(fmt.Sprintf("Weak detection (%.0f%%): align with the guides", vc.Confidence*100))
		default:
			s.SetStatus(fmt.Sprintf("Low confidence detection (%.0f%%)", vc.Confidence*100))
		}
	}
	s.Emit(EventCornersDetected, vc)
}
