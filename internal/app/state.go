// Package app owns the session state and the background tasks of the camera
// view: frame capture, detection polling and instruction reloading.
package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"bookfold/internal/calibration"
	"bookfold/internal/config"
	"bookfold/internal/detect"
	"bookfold/internal/navigation"
	"bookfold/internal/page"
	"bookfold/internal/viewport"
	"bookfold/pkg/geometry"
)

// EventType identifies different application events.
type EventType int

const (
	EventStatus             EventType = iota // data: string
	EventCameraChanged                       // data: bool, camera on
	EventFrame                               // data: nil
	EventCornersDetected                     // data: *detect.ViewCorners, nil when lost
	EventCalibrationChanged                  // data: calibration.Result or nil
	EventPageChanged                         // data: int, current page
	EventMarksChanged                        // data: navigation.Marks
	EventTransformChanged                    // data: viewport.Transform
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// FrameSource is a running camera.
type FrameSource interface {
	Read() (image.Image, error)
	Size() geometry.Size
	Close() error
}

// Opener acquires a camera. Failure is recoverable; the user may retry.
type Opener func(ctx context.Context) (FrameSource, error)

// Options configure a State.
type Options struct {
	Config        config.Config
	Logger        *slog.Logger
	Open          Opener
	FrameInterval time.Duration // display frame rate, default 33ms
	WatchInterval time.Duration // instructions file poll, default 1s
}

// State is the single owner of page settings, calibration, the viewport and
// mark navigation. Methods are safe to call from UI callbacks and background
// goroutines alike. Listeners are called without the lock held.
type State struct {
	mu sync.RWMutex

	cfg    config.Config
	logger *slog.Logger
	open   Opener

	page     *page.Data
	calib    *calibration.Engine
	view     *viewport.Model
	nav      navigation.Marks
	detector *detect.Detector
	poller   *Poller

	source      FrameSource
	opening     bool
	frame       image.Image
	calibrating bool
	generation  uint64
	corners     *detect.Corners // video space, current generation only
	found       bool
	status      string

	frameInterval time.Duration
	watchInterval time.Duration
	watcher       *InstructionsWatcher

	camScope  scope // frame loop and device
	pollScope scope // detection poller
	appScope  scope // everything else

	listeners map[EventType][]EventListener
}

// NewState creates the session state from cfg.
func NewState(opts Options) *State {
	cfg := opts.Config
	cfg.Validate()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		cfg:    cfg,
		logger: logger,
		open:   opts.Open,
		page: &page.Data{
			HeightCm:        cfg.Page.HeightCm,
			WidthCm:         cfg.Page.WidthCm,
			PaddingTopCm:    cfg.Page.PaddingTopCm,
			PaddingBottomCm: cfg.Page.PaddingBottomCm,
		},
		calib: calibration.NewEngine(calibration.Settings{
			MinConfidence:    cfg.Calibration.MinConfidence,
			WeakConfidence:   cfg.Calibration.WeakConfidence,
			ManualGuideRatio: cfg.Calibration.ManualGuideRatio,
		}, logger.With("component", "calibration")),
		view: viewport.NewModel(viewport.Limits{
			MinScale: cfg.Viewport.MinScale,
			MaxScale: cfg.Viewport.MaxScale,
			ZoomStep: cfg.Viewport.ZoomStep,
		}),
		nav: navigation.Initial(),
		detector: detect.NewDetector(detect.Params{
			Stride:         cfg.Detection.Stride,
			Margin:         cfg.Detection.Margin,
			Threshold:      cfg.Detection.Threshold,
			Neighborhood:   cfg.Detection.Neighborhood,
			MaxCandidates:  cfg.Detection.MaxCandidates,
			StrengthWeight: cfg.Detection.StrengthWeight,
			RectWeight:     cfg.Detection.RectWeight,
		}, logger.With("component", "detect")),
		frameInterval: opts.FrameInterval,
		watchInterval: opts.WatchInterval,
		listeners:     make(map[EventType][]EventListener),
	}
	if s.frameInterval <= 0 {
		s.frameInterval = 33 * time.Millisecond
	}
	if s.watchInterval <= 0 {
		s.watchInterval = time.Second
	}
	s.poller = NewPoller(cfg.Detection.PollInterval, s.LatestFrame, s.detector.Detect,
		s.publishCorners, logger.With("component", "poller"))
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Config returns the configuration the state was built with.
func (s *State) Config() config.Config { return s.cfg }

// Viewport returns the pan/zoom model.
func (s *State) Viewport() *viewport.Model { return s.view }

// SetStatus publishes a user-facing status line.
func (s *State) SetStatus(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	s.logger.Debug("status", "message", msg)
	s.Emit(EventStatus, msg)
}

// Status returns the last status line.
func (s *State) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Page returns a copy of the page settings.
func (s *State) Page() page.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := *s.page
	p.Parsed = append([]string(nil), s.page.Parsed...)
	return p
}

// MarksCm returns the marks of the current page.
func (s *State) MarksCm() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page.Marks()
}

// Navigation returns the mark navigation state.
func (s *State) Navigation() navigation.Marks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nav
}

// PixelsPerCm returns the calibration scale, or nil when uncalibrated.
func (s *State) PixelsPerCm() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calib.PixelsPerCm()
}

// CalibrationState returns the calibration lifecycle state.
func (s *State) CalibrationState() calibration.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calib.State()
}

// Calibrating reports whether calibration mode is on.
func (s *State) Calibrating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrating
}

// CameraOn reports whether a camera is running.
func (s *State) CameraOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source != nil
}

// LatestFrame returns the most recent camera frame, or nil.
func (s *State) LatestFrame() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Corners returns the latest detection converted to canvas space with the
// current layout, or nil.
func (s *State) Corners() *detect.ViewCorners {
	layout := s.view.Layout()
	s.mu.RLock()
	c := s.corners
	s.mu.RUnlock()
	return toView(c, layout)
}

func toView(c *detect.Corners, layout viewport.Layout) *detect.ViewCorners {
	if c == nil || !layout.Ready() {
		return nil
	}
	v := c.ToView(layout.VideoToCanvas)
	return &v
}

// SetCalibrating switches calibration mode. While on and the camera runs, the
// detection poller is active and drag panning is enabled.
func (s *State) SetCalibrating(on bool) {
	s.mu.Lock()
	if s.calibrating == on {
		s.mu.Unlock()
		return
	}
	s.calibrating = on
	cameraOn := s.source != nil
	if !on {
		s.calib.Cancel()
	} else if cameraOn {
		s.calib.Begin()
	}
	s.mu.Unlock()

	s.view.SetInteractive(on)
	if on && cameraOn {
		s.startPolling()
	} else if !on {
		s.stopPolling()
	}

	switch {
	case on && cameraOn:
		s.SetStatus("Calibration mode: align the page with the guides or wait for detection")
	case on:
		s.SetStatus("Calibration mode: start the camera to detect the page")
	default:
		s.SetStatus("Calibration mode off")
	}
	s.Emit(EventCalibrationChanged, nil)
}

// Calibrate computes the scale from the latest detection, falling back to the
// manual guides. Sizes are taken from the viewport at the moment of the call.
func (s *State) Calibrate() calibration.Result {
	layout := s.view.Layout()

	s.mu.Lock()
	vc := toView(s.corners, layout)
	guide := canvasGuide(s.calib.ManualGuide(layout.Container.Height), layout)
	res := s.calib.Calibrate(vc, s.page.Bounds(), guide)
	wasCalibrating := s.calibrating
	s.mu.Unlock()

	if res.OK && wasCalibrating {
		s.SetCalibrating(false)
	}
	s.SetStatus(res.Status)
	s.Emit(EventCalibrationChanged, res)
	return res
}

// canvasGuide maps the fixed guide band back through the pan/zoom transform,
// so the scale is expressed in canvas pixels like the detected corners.
func canvasGuide(g calibration.Guide, layout viewport.Layout) calibration.Guide {
	top := layout.ScreenToCanvas(geometry.ScreenPixel{Y: g.Top})
	bottom := layout.ScreenToCanvas(geometry.ScreenPixel{Y: g.Top + g.Height})
	return calibration.Guide{Top: top.Y, Height: bottom.Y - top.Y}
}

// ManualGuide returns the guide band for the current container, in canvas
// space of the fixed overlay layer.
func (s *State) ManualGuide() calibration.Guide {
	layout := s.view.Layout()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calib.ManualGuide(layout.Container.Height)
}

// SetPageHeight changes the page height. Any calibration is dropped.
func (s *State) SetPageHeight(cm float64) {
	s.mu.Lock()
	if cm == s.page.HeightCm {
		s.mu.Unlock()
		return
	}
	s.page.HeightCm = cm
	s.mu.Unlock()
	s.invalidate()
	if cm <= 0 {
		s.SetStatus("Page height must be greater than 0 cm")
	}
}

// SetPageWidth changes the informational page width.
func (s *State) SetPageWidth(cm float64) {
	s.mu.Lock()
	s.page.WidthCm = cm
	s.mu.Unlock()
	s.Emit(EventPageChanged, s.Page().Current)
}

// SetPadding changes the top and bottom padding. Any calibration is dropped.
func (s *State) SetPadding(topCm, bottomCm float64) {
	s.mu.Lock()
	if topCm == s.page.PaddingTopCm && bottomCm == s.page.PaddingBottomCm {
		s.mu.Unlock()
		return
	}
	s.page.PaddingTopCm = topCm
	s.page.PaddingBottomCm = bottomCm
	usable := s.page.UsableHeight()
	s.mu.Unlock()
	s.invalidate()
	if usable <= 0 {
		s.SetStatus("Padding leaves no usable page height")
	}
}

func (s *State) invalidate() {
	s.mu.Lock()
	had := s.calib.PixelsPerCm() != nil
	s.calib.Invalidate()
	current := s.page.Current
	s.mu.Unlock()
	if had {
		s.SetStatus("Page dimensions changed: recalibrate")
	}
	s.Emit(EventCalibrationChanged, nil)
	s.Emit(EventPageChanged, current)
}

// SetInstructions replaces the instruction text. The current page moves to
// the nearest page with marks and mark navigation resets.
func (s *State) SetInstructions(text string) {
	s.mu.Lock()
	s.page.SetInstructions(text)
	s.nav.Reset()
	current := s.page.Current
	pages := 0
	for _, e := range s.page.Parsed {
		if navigation.HasMarks(e) {
			pages++
		}
	}
	nav := s.nav
	s.mu.Unlock()

	if pages == 0 {
		s.SetStatus("No marks found in instructions")
	} else {
		s.SetStatus(fmt.Sprintf("Loaded instructions: %d pages with marks, showing page %d", pages, current))
	}
	s.Emit(EventPageChanged, current)
	s.Emit(EventMarksChanged, nav)
}

// LoadInstructionsFile reads instructions from path and reloads them whenever
// the file changes.
func (s *State) LoadInstructionsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		s.SetStatus("Could not read instructions file")
		return fmt.Errorf("failed to read instructions: %w", err)
	}
	s.SetInstructions(string(data))
	return s.WatchInstructions(path)
}

// WatchInstructions replaces any existing watcher with one on path.
func (s *State) WatchInstructions(path string) error {
	w, err := NewInstructionsWatcher(path, s.watchInterval, s.logger.With("component", "watcher"))
	if err != nil {
		return err
	}
	w.OnChange(s.SetInstructions)

	s.mu.Lock()
	old := s.watcher
	s.watcher = w
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	w.Start()
	return nil
}

// StopWatchingInstructions stops reloading the instructions file, if any.
func (s *State) StopWatchingInstructions() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// ApplyInstructions replaces the instructions with edited text. The watched
// file, if any, is no longer followed so a later save cannot overwrite the edit.
func (s *State) ApplyInstructions(text string) {
	s.StopWatchingInstructions()
	s.SetInstructions(text)
}

// InstructionsPath returns the watched instructions file, if any.
func (s *State) InstructionsPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.watcher == nil {
		return ""
	}
	return s.watcher.Path()
}

// NextPage moves to the next page with marks.
func (s *State) NextPage() bool { return s.movePage((*page.Data).NextPage) }

// PrevPage moves to the previous page with marks.
func (s *State) PrevPage() bool { return s.movePage((*page.Data).PrevPage) }

func (s *State) movePage(move func(*page.Data) (bool, string)) bool {
	s.mu.Lock()
	ok, status := move(s.page)
	if ok {
		s.nav.Reset()
	}
	current, nav, n := s.page.Current, s.nav, len(s.page.Marks())
	s.mu.Unlock()

	if !ok {
		s.SetStatus(status)
		return false
	}
	s.SetStatus(fmt.Sprintf("Page %d: %d marks", current, n))
	s.Emit(EventPageChanged, current)
	s.Emit(EventMarksChanged, nav)
	return true
}

// NextMark advances the active mark, cycling to the first.
func (s *State) NextMark() { s.moveMark((*navigation.Marks).Next) }

// PrevMark steps back one mark, cycling to the last.
func (s *State) PrevMark() { s.moveMark((*navigation.Marks).Prev) }

// ToggleAllMarks flips between all marks and the single active mark.
func (s *State) ToggleAllMarks() {
	s.moveMark(func(m *navigation.Marks, _ int) string {
		m.ToggleAll()
		return ""
	})
}

func (s *State) moveMark(move func(*navigation.Marks, int) string) {
	s.mu.Lock()
	ms := s.page.Marks()
	status := move(&s.nav, len(ms))
	s.nav.Clamp(len(ms))
	nav := s.nav
	s.mu.Unlock()

	switch status {
	case "":
		status = nav.Describe(ms)
	case navigation.StatusCycling:
		status += ". " + nav.Describe(ms)
	}
	s.SetStatus(status)
	s.Emit(EventMarksChanged, nav)
}

// Zoom multiplies the view scale.
func (s *State) Zoom(factor float64) {
	s.Emit(EventTransformChanged, s.view.Zoom(factor))
}

// ZoomBy applies a wheel delta.
func (s *State) ZoomBy(delta float64) {
	s.Emit(EventTransformChanged, s.view.ZoomBy(delta))
}

// Pan moves the view when calibration mode allows it.
func (s *State) Pan(dx, dy float64) {
	if s.view.Pan(dx, dy) {
		s.Emit(EventTransformChanged, s.view.Transform())
	}
}

// ResetView restores the identity transform.
func (s *State) ResetView() {
	s.view.Reset()
	s.Emit(EventTransformChanged, s.view.Transform())
}

// Resize records the camera view size.
func (s *State) Resize(size geometry.Size) {
	s.view.Resize(size)
}

// OnResize subscribes to layout changes until the state is closed.
func (s *State) OnResize(fn func(viewport.Layout)) {
	s.appScope.add(s.view.OnResize(fn))
}

// Close stops every background task and releases the camera.
func (s *State) Close() {
	s.StopCamera()
	s.StopWatchingInstructions()
	s.appScope.close()
}
