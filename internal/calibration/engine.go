// Package calibration turns a detected or manually aligned page height in
// pixels into a pixels-per-centimeter scale.
package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"bookfold/internal/detect"
	"bookfold/internal/marks"
)

// ErrInvalidHeight is reported when the declared page height is not positive.
var ErrInvalidHeight = errors.New("page height must be greater than zero")

// ErrNoUsableHeight is reported when padding leaves no room for marks.
var ErrNoUsableHeight = errors.New("padding leaves no usable page height")

// State is the calibration lifecycle state.
type State int

const (
	StateIdle       State = iota // no valid scale, not looking
	StateDetecting               // camera on and calibration mode on
	StateCalibrated              // scale set for the current page dimensions
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetecting:
		return "detecting"
	case StateCalibrated:
		return "calibrated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Method records which path produced a scale.
type Method int

const (
	MethodNone Method = iota
	MethodAutomatic
	MethodManual
)

func (m Method) String() string {
	switch m {
	case MethodAutomatic:
		return "automatic"
	case MethodManual:
		return "manual"
	default:
		return "none"
	}
}

// Settings holds the calibration thresholds.
type Settings struct {
	MinConfidence    float64 // detections at or below this fall back to manual
	WeakConfidence   float64 // below this the status calls the detection weak
	ManualGuideRatio float64 // guide height as a fraction of container height
}

// DefaultSettings returns the stock thresholds.
func DefaultSettings() Settings {
	return Settings{MinConfidence: 0.4, WeakConfidence: 0.2, ManualGuideRatio: 0.7}
}

// Guide is the manual alignment band in canvas space. The user lines the top
// and bottom page edges up with its two lines.
type Guide struct {
	Top    float64
	Height float64
}

// Result is the outcome of one calibration trigger. Status is always safe to
// show to the user.
type Result struct {
	OK          bool
	PixelsPerCm float64
	Method      Method
	HeightPx    float64
	TopPx       float64 // canvas Y of the page top edge at calibration time
	Status      string
	Err         error
}

// Engine holds the calibration state machine and the current scale.
// It is not safe for concurrent use; the owner serializes access.
type Engine struct {
	settings    Settings
	state       State
	pixelsPerCm *float64
	topPx       float64
	method      Method
	logger      *slog.Logger
}

// NewEngine creates an idle, uncalibrated engine.
func NewEngine(settings Settings, logger *slog.Logger) *Engine {
	if settings.ManualGuideRatio <= 0 || settings.ManualGuideRatio > 1 {
		settings.ManualGuideRatio = DefaultSettings().ManualGuideRatio
	}
	return &Engine{settings: settings, logger: logger}
}

// Settings returns the engine thresholds.
func (e *Engine) Settings() Settings { return e.settings }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// PixelsPerCm returns the current scale, or nil when uncalibrated.
func (e *Engine) PixelsPerCm() *float64 {
	if e.pixelsPerCm == nil {
		return nil
	}
	v := *e.pixelsPerCm
	return &v
}

// PageTop returns the canvas Y of the page top edge recorded with the current
// scale. Meaningless when uncalibrated.
func (e *Engine) PageTop() float64 { return e.topPx }

// Method returns how the current scale was obtained.
func (e *Engine) Method() Method { return e.method }

// Begin enters detection mode. Called when the camera is on and calibration
// mode is switched on. The existing scale stays usable until replaced.
func (e *Engine) Begin() {
	if e.state != StateDetecting {
		e.transition(StateDetecting)
	}
}

// Cancel leaves detection mode without calibrating.
func (e *Engine) Cancel() {
	if e.state != StateDetecting {
		return
	}
	if e.pixelsPerCm != nil {
		e.transition(StateCalibrated)
	} else {
		e.transition(StateIdle)
	}
}

// Invalidate drops the scale. Called whenever the page height or padding
// changes, because the scale is only valid for the dimensions it was taken with.
func (e *Engine) Invalidate() {
	e.pixelsPerCm = nil
	e.topPx = 0
	e.method = MethodNone
	if e.state == StateCalibrated {
		e.transition(StateIdle)
	}
}

// ManualGuideHeight is the expected on-screen page height for manual alignment.
func (e *Engine) ManualGuideHeight(containerHeight float64) float64 {
	if containerHeight <= 0 {
		return 0
	}
	return containerHeight * e.settings.ManualGuideRatio
}

// ManualGuide returns the guide band centered vertically in a container of
// the given height.
func (e *Engine) ManualGuide(containerHeight float64) Guide {
	h := e.ManualGuideHeight(containerHeight)
	return Guide{Top: (containerHeight - h) / 2, Height: h}
}

// Calibrate computes the scale from the latest detection, or from the manual
// guide when there is no usable detection. The guide must be derived from the
// current container size at the moment of the call.
//
// On success the engine leaves detection mode. On failure the existing scale
// is left unchanged and Result.Status explains why.
func (e *Engine) Calibrate(corners *detect.ViewCorners, page marks.Bounds, guide Guide) Result {
	pageHeightCm := page.HeightCm
	if pageHeightCm <= 0 {
		return e.fail(ErrInvalidHeight, "Calibration failed: set a page height greater than 0 cm")
	}
	if page.Usable() <= 0 {
		return e.fail(ErrNoUsableHeight, "Calibration failed: top and bottom padding leave no usable page height")
	}

	if corners != nil && corners.Confidence > e.settings.MinConfidence {
		if h := corners.Height(); h > 0 {
			top := math.Min(corners.TopLeft.Y, corners.BottomLeft.Y)
			return e.succeed(h/pageHeightCm, h, top, MethodAutomatic,
				fmt.Sprintf("Calibrated from detected page edges (%.0f%% confidence): %.2f px/cm",
					corners.Confidence*100, h/pageHeightCm))
		}
	}

	if guide.Height <= 0 {
		return e.fail(errors.New("manual guide height unavailable"),
			"Calibration failed: camera view has no size yet")
	}

	reason := "no page detected"
	if corners != nil {
		if corners.Confidence < e.settings.WeakConfidence {
			reason = "page detection too weak"
		} else {
			reason = "page detection not confident enough"
		}
	}
	ppc := guide.Height / pageHeightCm
	return e.succeed(ppc, guide.Height, guide.Top, MethodManual,
		fmt.Sprintf("Calibrated using manual guides (%s): %.2f px/cm", reason, ppc))
}

func (e *Engine) succeed(ppc, heightPx, topPx float64, m Method, status string) Result {
	e.pixelsPerCm = &ppc
	e.topPx = topPx
	e.method = m
	e.transition(StateCalibrated)
	if e.logger != nil {
		e.logger.Info("calibrated", "method", m.String(), "pixels_per_cm", ppc, "height_px", heightPx)
	}
	return Result{OK: true, PixelsPerCm: ppc, Method: m, HeightPx: heightPx, TopPx: topPx, Status: status}
}

func (e *Engine) fail(err error, status string) Result {
	if e.logger != nil {
		e.logger.Warn("calibration failed", "error", err)
	}
	return Result{Status: status, Err: err}
}

func (e *Engine) transition(next State) {
	prev := e.state
	e.state = next
	if e.logger != nil && prev != next {
		e.logger.Debug("calibration state transition", "from", prev.String(), "to", next.String())
	}
}
