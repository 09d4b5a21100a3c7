package calibration

import (
	"errors"
	"math"
	"strings"
	"testing"

	"bookfold/internal/detect"
	"bookfold/internal/marks"
	"bookfold/pkg/geometry"
)

func viewCorners(top, bottom, confidence float64) *detect.ViewCorners {
	return &detect.ViewCorners{
		TopLeft:     geometry.CanvasPixel{X: 10, Y: top},
		TopRight:    geometry.CanvasPixel{X: 200, Y: top},
		BottomLeft:  geometry.CanvasPixel{X: 10, Y: bottom},
		BottomRight: geometry.CanvasPixel{X: 200, Y: bottom},
		Confidence:  confidence,
	}
}

func pageOf(heightCm float64) marks.Bounds { return marks.Bounds{HeightCm: heightCm} }

func TestCalibrateAutomaticRoundTrip(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Begin()
	const H, P = 21.0, 420.0
	res := e.Calibrate(viewCorners(40, 40+P, 0.8), pageOf(H), Guide{Top: 10, Height: 300})
	if !res.OK || res.Method != MethodAutomatic {
		t.Fatalf("expected automatic success, got %+v", res)
	}
	if res.PixelsPerCm != P/H {
		t.Fatalf("pixelsPerCm = %v, want %v", res.PixelsPerCm, P/H)
	}
	if back := *e.PixelsPerCm() * H; math.Abs(back-P) > 1e-9 {
		t.Fatalf("round trip gave %v px, want %v", back, P)
	}
	if e.State() != StateCalibrated {
		t.Fatalf("state = %v, want calibrated", e.State())
	}
	if e.PageTop() != 40 || res.TopPx != 40 {
		t.Fatalf("page top = %v, want 40", e.PageTop())
	}
}

func TestCalibrateLowConfidenceFallsBackToManual(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Begin()
	res := e.Calibrate(viewCorners(0, 500, 0.4), pageOf(20), Guide{Top: 25, Height: 350})
	if !res.OK || res.Method != MethodManual {
		t.Fatalf("expected manual fallback, got %+v", res)
	}
	if res.PixelsPerCm != 17.5 {
		t.Fatalf("pixelsPerCm = %v, want 17.5", res.PixelsPerCm)
	}
	if e.PageTop() != 25 {
		t.Fatalf("page top = %v, want guide top 25", e.PageTop())
	}
	if !strings.Contains(res.Status, "not confident") {
		t.Fatalf("status = %q", res.Status)
	}
}

func TestCalibrateWeakAndMissingDetection(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	res := e.Calibrate(viewCorners(0, 500, 0.1), pageOf(20), Guide{Height: 100})
	if !strings.Contains(res.Status, "too weak") {
		t.Fatalf("status = %q", res.Status)
	}
	res = e.Calibrate(nil, pageOf(20), Guide{Height: 100})
	if !res.OK || res.Method != MethodManual || !strings.Contains(res.Status, "no page detected") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCalibrateZeroDetectedHeightFallsBack(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	res := e.Calibrate(viewCorners(100, 100, 0.9), pageOf(10), Guide{Height: 250})
	if res.Method != MethodManual || res.PixelsPerCm != 25 {
		t.Fatalf("expected manual 25 px/cm, got %+v", res)
	}
}

func TestCalibrateInvalidHeightKeepsScale(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Calibrate(nil, pageOf(10), Guide{Height: 200})
	res := e.Calibrate(viewCorners(0, 300, 0.9), pageOf(0), Guide{Height: 200})
	if res.OK || !errors.Is(res.Err, ErrInvalidHeight) {
		t.Fatalf("expected invalid height failure, got %+v", res)
	}
	if res.Status == "" {
		t.Fatal("failure must carry a status message")
	}
	if got := e.PixelsPerCm(); got == nil || *got != 20 {
		t.Fatalf("scale changed on failure: %v", got)
	}
}

func TestCalibrateNoViewport(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	res := e.Calibrate(nil, pageOf(10), Guide{})
	if res.OK || e.PixelsPerCm() != nil {
		t.Fatalf("expected failure without a viewport, got %+v", res)
	}
}

func TestInvalidateResetsToIdle(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Begin()
	e.Calibrate(nil, pageOf(10), Guide{Height: 200})
	e.Invalidate()
	if e.PixelsPerCm() != nil || e.State() != StateIdle || e.Method() != MethodNone {
		t.Fatalf("invalidate left state %v / %v", e.State(), e.PixelsPerCm())
	}
}

func TestCancelRestoresPreviousState(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Begin()
	e.Cancel()
	if e.State() != StateIdle {
		t.Fatalf("state = %v, want idle", e.State())
	}
	e.Calibrate(nil, pageOf(10), Guide{Height: 200})
	e.Begin()
	e.Cancel()
	if e.State() != StateCalibrated {
		t.Fatalf("state = %v, want calibrated", e.State())
	}
}

func TestPixelsPerCmReturnsCopy(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Calibrate(nil, pageOf(10), Guide{Height: 200})
	p := e.PixelsPerCm()
	*p = 99
	if *e.PixelsPerCm() != 20 {
		t.Fatal("caller mutated engine scale")
	}
}

func TestManualGuideHeight(t *testing.T) {
	e := NewEngine(Settings{MinConfidence: 0.4}, nil)
	if got := e.ManualGuideHeight(600); got != 420 {
		t.Fatalf("guide height = %v, want 420", got)
	}
	if e.ManualGuideHeight(-1) != 0 {
		t.Fatal("negative container must give 0")
	}
	g := e.ManualGuide(600)
	if g.Top != 90 || g.Height != 420 {
		t.Fatalf("guide = %+v, want top 90 height 420", g)
	}
}

func TestCalibrateRejectsNoUsableHeight(t *testing.T) {
	e := NewEngine(DefaultSettings(), nil)
	e.Calibrate(nil, pageOf(10), Guide{Height: 200})
	before := *e.PixelsPerCm()

	e.Begin()
	for _, b := range []marks.Bounds{
		{HeightCm: 20, PaddingTopCm: 10, PaddingBottomCm: 10},
		{HeightCm: 20, PaddingTopCm: 15, PaddingBottomCm: 8},
	} {
		res := e.Calibrate(viewCorners(0, 400, 0.9), b, Guide{Height: 300})
		if res.OK || !errors.Is(res.Err, ErrNoUsableHeight) {
			t.Fatalf("bounds %+v: expected usable height failure, got %+v", b, res)
		}
		if !strings.Contains(res.Status, "padding") {
			t.Fatalf("status = %q", res.Status)
		}
		if got := *e.PixelsPerCm(); got != before {
			t.Fatalf("scale changed to %v, want %v", got, before)
		}
	}
	if e.State() != StateDetecting {
		t.Fatalf("state = %v, want detecting after failure", e.State())
	}
}
