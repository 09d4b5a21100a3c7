package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"bookfold/internal/calibration"
	"bookfold/internal/config"
	"bookfold/internal/detect"
	"bookfold/internal/navigation"
	"bookfold/internal/viewport"
	"bookfold/pkg/geometry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	mu     sync.Mutex
	img    image.Image
	size   geometry.Size
	err    error
	reads  int
	closed int
}

func (f *fakeSource) Read() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func (f *fakeSource) Size() geometry.Size { return f.size }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// pageFrame is a black frame with four white squares, one per quadrant.
func pageFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 180))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	for _, o := range []image.Point{{30, 30}, {160, 30}, {30, 130}, {160, 130}} {
		for y := o.Y; y < o.Y+10; y++ {
			for x := o.X; x < o.X+10; x++ {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func newTestState(src *fakeSource) *State {
	cfg := config.Defaults()
	cfg.Detection.PollInterval = 50 * time.Millisecond
	var open Opener
	if src != nil {
		open = func(context.Context) (FrameSource, error) { return src, nil }
	}
	return NewState(Options{
		Config:        cfg,
		Logger:        discardLogger(),
		Open:          open,
		FrameInterval: 5 * time.Millisecond,
		WatchInterval: 10 * time.Millisecond,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCameraFailureIsRecoverable(t *testing.T) {
	src := &fakeSource{img: pageFrame(), size: geometry.NewSize(200, 180)}
	fail := true
	s := newTestState(nil)
	s.open = func(context.Context) (FrameSource, error) {
		if fail {
			return nil, errors.New("permission denied")
		}
		return src, nil
	}
	defer s.Close()

	if err := s.StartCamera(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if s.CameraOn() || !strings.Contains(s.Status(), "unavailable") {
		t.Fatalf("camera on=%v status=%q", s.CameraOn(), s.Status())
	}

	fail = false
	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !s.CameraOn() {
		t.Fatal("camera should be on after retry")
	}
	waitFor(t, "first frame", func() bool { return s.LatestFrame() != nil })
}

func TestStartCameraWithoutOpener(t *testing.T) {
	s := newTestState(nil)
	if err := s.StartCamera(context.Background()); !errors.Is(err, ErrNoCamera) {
		t.Fatalf("err = %v", err)
	}
}

func TestStopCameraReleasesOnce(t *testing.T) {
	src := &fakeSource{img: pageFrame(), size: geometry.NewSize(200, 180)}
	s := newTestState(src)
	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.SetCalibrating(true)
	s.StopCamera()
	s.StopCamera()
	s.Close()
	if got := src.closeCount(); got != 1 {
		t.Fatalf("close count = %d, want 1", got)
	}
	if s.CameraOn() || s.LatestFrame() != nil || s.Corners() != nil {
		t.Fatal("camera state not cleared")
	}
	if s.CalibrationState() != calibration.StateIdle {
		t.Fatalf("calibration state = %v", s.CalibrationState())
	}
}

func TestReadFailuresStopCamera(t *testing.T) {
	src := &fakeSource{err: errors.New("unplugged"), size: geometry.NewSize(10, 10)}
	s := newTestState(src)
	s.frameInterval = time.Millisecond
	defer s.Close()
	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "camera stop", func() bool { return !s.CameraOn() })
	waitFor(t, "device release", func() bool { return src.closeCount() == 1 })
}

func TestCalibrateFromDetection(t *testing.T) {
	src := &fakeSource{img: pageFrame(), size: geometry.NewSize(200, 180)}
	s := newTestState(src)
	defer s.Close()
	s.Resize(geometry.NewSize(400, 360))

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.SetCalibrating(true)
	if s.CalibrationState() != calibration.StateDetecting {
		t.Fatalf("state = %v, want detecting", s.CalibrationState())
	}
	waitFor(t, "detection", func() bool { return s.Corners() != nil })

	vc := s.Corners()
	if vc.Confidence <= 0.4 {
		t.Fatalf("confidence = %v", vc.Confidence)
	}
	res := s.Calibrate()
	if !res.OK || res.Method != calibration.MethodAutomatic {
		t.Fatalf("result = %+v", res)
	}
	if want := vc.Height() / 20; math.Abs(res.PixelsPerCm-want) > 1e-9 {
		t.Fatalf("pixelsPerCm = %v, want %v", res.PixelsPerCm, want)
	}
	if s.Calibrating() || s.Corners() != nil {
		t.Fatal("successful calibration must leave calibration mode and clear corners")
	}
	if s.CalibrationState() != calibration.StateCalibrated {
		t.Fatalf("state = %v", s.CalibrationState())
	}
}

func TestCalibrateManualWithoutCamera(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(400, 600))
	res := s.Calibrate()
	if !res.OK || res.Method != calibration.MethodManual || res.PixelsPerCm != 21 {
		t.Fatalf("result = %+v", res)
	}
	if s.Status() != res.Status {
		t.Fatalf("status = %q", s.Status())
	}
}

func TestCalibrateManualAccountsForZoom(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(400, 600))
	s.Zoom(2)
	res := s.Calibrate()
	// The 420px guide covers 210 canvas pixels at 2x.
	if math.Abs(res.PixelsPerCm-10.5) > 1e-9 {
		t.Fatalf("pixelsPerCm = %v, want 10.5", res.PixelsPerCm)
	}
}

func TestCalibrateZeroHeightFails(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(400, 600))
	s.SetPageHeight(0)
	res := s.Calibrate()
	if res.OK || s.PixelsPerCm() != nil {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(s.Status(), "failed") {
		t.Fatalf("status = %q", s.Status())
	}
}

func TestCalibratePaddingConsumesPageFails(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(400, 600))
	s.SetPageHeight(20)
	s.SetPadding(10, 10)
	res := s.Calibrate()
	if res.OK || !errors.Is(res.Err, calibration.ErrNoUsableHeight) {
		t.Fatalf("result = %+v", res)
	}
	if s.PixelsPerCm() != nil {
		t.Fatal("scale must stay unset")
	}
	if !strings.HasPrefix(s.Status(), "Calibration failed") {
		t.Fatalf("status = %q", s.Status())
	}

	s.SetPadding(1, 1)
	if res := s.Calibrate(); !res.OK {
		t.Fatalf("expected success once usable height is back, got %+v", res)
	}
}

func TestDimensionChangeInvalidates(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(400, 600))
	s.Calibrate()
	s.SetPageHeight(25)
	if s.PixelsPerCm() != nil || s.CalibrationState() != calibration.StateIdle {
		t.Fatal("height change must drop calibration")
	}
	s.Calibrate()
	s.SetPadding(0.5, 0.5)
	if s.PixelsPerCm() != nil {
		t.Fatal("padding change must drop calibration")
	}
	s.Calibrate()
	s.SetPageWidth(15)
	if s.PixelsPerCm() == nil {
		t.Fatal("width is informational and must not drop calibration")
	}
}

func TestStaleGenerationDiscarded(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(200, 180))
	s.view.SetVideoSize(geometry.NewSize(200, 180))
	s.generation = 5

	c := &detect.Corners{BottomLeft: geometry.VideoPixel{Y: 100}, Confidence: 0.9}
	s.publishCorners(4, c)
	if s.Corners() != nil {
		t.Fatal("stale result applied")
	}
	s.publishCorners(5, c)
	if s.Corners() == nil {
		t.Fatal("current result dropped")
	}
	if !strings.Contains(s.Status(), "detected") {
		t.Fatalf("status = %q", s.Status())
	}
}

func TestInstructionsChangeRemapsPage(t *testing.T) {
	s := newTestState(nil)
	s.SetInstructions("1: 2, 4\n2: 5\n3: 6, 7")
	s.NextPage()
	s.NextPage()
	s.NextMark()
	if s.Page().Current != 3 || s.Navigation().ShowAll != true || s.Navigation().Current != 1 {
		t.Fatalf("page %d nav %+v", s.Page().Current, s.Navigation())
	}

	s.SetInstructions("1: 2, 4\n2: 6")
	if s.Page().Current != 1 {
		t.Fatalf("current = %d, want 1", s.Page().Current)
	}
	if s.Navigation() != navigation.Initial() {
		t.Fatalf("nav = %+v", s.Navigation())
	}

	s.SetInstructions("")
	if s.Page().Current != 0 || !strings.Contains(s.Status(), "No marks") {
		t.Fatalf("current = %d status %q", s.Page().Current, s.Status())
	}
}

func TestMarkNavigation(t *testing.T) {
	s := newTestState(nil)
	s.SetInstructions("1: 2, 4, 6")
	var events int
	s.On(EventMarksChanged, func(interface{}) { events++ })

	s.PrevMark()
	if s.Navigation().Current != 2 {
		t.Fatalf("nav = %+v", s.Navigation())
	}
	s.NextMark()
	if s.Navigation().Current != 0 || s.Navigation().ShowAll {
		t.Fatalf("nav = %+v", s.Navigation())
	}
	if !strings.HasPrefix(s.Status(), navigation.StatusCycling) {
		t.Fatalf("status = %q", s.Status())
	}
	s.ToggleAllMarks()
	if !s.Navigation().ShowAll || s.Navigation().Current != 0 {
		t.Fatalf("nav = %+v", s.Navigation())
	}
	if events != 3 {
		t.Fatalf("events = %d, want 3", events)
	}
}

func TestPageBoundaryStatus(t *testing.T) {
	s := newTestState(nil)
	s.SetInstructions("1: 2\n4: 3")
	if s.PrevPage() || s.Page().Current != 1 || s.Status() != navigation.StatusFirstPage {
		t.Fatalf("page %d status %q", s.Page().Current, s.Status())
	}
	if !s.NextPage() || s.Page().Current != 4 {
		t.Fatalf("page %d", s.Page().Current)
	}
	if s.NextPage() || s.Status() != navigation.StatusLastPage {
		t.Fatalf("status %q", s.Status())
	}
}

func TestSceneProjectsMarks(t *testing.T) {
	s := newTestState(nil)
	s.Resize(geometry.NewSize(300, 400))
	s.view.SetVideoSize(geometry.NewSize(300, 400))
	s.SetPadding(0.5, 0.5)
	s.SetInstructions("1: 0.5, 10, 19.5, 25")
	res := s.Calibrate()
	if res.PixelsPerCm != 14 {
		t.Fatalf("pixelsPerCm = %v, want 14", res.PixelsPerCm)
	}

	sc := s.Scene()
	if len(sc.Marks) != 3 {
		t.Fatalf("marks = %+v", sc.Marks)
	}
	want := []float64{67, 200, 333}
	for i, m := range sc.Marks {
		if math.Abs(m.Pos.Y-want[i]) > 1e-9 {
			t.Errorf("mark %d at y=%v, want %v", i, m.Pos.Y, want[i])
		}
	}
	if sc.Guide != nil || sc.Corners != nil {
		t.Fatal("guides belong to calibration mode only")
	}

	s.SetCalibrating(true)
	if sc := s.Scene(); sc.Guide == nil || sc.Guide.Top != 60 {
		t.Fatalf("guide = %+v", sc.Guide)
	}
}

func TestEventsDeliverStatus(t *testing.T) {
	s := newTestState(nil)
	var got []string
	s.On(EventStatus, func(d interface{}) { got = append(got, d.(string)) })
	s.SetStatus("")
	s.SetStatus("hello")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestOnResizeCancelledOnClose(t *testing.T) {
	s := newTestState(nil)
	calls := 0
	s.OnResize(func(viewport.Layout) { calls++ })
	s.Resize(geometry.NewSize(10, 10))
	s.Close()
	s.Resize(geometry.NewSize(20, 20))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
