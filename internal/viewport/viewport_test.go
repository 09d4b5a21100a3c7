package viewport

import (
	"math"
	"testing"

	"bookfold/pkg/geometry"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestZoomClamps(t *testing.T) {
	m := NewModel(DefaultLimits())
	for i := 0; i < 50; i++ {
		m.Zoom(2)
	}
	if got := m.Transform().Scale; got != DefaultMaxScale {
		t.Fatalf("scale = %v, want %v", got, DefaultMaxScale)
	}
	for i := 0; i < 50; i++ {
		m.ZoomBy(-1)
	}
	if got := m.Transform().Scale; got != DefaultMinScale {
		t.Fatalf("scale = %v, want %v", got, DefaultMinScale)
	}
	before := m.Transform()
	if after := m.Zoom(-3); after != before {
		t.Fatalf("non-positive factor changed transform: %+v", after)
	}
}

func TestPanOnlyWhenInteractive(t *testing.T) {
	m := NewModel(DefaultLimits())
	if m.Pan(10, 5) {
		t.Fatal("pan should be ignored outside interactive mode")
	}
	m.SetInteractive(true)
	m.Pan(10, 5)
	m.Pan(-4, 1)
	tr := m.Transform()
	if tr.X != 6 || tr.Y != 6 {
		t.Fatalf("transform = %+v, want X=6 Y=6", tr)
	}
	m.SetInteractive(false)
	if m.Transform() != tr {
		t.Fatal("transform must persist across mode toggles")
	}
	m.Reset()
	if m.Transform() != IdentityTransform() {
		t.Fatalf("reset gave %+v", m.Transform())
	}
}

func TestVideoToCanvasScalesPerAxis(t *testing.T) {
	l := Layout{
		Container: geometry.NewSize(640, 480),
		Video:     geometry.NewSize(1280, 720),
		Transform: IdentityTransform(),
	}
	c := l.VideoToCanvas(geometry.VideoPixel{X: 1280, Y: 360})
	if !near(c.X, 640) || !near(c.Y, 240) {
		t.Fatalf("canvas = %+v", c)
	}
	v := l.CanvasToVideo(c)
	if !near(v.X, 1280) || !near(v.Y, 360) {
		t.Fatalf("round trip = %+v", v)
	}
	r := l.VideoRect()
	if r.Width != 640 || r.Height != 480 {
		t.Fatalf("video rect = %+v", r)
	}
}

func TestCanvasToScreenTranslateThenScaleAboutCenter(t *testing.T) {
	l := Layout{
		Container: geometry.NewSize(200, 100),
		Video:     geometry.NewSize(200, 100),
		Transform: Transform{Scale: 2, X: 10, Y: 0},
	}
	// (100,50) is the center: translated to (110,50), then scaled about
	// (100,50) to (120,50).
	s := l.CanvasToScreen(geometry.CanvasPixel{X: 100, Y: 50})
	if !near(s.X, 120) || !near(s.Y, 50) {
		t.Fatalf("screen = %+v, want (120,50)", s)
	}
	back := l.ScreenToCanvas(s)
	if !near(back.X, 100) || !near(back.Y, 50) {
		t.Fatalf("inverse = %+v", back)
	}
}

func TestCanvasRectToScreen(t *testing.T) {
	l := Layout{
		Container: geometry.NewSize(100, 100),
		Video:     geometry.NewSize(100, 100),
		Transform: Transform{Scale: 2},
	}
	r := l.CanvasRectToScreen(geometry.NewRect(25, 25, 50, 50))
	if r.X != 0 || r.Y != 0 || r.Width != 100 || r.Height != 100 {
		t.Fatalf("rect = %+v", r)
	}
}

func TestExpectedHeightTracksResize(t *testing.T) {
	m := NewModel(DefaultLimits())
	if got := m.Layout().ExpectedHeight(0.7); got != 0 {
		t.Fatalf("expected 0 before sizing, got %v", got)
	}
	var seen []float64
	cancel := m.OnResize(func(l Layout) { seen = append(seen, l.ExpectedHeight(0.7)) })
	m.Resize(geometry.NewSize(300, 600))
	m.Resize(geometry.NewSize(300, 600))
	m.Resize(geometry.NewSize(300, 1000))
	cancel()
	cancel()
	m.Resize(geometry.NewSize(300, 200))
	if len(seen) != 2 || !near(seen[0], 420) || !near(seen[1], 700) {
		t.Fatalf("resize notifications = %v", seen)
	}
}

func TestNewModelRepairsLimits(t *testing.T) {
	m := NewModel(Limits{MinScale: 3, MaxScale: 1})
	m.Zoom(100)
	if m.Transform().Scale != DefaultMaxScale {
		t.Fatalf("scale = %v", m.Transform().Scale)
	}
}
