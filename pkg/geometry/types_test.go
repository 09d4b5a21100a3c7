package geometry

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAffineComposeAppliesRightFirst(t *testing.T) {
	tr := Translation(10, 0)
	sc := Scale(2, 2)
	p := tr.Compose(sc).Apply(Point2D{X: 1, Y: 1})
	if !near(p.X, 12) || !near(p.Y, 2) {
		t.Fatalf("expected (12,2), got (%.2f,%.2f)", p.X, p.Y)
	}
}

func TestScaleAboutKeepsOriginFixed(t *testing.T) {
	origin := Point2D{X: 50, Y: 40}
	m := ScaleAbout(3, origin)
	p := m.Apply(origin)
	if !near(p.X, 50) || !near(p.Y, 40) {
		t.Fatalf("origin moved to (%.2f,%.2f)", p.X, p.Y)
	}
	q := m.Apply(Point2D{X: 60, Y: 40})
	if !near(q.X, 80) {
		t.Fatalf("expected x=80, got %.2f", q.X)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translation(5, -3).Compose(Scale(1.5, 1.5))
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("expected invertible transform")
	}
	p := Point2D{X: 17, Y: 23}
	back := inv.Apply(m.Apply(p))
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, p)
	}
	if _, ok := Scale(0, 1).Inverse(); ok {
		t.Fatal("degenerate scale must not be invertible")
	}
}

func TestRectCenter(t *testing.T) {
	c := NewRect(10, 20, 100, 40).Center()
	if !near(c.X, 60) || !near(c.Y, 40) {
		t.Fatalf("center = %+v", c)
	}
}

func TestBoundingBox(t *testing.T) {
	r := BoundingBox([]Point2D{{X: 3, Y: 9}, {X: -1, Y: 2}, {X: 5, Y: 4}})
	if r.X != -1 || r.Y != 2 || r.Width != 6 || r.Height != 7 {
		t.Fatalf("unexpected bounds %+v", r)
	}
	if BoundingBox(nil) != (Rect{}) {
		t.Fatal("empty input must give empty rect")
	}
}
