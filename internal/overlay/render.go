// Package overlay rasterizes the camera view: the scaled and transformed
// frame, the fixed calibration layer and the fold marks.
package overlay

import (
	"fmt"
	"image"
	"math"

	"bookfold/internal/calibration"
	"bookfold/internal/detect"
	"bookfold/internal/marks"
	"bookfold/internal/viewport"
	"bookfold/pkg/colorutil"
	"bookfold/pkg/geometry"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Scene is everything drawn in one pass.
//
// Guide and Corners are in canvas space and are drawn on the fixed layer.
// Marks and PageRect are in screen space, inside the transformed layer.
type Scene struct {
	Layout   viewport.Layout
	Frame    image.Image
	Guide    *calibration.Guide
	Corners  *detect.ViewCorners
	Marks    []marks.Projected
	PageRect geometry.Rect
}

// Render draws the scene into a new w x h image.
func Render(s Scene, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	if w <= 0 || h <= 0 {
		return dst
	}

	DrawFrame(dst, s.Frame, s.Layout)
	DrawMarks(dst, s.Marks, s.PageRect)
	if s.Guide != nil {
		DrawGuide(dst, *s.Guide)
	}
	if s.Corners != nil {
		DrawCorners(dst, *s.Corners)
	}
	return dst
}

// FrameMatrix maps frame pixels to screen pixels: video to canvas scaling,
// then the pan/zoom transform.
func FrameMatrix(l viewport.Layout) geometry.AffineTransform {
	sx, sy := l.VideoScale()
	return l.Matrix().Compose(geometry.Scale(sx, sy))
}

// DrawFrame scales the camera frame into dst through the viewport.
func DrawFrame(dst *image.RGBA, frame image.Image, l viewport.Layout) {
	if frame == nil || frame.Bounds().Empty() {
		return
	}
	if l.Video.Empty() {
		b := frame.Bounds()
		l.Video = geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	}
	if l.Container.Empty() {
		l.Container = geometry.NewSize(float64(dst.Rect.Dx()), float64(dst.Rect.Dy()))
	}
	m := FrameMatrix(l)
	// Frames may not start at the origin.
	o := frame.Bounds().Min
	m = m.Compose(geometry.Translation(-float64(o.X), -float64(o.Y)))
	aff := f64.Aff3{m.A, m.B, m.TX, m.C, m.D, m.TY}
	xdraw.ApproxBiLinear.Transform(dst, aff, frame, frame.Bounds(), xdraw.Src, nil)
}

// DrawMarks draws fold mark ticks starting at the left of rect.
func DrawMarks(dst *image.RGBA, ms []marks.Projected, rect geometry.Rect) {
	width := rect.Width
	if width <= 0 {
		width = float64(dst.Rect.Dx()) - rect.X
	}
	for _, p := range ms {
		st := marks.StyleFor(p)
		x1 := int(math.Round(p.Pos.X))
		x2 := int(math.Round(p.Pos.X + width*st.TickLen))
		hline(dst, x1, x2, p.Pos.Y, st.Color, st.Stroke)
		if st.ShowLabel && p.Label != "" {
			drawText(dst, p.Label, x1+4, int(math.Round(p.Pos.Y))-int(st.Stroke)-3, st.Color)
		}
	}
}

// DrawGuide draws the manual alignment lines across the full width.
func DrawGuide(dst *image.RGBA, g calibration.Guide) {
	w := dst.Rect.Dx()
	top := int(math.Round(g.Top))
	bottom := int(math.Round(g.Top + g.Height))
	dashedHLine(dst, 0, w, top, colorutil.Guide, 2, 12)
	dashedHLine(dst, 0, w, bottom, colorutil.Guide, 2, 12)
	drawText(dst, "align page top", 8, top-6, colorutil.Guide)
	drawText(dst, "align page bottom", 8, bottom+16, colorutil.Guide)
}

// DrawCorners draws the detected corners, the quadrilateral between them and
// the confidence.
func DrawCorners(dst *image.RGBA, c detect.ViewCorners) {
	col := colorutil.ConfidenceColor(c.Confidence)
	pts := c.Points()
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		drawLine(dst, round(p.X), round(p.Y), round(q.X), round(q.Y), colorutil.WithAlpha(col, 200), 2)
	}
	for _, p := range pts {
		fillCircle(dst, round(p.X), round(p.Y), 7, colorutil.White)
		fillCircle(dst, round(p.X), round(p.Y), 5, col)
	}
	tl := c.TopLeft
	drawText(dst, fmt.Sprintf("%.0f%%", c.Confidence*100), round(tl.X)+8, round(tl.Y)+18, col)
}

func round(v float64) int { return int(math.Round(v)) }
