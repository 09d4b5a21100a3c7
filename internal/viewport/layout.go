package viewport

import "bookfold/pkg/geometry"

// Layout is a snapshot of the sizes and transform needed to convert between
// pixel frames. Take a fresh one at the moment of use; a cached Layout goes
// stale on the next resize.
type Layout struct {
	Container geometry.Size // on-screen container, canvas pixels
	Video     geometry.Size // camera intrinsic frame
	Transform Transform
}

// Ready reports whether both sizes are known.
func (l Layout) Ready() bool {
	return !l.Container.Empty() && !l.Video.Empty()
}

// VideoScale returns the per-axis video to canvas factors.
func (l Layout) VideoScale() (sx, sy float64) {
	if !l.Ready() {
		return 1, 1
	}
	return l.Container.Width / l.Video.Width, l.Container.Height / l.Video.Height
}

// VideoToCanvas maps a camera pixel into the untransformed container.
func (l Layout) VideoToCanvas(p geometry.VideoPixel) geometry.CanvasPixel {
	sx, sy := l.VideoScale()
	return geometry.AsCanvas(p.Point().ScaleXY(sx, sy))
}

// CanvasToVideo is the inverse of VideoToCanvas.
func (l Layout) CanvasToVideo(p geometry.CanvasPixel) geometry.VideoPixel {
	sx, sy := l.VideoScale()
	return geometry.AsVideo(p.Point().ScaleXY(1/sx, 1/sy))
}

// Matrix returns the canvas to screen transform: translate, then scale about
// the container center.
func (l Layout) Matrix() geometry.AffineTransform {
	s := l.Transform.Scale
	if s <= 0 {
		s = 1
	}
	center := geometry.NewRect(0, 0, l.Container.Width, l.Container.Height).Center()
	return geometry.ScaleAbout(s, center).
		Compose(geometry.Translation(l.Transform.X, l.Transform.Y))
}

// CanvasToScreen applies the pan/zoom transform.
func (l Layout) CanvasToScreen(p geometry.CanvasPixel) geometry.ScreenPixel {
	return geometry.AsScreen(l.Matrix().Apply(p.Point()))
}

// ScreenToCanvas removes the pan/zoom transform.
func (l Layout) ScreenToCanvas(p geometry.ScreenPixel) geometry.CanvasPixel {
	inv, ok := l.Matrix().Inverse()
	if !ok {
		return geometry.AsCanvas(p.Point())
	}
	return geometry.AsCanvas(inv.Apply(p.Point()))
}

// VideoToScreen maps a camera pixel all the way to the display.
func (l Layout) VideoToScreen(p geometry.VideoPixel) geometry.ScreenPixel {
	return l.CanvasToScreen(l.VideoToCanvas(p))
}

// VideoRect is the camera frame in canvas space.
func (l Layout) VideoRect() geometry.Rect {
	tl := l.VideoToCanvas(geometry.VideoPixel{})
	br := l.VideoToCanvas(geometry.VideoPixel{X: l.Video.Width, Y: l.Video.Height})
	return geometry.NewRect(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
}

// CanvasRectToScreen maps an axis-aligned canvas rect through the transform.
func (l Layout) CanvasRectToScreen(r geometry.Rect) geometry.Rect {
	tl := l.CanvasToScreen(geometry.AsCanvas(r.TopLeft()))
	br := l.CanvasToScreen(geometry.AsCanvas(r.BottomRight()))
	return geometry.BoundingBox([]geometry.Point2D{tl.Point(), br.Point()})
}

// ExpectedHeight is the manual guide height for the given ratio of the
// container height.
func (l Layout) ExpectedHeight(ratio float64) float64 {
	if l.Container.Empty() {
		return 0
	}
	return l.Container.Height * ratio
}
