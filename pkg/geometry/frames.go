package geometry

// The camera pipeline works in three pixel spaces. Each has its own type so a
// point from one space cannot be handed to code expecting another without an
// explicit conversion (see the viewport package).

// VideoPixel is a point in the camera's intrinsic frame (e.g. 1280x720).
type VideoPixel struct{ X, Y float64 }

// CanvasPixel is a point in the untransformed container. The fixed overlay
// layer (guides, detected corners) is drawn in this space.
type CanvasPixel struct{ X, Y float64 }

// ScreenPixel is a point after pan and zoom have been applied. Anything drawn
// inside the transformed video layer (marks) lives here.
type ScreenPixel struct{ X, Y float64 }

// Point returns the untagged point.
func (p VideoPixel) Point() Point2D { return Point2D{X: p.X, Y: p.Y} }

// Point returns the untagged point.
func (p CanvasPixel) Point() Point2D { return Point2D{X: p.X, Y: p.Y} }

// Point returns the untagged point.
func (p ScreenPixel) Point() Point2D { return Point2D{X: p.X, Y: p.Y} }

// AsVideo tags p as a video-space point.
func AsVideo(p Point2D) VideoPixel { return VideoPixel{X: p.X, Y: p.Y} }

// AsCanvas tags p as a canvas-space point.
func AsCanvas(p Point2D) CanvasPixel { return CanvasPixel{X: p.X, Y: p.Y} }

// AsScreen tags p as a screen-space point.
func AsScreen(p Point2D) ScreenPixel { return ScreenPixel{X: p.X, Y: p.Y} }
