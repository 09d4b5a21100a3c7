// Package canvas provides the camera view widget with pan and zoom.
package canvas

import (
	"image"
	"sync"

	"bookfold/internal/app"
	"bookfold/internal/overlay"
	"bookfold/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// CameraView shows the camera frame with the calibration layer and fold
// marks. Drag pans while calibration mode is on; the wheel zooms.
type CameraView struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster

	mu         sync.Mutex
	pixelScale float32 // raster pixels per fyne unit
	lastOutput *image.RGBA
}

// NewCameraView creates a view bound to state.
func NewCameraView(state *app.State) *CameraView {
	cv := &CameraView{state: state, pixelScale: 1}
	cv.raster = fynecanvas.NewRaster(cv.draw)
	cv.raster.ScaleMode = fynecanvas.ImageScaleFastest
	cv.ExtendBaseWidget(cv)
	return cv
}

// draw is the raster drawing function. w and h are in device pixels, which
// is the canvas space of the overlay.
func (cv *CameraView) draw(w, h int) image.Image {
	if size := cv.Size(); size.Width > 0 {
		cv.mu.Lock()
		cv.pixelScale = float32(w) / size.Width
		cv.mu.Unlock()
	}
	cv.state.Resize(geometry.NewSize(float64(w), float64(h)))
	out := overlay.Render(cv.state.Scene(), w, h)

	cv.mu.Lock()
	cv.lastOutput = out
	cv.mu.Unlock()
	return out
}

// LastOutput returns the most recently rendered image.
func (cv *CameraView) LastOutput() *image.RGBA {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.lastOutput
}

func (cv *CameraView) scale() float64 {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return float64(cv.pixelScale)
}

// Dragged pans the video layer.
func (cv *CameraView) Dragged(ev *fyne.DragEvent) {
	s := cv.scale()
	cv.state.Pan(float64(ev.Dragged.DX)*s, float64(ev.Dragged.DY)*s)
}

// DragEnd implements fyne.Draggable.
func (cv *CameraView) DragEnd() {}

// Scrolled zooms one step per wheel notch.
func (cv *CameraView) Scrolled(ev *fyne.ScrollEvent) {
	switch {
	case ev.Scrolled.DY > 0:
		cv.state.ZoomBy(1)
	case ev.Scrolled.DY < 0:
		cv.state.ZoomBy(-1)
	}
}

// MinSize keeps the view usable in a small window.
func (cv *CameraView) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// Refresh redraws the raster.
func (cv *CameraView) Refresh() {
	cv.raster.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (cv *CameraView) CreateRenderer() fyne.WidgetRenderer {
	return &cameraViewRenderer{view: cv}
}

type cameraViewRenderer struct {
	view *CameraView
}

func (r *cameraViewRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
}

func (r *cameraViewRenderer) MinSize() fyne.Size {
	return r.view.MinSize()
}

func (r *cameraViewRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *cameraViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.raster}
}

func (r *cameraViewRenderer) Destroy() {}
