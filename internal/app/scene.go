package app

import (
	"bookfold/internal/marks"
	"bookfold/internal/overlay"
	"bookfold/internal/viewport"
	"bookfold/pkg/geometry"
)

// PageRect returns the usable page region in canvas space, derived from the
// calibration scale and the page top recorded with it. ok is false when
// uncalibrated or the usable height is not positive.
func (s *State) PageRect(layout viewport.Layout) (geometry.Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ppc := s.calib.PixelsPerCm()
	usable := s.page.UsableHeight()
	if ppc == nil || usable <= 0 {
		return geometry.Rect{}, false
	}
	vr := layout.VideoRect()
	top := s.calib.PageTop() + *ppc*s.page.PaddingTopCm
	return geometry.NewRect(vr.X, top, vr.Width, *ppc*usable), true
}

// Scene assembles one render pass from the current state. Everything is
// derived here from a single fresh layout.
func (s *State) Scene() overlay.Scene {
	layout := s.view.Layout()
	sc := overlay.Scene{Layout: layout, Frame: s.LatestFrame()}

	if s.Calibrating() {
		g := s.ManualGuide()
		sc.Guide = &g
		sc.Corners = s.Corners()
	}

	rect, ok := s.PageRect(layout)
	if !ok {
		return sc
	}
	screen := layout.CanvasRectToScreen(rect)

	s.mu.RLock()
	ms := s.page.Marks()
	bounds := s.page.Bounds()
	ppc := s.calib.PixelsPerCm()
	nav := s.nav
	s.mu.RUnlock()

	sc.PageRect = screen
	sc.Marks = marks.Project(ms, bounds, ppc, nav, screen)
	return sc
}
