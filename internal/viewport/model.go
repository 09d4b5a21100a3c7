// Package viewport holds the pan/zoom transform applied to the camera view and
// the conversions between the video, canvas and screen pixel frames.
package viewport

import (
	"math"
	"sync"

	"bookfold/pkg/geometry"
)

// Zoom limits and wheel step.
const (
	DefaultMinScale = 0.2
	DefaultMaxScale = 5.0
	DefaultZoomStep = 1.1
)

// Transform is the display transform of the video layer: translate by (X, Y)
// then scale about the container center.
type Transform struct {
	Scale float64
	X     float64
	Y     float64
}

// IdentityTransform is the reset value.
func IdentityTransform() Transform { return Transform{Scale: 1} }

// Limits bounds the zoom factor.
type Limits struct {
	MinScale float64
	MaxScale float64
	ZoomStep float64
}

// DefaultLimits returns the stock zoom range.
func DefaultLimits() Limits {
	return Limits{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale, ZoomStep: DefaultZoomStep}
}

func (l Limits) clamp(s float64) float64 {
	return math.Max(l.MinScale, math.Min(l.MaxScale, s))
}

// Model owns the transform, the interactive flag and the container size.
// Resize listeners are explicit subscriptions returning a cancel func.
type Model struct {
	mu          sync.Mutex
	limits      Limits
	transform   Transform
	interactive bool
	layout      Layout

	nextID    int
	listeners map[int]func(Layout)
}

// NewModel creates a model at the identity transform.
func NewModel(limits Limits) *Model {
	if limits.MinScale <= 0 || limits.MaxScale < limits.MinScale {
		limits = DefaultLimits()
	}
	if limits.ZoomStep <= 1 {
		limits.ZoomStep = DefaultZoomStep
	}
	return &Model{
		limits:    limits,
		transform: IdentityTransform(),
		listeners: make(map[int]func(Layout)),
	}
}

// Transform returns the current transform.
func (m *Model) Transform() Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform
}

// SetInteractive enables or disables drag panning.
func (m *Model) SetInteractive(on bool) {
	m.mu.Lock()
	m.interactive = on
	m.mu.Unlock()
}

// Interactive reports whether drag panning is enabled.
func (m *Model) Interactive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interactive
}

// Pan accumulates a drag delta. It reports false and does nothing when the
// model is not interactive.
func (m *Model) Pan(dx, dy float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.interactive {
		return false
	}
	m.transform.X += dx
	m.transform.Y += dy
	return true
}

// Zoom multiplies the scale by factor, clamped to the limits.
func (m *Model) Zoom(factor float64) Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	if factor > 0 {
		m.transform.Scale = m.limits.clamp(m.transform.Scale * factor)
	}
	return m.transform
}

// ZoomBy applies a wheel delta: positive zooms in by one step per unit.
func (m *Model) ZoomBy(delta float64) Transform {
	if delta == 0 {
		return m.Transform()
	}
	return m.Zoom(math.Pow(m.limits.ZoomStep, delta))
}

// Reset restores the identity transform.
func (m *Model) Reset() {
	m.mu.Lock()
	m.transform = IdentityTransform()
	m.mu.Unlock()
}

// SetVideoSize records the camera's intrinsic frame size.
func (m *Model) SetVideoSize(video geometry.Size) {
	m.mu.Lock()
	m.layout.Video = video
	l := m.snapshotLocked()
	fns := m.listenersLocked()
	m.mu.Unlock()
	for _, fn := range fns {
		fn(l)
	}
}

// Resize records a new container size and notifies listeners when it changed.
func (m *Model) Resize(container geometry.Size) {
	m.mu.Lock()
	if container == m.layout.Container {
		m.mu.Unlock()
		return
	}
	m.layout.Container = container
	l := m.snapshotLocked()
	fns := m.listenersLocked()
	m.mu.Unlock()
	for _, fn := range fns {
		fn(l)
	}
}

// OnResize subscribes fn to layout changes. Call the returned func to
// unsubscribe.
func (m *Model) OnResize(fn func(Layout)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Layout returns the current layout with the current transform.
func (m *Model) Layout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Model) snapshotLocked() Layout {
	l := m.layout
	l.Transform = m.transform
	return l
}

func (m *Model) listenersLocked() []func(Layout) {
	fns := make([]func(Layout), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	return fns
}
