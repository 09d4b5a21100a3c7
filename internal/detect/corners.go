package detect

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime/debug"

	"bookfold/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// Corners are the four detected page corners in the pixel space of the frame
// that was analysed (video-intrinsic pixels).
type Corners struct {
	TopLeft     geometry.VideoPixel
	TopRight    geometry.VideoPixel
	BottomLeft  geometry.VideoPixel
	BottomRight geometry.VideoPixel
	Strengths   [4]float64 // TL, TR, BL, BR
	Confidence  float64    // [0,1]
}

// ViewCorners are detected corners converted into container (canvas) space.
type ViewCorners struct {
	TopLeft     geometry.CanvasPixel
	TopRight    geometry.CanvasPixel
	BottomLeft  geometry.CanvasPixel
	BottomRight geometry.CanvasPixel
	Confidence  float64
}

// ToView converts the corners with conv, typically Layout.VideoToCanvas.
func (c Corners) ToView(conv func(geometry.VideoPixel) geometry.CanvasPixel) ViewCorners {
	return ViewCorners{
		TopLeft:     conv(c.TopLeft),
		TopRight:    conv(c.TopRight),
		BottomLeft:  conv(c.BottomLeft),
		BottomRight: conv(c.BottomRight),
		Confidence:  c.Confidence,
	}
}

// Height returns the left-edge height |BL.y - TL.y| in canvas pixels.
func (v ViewCorners) Height() float64 {
	return math.Abs(v.BottomLeft.Y - v.TopLeft.Y)
}

// Points returns the corners in drawing order TL, TR, BR, BL.
func (v ViewCorners) Points() []geometry.CanvasPixel {
	return []geometry.CanvasPixel{v.TopLeft, v.TopRight, v.BottomRight, v.BottomLeft}
}

// Detector runs corner detection with fixed parameters. The zero value uses
// DefaultParams and discards logs.
type Detector struct {
	Params Params
	Logger *slog.Logger
}

// NewDetector creates a detector.
func NewDetector(p Params, logger *slog.Logger) *Detector {
	return &Detector{Params: p, Logger: logger}
}

// Detect finds page corners in frame. It reports false when any quadrant
// lacks a candidate. A panic while processing a frame is recovered, logged
// and reported as no detection so the caller's poll loop keeps running.
func (d *Detector) Detect(frame image.Image) (corners *Corners, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if d.Logger != nil {
				d.Logger.Error("corner detection panic", "error", r, "stack", string(debug.Stack()))
			}
			corners, ok = nil, false
		}
	}()
	if frame == nil {
		return nil, false
	}
	b := frame.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return nil, false
	}

	p := d.Params.sanitized()
	grad := Sobel(frame)
	cands := FindCandidates(grad, p)
	c, err := selectCorners(cands, b.Dx(), b.Dy(), p)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Debug("no corners", "reason", err, "candidates", len(cands))
		}
		return nil, false
	}
	return c, true
}

// selectCorners assigns the strongest candidate of each quadrant to its corner.
// cands must be sorted strongest first.
func selectCorners(cands []Candidate, w, h int, p Params) (*Corners, error) {
	if len(cands) < 4 {
		return nil, fmt.Errorf("only %d candidates", len(cands))
	}
	midX, midY := w/2, h/2

	// index order: TL, TR, BL, BR
	var picked [4]*Candidate
	for i := range cands {
		c := &cands[i]
		q := 0
		if c.X >= midX {
			q |= 1
		}
		if c.Y >= midY {
			q |= 2
		}
		if picked[q] == nil {
			picked[q] = c
		}
	}
	for q, c := range picked {
		if c == nil {
			return nil, fmt.Errorf("quadrant %d has no candidates", q)
		}
	}

	px := func(c *Candidate) geometry.VideoPixel {
		return geometry.VideoPixel{X: float64(c.X), Y: float64(c.Y)}
	}
	out := &Corners{
		TopLeft:     px(picked[0]),
		TopRight:    px(picked[1]),
		BottomLeft:  px(picked[2]),
		BottomRight: px(picked[3]),
	}
	for i, c := range picked {
		out.Strengths[i] = c.Strength
	}
	out.Confidence = confidence(out, p)
	return out, nil
}

// confidence blends average corner strength with how rectangular the quad is.
func confidence(c *Corners, p Params) float64 {
	strength := clamp01(stat.Mean(c.Strengths[:], nil) / 255)

	topWidth := math.Abs(c.TopRight.X - c.TopLeft.X)
	bottomWidth := math.Abs(c.BottomRight.X - c.BottomLeft.X)
	leftHeight := math.Abs(c.BottomLeft.Y - c.TopLeft.Y)
	rightHeight := math.Abs(c.BottomRight.Y - c.TopRight.Y)
	rect := stat.Mean([]float64{
		similarity(topWidth, bottomWidth),
		similarity(leftHeight, rightHeight),
	}, nil)

	return clamp01(p.StrengthWeight*strength + p.RectWeight*rect)
}

// similarity is 1 for equal lengths and falls toward 0 as they diverge.
func similarity(a, b float64) float64 {
	m := math.Max(a, b)
	if m <= 0 {
		return 0
	}
	return 1 - math.Abs(a-b)/m
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
