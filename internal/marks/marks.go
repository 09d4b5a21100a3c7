// Package marks turns centimeter offsets into on-screen fold mark positions.
package marks

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"bookfold/internal/navigation"
	"bookfold/pkg/colorutil"
	"bookfold/pkg/geometry"
)

// Bounds are the physical page dimensions that decide which marks are valid.
type Bounds struct {
	HeightCm        float64
	PaddingTopCm    float64
	PaddingBottomCm float64
}

// Usable returns the page height minus both paddings.
func (b Bounds) Usable() float64 {
	return b.HeightCm - b.PaddingTopCm - b.PaddingBottomCm
}

// Eligible reports whether m lies inside the padded page region.
func (b Bounds) Eligible(m float64) bool {
	return m >= b.PaddingTopCm && m <= b.HeightCm-b.PaddingBottomCm
}

// Parse reads a comma-separated list of decimal centimeters. Tokens that are
// not numbers are dropped.
func Parse(entry string) []float64 {
	var out []float64
	for _, tok := range strings.Split(entry, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Projected is one mark ready to draw.
type Projected struct {
	Pos    geometry.ScreenPixel // left end of the tick
	Cm     float64
	Index  int // index into the page's mark list
	Label  string
	Active bool
}

// Project positions the marks of a page inside rect, the usable page region
// in screen space. Nothing is returned when uncalibrated, when the usable
// height is not positive, or when the current single mark is out of range.
func Project(marksCm []float64, b Bounds, pixelsPerCm *float64, nav navigation.Marks, rect geometry.Rect) []Projected {
	if pixelsPerCm == nil || *pixelsPerCm <= 0 {
		return nil
	}
	usable := b.Usable()
	if usable <= 0 || rect.Height <= 0 {
		return nil
	}

	place := func(i int, active bool) Projected {
		m := marksCm[i]
		rel := (m - b.PaddingTopCm) / usable
		return Projected{
			Pos:    geometry.ScreenPixel{X: rect.X, Y: rect.Y + rel*rect.Height},
			Cm:     m,
			Index:  i,
			Label:  fmt.Sprintf("%.1f cm", m),
			Active: active,
		}
	}

	if !nav.ShowAll {
		i := nav.Current
		if i < 0 || i >= len(marksCm) || !b.Eligible(marksCm[i]) {
			return nil
		}
		return []Projected{place(i, true)}
	}

	out := make([]Projected, 0, len(marksCm))
	for i, m := range marksCm {
		if b.Eligible(m) {
			out = append(out, place(i, false))
		}
	}
	return out
}

// Style is how a projected mark is drawn.
type Style struct {
	Color     color.RGBA
	Stroke    float64 // line thickness, px
	TickLen   float64 // fraction of the page width
	ShowLabel bool
}

// StyleFor returns the drawing style of p.
func StyleFor(p Projected) Style {
	if p.Active {
		return Style{Color: colorutil.MarkActive, Stroke: 3, TickLen: 1, ShowLabel: true}
	}
	return Style{Color: colorutil.MarkInactive, Stroke: 1, TickLen: 0.6}
}
