package detect

import (
	"image"
	"sort"
)

// Params are the tunable detection parameters. The defaults are empirical.
type Params struct {
	Stride        int     // scan step in pixels
	Margin        int     // pixels skipped along every image edge
	Threshold     float64 // minimum gradient magnitude for a candidate
	Neighborhood  int     // odd window size for the local-maximum test
	MaxCandidates int     // candidates kept after sorting by strength

	// Confidence blends corner strength and rectangularity with these weights.
	StrengthWeight float64
	RectWeight     float64
}

// DefaultParams returns the stock parameters.
func DefaultParams() Params {
	return Params{
		Stride:         5,
		Margin:         10,
		Threshold:      80,
		Neighborhood:   5,
		MaxCandidates:  20,
		StrengthWeight: 0.6,
		RectWeight:     0.4,
	}
}

// Candidate is a strong local maximum in the gradient image.
type Candidate struct {
	X, Y     int
	Strength float64
}

// FindCandidates scans grad on a coarse grid and returns local maxima above
// the threshold, strongest first, truncated to MaxCandidates.
func FindCandidates(grad *image.Gray, p Params) []Candidate {
	p = p.sanitized()
	w, h := grad.Rect.Dx(), grad.Rect.Dy()
	half := p.Neighborhood / 2

	var out []Candidate
	for y := p.Margin; y < h-p.Margin; y += p.Stride {
		for x := p.Margin; x < w-p.Margin; x += p.Stride {
			v := grad.Pix[y*grad.Stride+x]
			if float64(v) <= p.Threshold {
				continue
			}
			if !isLocalMax(grad, x, y, half, v) {
				continue
			}
			out = append(out, Candidate{X: x, Y: y, Strength: float64(v)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Strength > out[j].Strength
	})
	if len(out) > p.MaxCandidates {
		out = out[:p.MaxCandidates]
	}
	return out
}

// isLocalMax reports whether no pixel in the (2*half+1)^2 window exceeds v.
func isLocalMax(grad *image.Gray, x, y, half int, v uint8) bool {
	w, h := grad.Rect.Dx(), grad.Rect.Dy()
	for dy := -half; dy <= half; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		row := grad.Pix[ny*grad.Stride:]
		for dx := -half; dx <= half; dx++ {
			nx := x + dx
			if nx < 0 || nx >= w || (dx == 0 && dy == 0) {
				continue
			}
			if row[nx] > v {
				return false
			}
		}
	}
	return true
}

func (p Params) sanitized() Params {
	d := DefaultParams()
	if p.Stride <= 0 {
		p.Stride = d.Stride
	}
	if p.Margin < 1 {
		p.Margin = d.Margin
	}
	if p.Threshold <= 0 {
		p.Threshold = d.Threshold
	}
	if p.Neighborhood < 3 {
		p.Neighborhood = d.Neighborhood
	}
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = d.MaxCandidates
	}
	if p.StrengthWeight < 0 || p.RectWeight < 0 || p.StrengthWeight+p.RectWeight <= 0 {
		p.StrengthWeight, p.RectWeight = d.StrengthWeight, d.RectWeight
	}
	return p
}
