// Package colorutil provides shared overlay colors for the camera view.
package colorutil

import (
	"image/color"
)

// Common overlay colors used throughout the application.
var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// MarkActive is the single highlighted mark.
	MarkActive = color.RGBA{R: 255, G: 64, B: 129, A: 255}
	// MarkInactive is used for every mark in show-all mode.
	MarkInactive = color.RGBA{R: 0, G: 230, B: 118, A: 220}
	// Guide is the manual calibration guide color.
	Guide = color.RGBA{R: 255, G: 215, B: 0, A: 200}
)

// WithAlpha returns c with its alpha replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// ConfidenceColor maps a detection confidence in [0,1] from red to green.
func ConfidenceColor(confidence float64) color.RGBA {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return color.RGBA{
		R: uint8(255 * (1 - confidence)),
		G: uint8(255 * confidence),
		B: 0,
		A: 255,
	}
}
