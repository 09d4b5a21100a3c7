// Package page holds the physical page settings and the parsed instructions.
package page

import (
	"bookfold/internal/instructions"
	"bookfold/internal/marks"
	"bookfold/internal/navigation"
)

// Defaults for a new page.
const (
	DefaultHeightCm = 20.0
	DefaultWidthCm  = 13.0
)

// Data is the page being folded. Current indexes Parsed and is kept on a page
// with marks whenever one exists.
type Data struct {
	HeightCm        float64  `json:"heightCm"`
	WidthCm         float64  `json:"widthCm"`
	PaddingTopCm    float64  `json:"paddingTopCm"`
	PaddingBottomCm float64  `json:"paddingBottomCm"`
	Instructions    string   `json:"instructions"`
	Parsed          []string `json:"-"`
	Current         int      `json:"currentPage"`
}

// New returns a page with default dimensions and no instructions.
func New() *Data {
	return &Data{HeightCm: DefaultHeightCm, WidthCm: DefaultWidthCm}
}

// SetInstructions replaces the instruction text, reparses it and moves
// Current to the nearest page with marks. It reports whether Current changed.
func (d *Data) SetInstructions(text string) bool {
	d.Instructions = text
	d.Parsed = instructions.Parse(text)
	prev := d.Current
	d.Current = navigation.Nearest(d.Parsed, d.Current)
	return prev != d.Current
}

// Reparse rebuilds Parsed from Instructions, e.g. after loading from disk.
func (d *Data) Reparse() {
	d.SetInstructions(d.Instructions)
}

// Entry returns the raw mark string of the current page.
func (d *Data) Entry() string {
	if d.Current < 0 || d.Current >= len(d.Parsed) {
		return ""
	}
	return d.Parsed[d.Current]
}

// Marks returns the mark offsets of the current page in cm.
func (d *Data) Marks() []float64 {
	return marks.Parse(d.Entry())
}

// Bounds returns the dimensions that decide which marks are drawable.
func (d *Data) Bounds() marks.Bounds {
	return marks.Bounds{
		HeightCm:        d.HeightCm,
		PaddingTopCm:    d.PaddingTopCm,
		PaddingBottomCm: d.PaddingBottomCm,
	}
}

// UsableHeight is the height minus both paddings.
func (d *Data) UsableHeight() float64 {
	return d.Bounds().Usable()
}

// HasMarks reports whether any page has marks.
func (d *Data) HasMarks() bool {
	for _, e := range d.Parsed {
		if navigation.HasMarks(e) {
			return true
		}
	}
	return false
}

// NextPage moves to the next page with marks.
func (d *Data) NextPage() (bool, string) {
	i, ok, status := navigation.NextPage(d.Parsed, d.Current)
	d.Current = i
	return ok, status
}

// PrevPage moves to the previous page with marks.
func (d *Data) PrevPage() (bool, string) {
	i, ok, status := navigation.PrevPage(d.Parsed, d.Current)
	if ok {
		d.Current = i
	}
	return ok, status
}
