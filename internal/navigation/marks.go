// Package navigation moves through the marks of a page and through the pages
// of an instruction set.
package navigation

import "fmt"

// Status messages shown to the user.
const (
	StatusCycling   = "Cycling to first mark"
	StatusLastPage  = "Reached last page"
	StatusFirstPage = "Reached first page"
	StatusNoMarks   = "No marks on this page"
)

// Marks is the mark navigation state for the current page.
type Marks struct {
	ShowAll bool
	Current int
}

// Initial is the state after a page or instruction change.
func Initial() Marks { return Marks{ShowAll: true} }

// Reset returns to the initial state.
func (m *Marks) Reset() { *m = Initial() }

// Clamp keeps Current inside [0, n-1]; with no marks it is 0.
func (m *Marks) Clamp(n int) {
	switch {
	case n <= 0 || m.Current < 0:
		m.Current = 0
	case m.Current > n-1:
		m.Current = n - 1
	}
}

// Next advances to the following mark of n. Past the last mark it wraps to the
// first and leaves show-all mode. The returned status is empty unless the
// user should be told something.
func (m *Marks) Next(n int) string {
	if n <= 0 {
		m.Current = 0
		return StatusNoMarks
	}
	m.Current++
	if m.Current > n-1 {
		m.Current = 0
		m.ShowAll = false
		return StatusCycling
	}
	return ""
}

// Prev steps back one mark, wrapping to the last.
func (m *Marks) Prev(n int) string {
	if n <= 0 {
		m.Current = 0
		return StatusNoMarks
	}
	m.Current--
	if m.Current < 0 {
		m.Current = n - 1
	}
	return ""
}

// ToggleAll flips show-all mode without moving the current mark.
func (m *Marks) ToggleAll() { m.ShowAll = !m.ShowAll }

// Describe returns a short status line for the state.
func (m Marks) Describe(marksCm []float64) string {
	if len(marksCm) == 0 {
		return StatusNoMarks
	}
	if m.ShowAll {
		return fmt.Sprintf("Showing all %d marks", len(marksCm))
	}
	i := m.Current
	if i < 0 || i >= len(marksCm) {
		i = 0
	}
	return fmt.Sprintf("Mark %d of %d: %.1f cm", i+1, len(marksCm), marksCm[i])
}
