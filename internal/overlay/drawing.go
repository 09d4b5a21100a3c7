package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLine draws a line between two points using Bresenham's algorithm with a
// square pen of the given thickness.
func drawLine(dst *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	lo := -(thickness - 1) / 2
	hi := thickness / 2

	for {
		for t := lo; t <= hi; t++ {
			for s := lo; s <= hi; s++ {
				blend(dst, x1+s, y1+t, col)
			}
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// hline draws a horizontal band of the given thickness centered on y.
func hline(dst *image.RGBA, x1, x2 int, y float64, col color.RGBA, thickness float64) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	t := int(math.Max(1, math.Round(thickness)))
	top := int(math.Round(y)) - (t-1)/2
	for row := top; row < top+t; row++ {
		for x := x1; x <= x2; x++ {
			blend(dst, x, row, col)
		}
	}
}

// dashedHLine draws a horizontal dashed line.
func dashedHLine(dst *image.RGBA, x1, x2, y int, col color.RGBA, thickness, dash int) {
	for x := x1; x < x2; x += 2 * dash {
		end := x + dash - 1
		if end > x2 {
			end = x2
		}
		hline(dst, x, end, float64(y), col, float64(thickness))
	}
}

// fillCircle draws a filled disc.
func fillCircle(dst *image.RGBA, cx, cy, r int, col color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				blend(dst, cx+x, cy+y, col)
			}
		}
	}
}

// drawText draws s with its baseline at (x, y), on a dark backing box so it
// reads over any frame.
func drawText(dst *image.RGBA, s string, x, y int, col color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(s).Ceil()
	m := face.Metrics()
	box := image.Rect(x-2, y-m.Ascent.Ceil()-1, x+w+2, y+m.Descent.Ceil()+1)
	shade := color.RGBA{A: 160}
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			blend(dst, px, py, shade)
		}
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// blend composites col over the pixel at (x, y). Out of bounds is ignored.
func blend(dst *image.RGBA, x, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) {
		return
	}
	i := dst.PixOffset(x, y)
	if col.A == 255 {
		dst.Pix[i+0] = col.R
		dst.Pix[i+1] = col.G
		dst.Pix[i+2] = col.B
		dst.Pix[i+3] = 255
		return
	}
	a := uint32(col.A)
	inv := 255 - a
	dst.Pix[i+0] = uint8((uint32(col.R)*a + uint32(dst.Pix[i+0])*inv) / 255)
	dst.Pix[i+1] = uint8((uint32(col.G)*a + uint32(dst.Pix[i+1])*inv) / 255)
	dst.Pix[i+2] = uint8((uint32(col.B)*a + uint32(dst.Pix[i+2])*inv) / 255)
	dst.Pix[i+3] = uint8(a + uint32(dst.Pix[i+3])*inv/255)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
