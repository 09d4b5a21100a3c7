// Package detect finds the four corners of a book page in a camera frame.
//
// The pipeline is deliberately simple: a Sobel gradient magnitude image,
// a strided local-maximum search for strong edge points, and one strongest
// point per image quadrant. It is a planar approximation, not pose estimation.
package detect

import (
	"image"
	"image/draw"
	"math"
)

// Sobel kernels, row-major over the 3x3 neighborhood.
var (
	sobelX = [9]int{-1, 0, 1, -2, 0, 2, -1, 0, 1}
	sobelY = [9]int{-1, -2, -1, 0, 0, 0, 1, 2, 1}
)

// Sobel returns the gradient magnitude of img as a single-channel image with
// the same dimensions, origin at (0,0). Luminance is the plain average of the
// R, G and B channels. Magnitudes are clamped to 255 and the one-pixel border
// is left at zero.
func Sobel(img image.Image) *image.Gray {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}

	lum := luminance(rgba)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var gx, gy int
			k := 0
			for dy := -1; dy <= 1; dy++ {
				row := (y + dy) * w
				for dx := -1; dx <= 1; dx++ {
					v := int(lum[row+x+dx])
					gx += sobelX[k] * v
					gy += sobelY[k] * v
					k++
				}
			}
			mag := math.Sqrt(float64(gx*gx + gy*gy))
			if mag > 255 {
				mag = 255
			}
			out.Pix[y*out.Stride+x] = uint8(mag)
		}
	}
	return out
}

// luminance averages the color channels of every pixel into a w*h slice.
func luminance(img *image.RGBA) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := src[x*4 : x*4+3]
			lum[y*w+x] = uint8((int(p[0]) + int(p[1]) + int(p[2])) / 3)
		}
	}
	return lum
}

// toRGBA returns img as an *image.RGBA with origin (0,0), copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
