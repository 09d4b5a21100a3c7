// Command detecttest runs page detection and calibration on a still photo of
// an open book and prints where the fold marks would be drawn.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"bookfold/internal/calibration"
	"bookfold/internal/detect"
	"bookfold/internal/log"
	"bookfold/internal/marks"
	"bookfold/internal/navigation"
	"bookfold/internal/overlay"
	"bookfold/internal/viewport"
	"bookfold/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to page photo (TIFF, PNG, or JPEG)")
	heightCm := flag.Float64("height", 20, "Page height in cm")
	padTop := flag.Float64("pad-top", 0, "Top padding in cm")
	padBottom := flag.Float64("pad-bottom", 0, "Bottom padding in cm")
	entry := flag.String("marks", "", "Comma-separated mark positions in cm")
	outPath := flag.String("out", "", "Write the rendered overlay to this PNG")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: detecttest -image <path> [-height 20] [-marks \"2.5, 4, 7\"] [-out overlay.png]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	b := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, b.Dx(), b.Dy())

	// The photo is shown 1:1, so video and canvas pixels coincide.
	size := geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	layout := viewport.Layout{Container: size, Video: size, Transform: viewport.IdentityTransform()}

	logger := log.WithComponent("detecttest")
	detector := detect.NewDetector(detect.DefaultParams(), logger)

	fmt.Printf("\nDetecting page corners...\n")
	var view *detect.ViewCorners
	if c, ok := detector.Detect(img); ok {
		v := c.ToView(layout.VideoToCanvas)
		view = &v
		fmt.Printf("  TL (%.0f, %.0f)  TR (%.0f, %.0f)\n", v.TopLeft.X, v.TopLeft.Y, v.TopRight.X, v.TopRight.Y)
		fmt.Printf("  BL (%.0f, %.0f)  BR (%.0f, %.0f)\n", v.BottomLeft.X, v.BottomLeft.Y, v.BottomRight.X, v.BottomRight.Y)
		fmt.Printf("  Height: %.1f px, confidence %.2f\n", v.Height(), v.Confidence)
	} else {
		fmt.Printf("  No page found\n")
	}

	engine := calibration.NewEngine(calibration.DefaultSettings(), logger)
	guide := engine.ManualGuide(size.Height)
	engine.Begin()
	bounds := marks.Bounds{HeightCm: *heightCm, PaddingTopCm: *padTop, PaddingBottomCm: *padBottom}
	res := engine.Calibrate(view, bounds, guide)
	if !res.OK {
		fmt.Fprintf(os.Stderr, "Calibration failed: %s\n", res.Status)
		os.Exit(1)
	}
	fmt.Printf("\n%s\n", res.Status)
	fmt.Printf("  Method: %s, %.2f px/cm, page top %.1f px\n", res.Method, res.PixelsPerCm, res.TopPx)

	ppc := engine.PixelsPerCm()
	rect := geometry.NewRect(0, engine.PageTop()+*ppc*bounds.PaddingTopCm, size.Width, *ppc*bounds.Usable())
	projected := marks.Project(marks.Parse(*entry), bounds, ppc, navigation.Marks{ShowAll: true}, rect)

	fmt.Printf("\nProjected %d marks:\n", len(projected))
	fmt.Printf("%-6s %10s %10s\n", "Index", "Mark", "Y")
	for _, p := range projected {
		fmt.Printf("%-6d %10s %10.1f\n", p.Index+1, p.Label, p.Pos.Y)
	}

	if *outPath == "" {
		return
	}
	scene := overlay.Scene{
		Layout:   layout,
		Frame:    img,
		Marks:    projected,
		PageRect: rect,
		Corners:  view,
	}
	if view == nil {
		scene.Guide = &guide
	}
	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := png.Encode(out, overlay.Render(scene, b.Dx(), b.Dy())); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write overlay: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nWrote overlay to %s\n", *outPath)
}
