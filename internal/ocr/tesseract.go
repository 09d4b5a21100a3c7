// Package ocr reads folding instructions from a photographed instruction sheet.
package ocr

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// InstructionChars is the character set of an instruction sheet: page
// numbers, decimal centimeters and separators.
const InstructionChars = "0123456789.,:#Pagep"

// minTextHeight is the smallest image side handed to Tesseract; smaller
// photos are upscaled.
const minTextHeight = 600

// Engine wraps a Tesseract client. It is not safe for concurrent use.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a Tesseract client tuned for number lists.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Measurements are not words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("preserve_interword_spaces", "1")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// ReadFile runs OCR on an image file.
func (e *Engine) ReadFile(path string) (string, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return "", fmt.Errorf("failed to read image %s", path)
	}
	defer img.Close()
	return e.recognize(img)
}

// ReadImage runs OCR on an in-memory image, e.g. a camera frame.
func (e *Engine) ReadImage(src image.Image) (string, error) {
	img, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return "", fmt.Errorf("failed to convert image: %w", err)
	}
	defer img.Close()
	return e.recognize(img)
}

func (e *Engine) recognize(img gocv.Mat) (string, error) {
	if e.client == nil {
		return "", fmt.Errorf("OCR engine closed")
	}
	if img.Empty() {
		return "", fmt.Errorf("empty image")
	}

	processed := preprocess(img)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// PSM 6: a single uniform block of text, one instruction per line.
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetWhitelist(InstructionChars); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return cleanLines(text), nil
}

// preprocess upscales, converts to gray, equalizes and binarizes the sheet so
// that the text is dark on light.
func preprocess(src gocv.Mat) gocv.Mat {
	h, w := src.Rows(), src.Cols()

	scaled := gocv.NewMat()
	if side := min(h, w); side < minTextHeight {
		scale := float64(minTextHeight) / float64(side)
		gocv.Resize(src, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		src.CopyTo(&scaled)
	}

	gray := gocv.NewMat()
	if scaled.Channels() == 1 {
		scaled.CopyTo(&gray)
	} else {
		gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	}
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()
	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// Printed sheets are dark on light; a mostly dark result is inverted.
	white := gocv.CountNonZero(binary)
	if float64(white)/float64(binary.Rows()*binary.Cols()) < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()
	return result
}

// cleanLines trims each line and drops empty ones.
func cleanLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
