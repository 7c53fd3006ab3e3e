package decode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/scansheet/omr-decoder/internal/classify"
)

// OverlayResult contains the annotated sheet image.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Overlay colors, picked in HSV so mark states stay distinguishable on
// both light and dark sheets.
var (
	overlayUnmarked = hsv(210, 0.9, 0.85) // blue outline
	overlayMarked   = hsv(130, 0.9, 0.70) // green
	overlayMulti    = hsv(0, 0.9, 0.85)   // red
	overlayLabel    = hsv(280, 0.8, 0.60) // purple text
)

func hsv(h, s, v float64) color.RGBA {
	r, g, b := colorful.Hsv(h, s, v).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Overlay renders the annotated sheet: every bubble rectangle outlined,
// marked bubbles drawn thick, multi-marked questions in red, and the field
// label drawn left of each question's first bubble. The source image is not
// modified.
//
// The result is PNG-encoded and base64-wrapped so transport layers can
// forward it untouched.
func Overlay(img image.Image, fields []classify.FieldBubbles) (*OverlayResult, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for i := range fields {
		f := &fields[i]
		multi := len(f.MarkedLabels()) > 1

		for _, cb := range f.Bubbles {
			col := overlayUnmarked
			thickness := 1
			if cb.Marked {
				col = overlayMarked
				thickness = 2
				if multi {
					col = overlayMulti
				}
			}
			drawRect(canvas, cb.Bubble.X1, cb.Bubble.Y1, cb.Bubble.W, cb.Bubble.H, col, thickness)
		}

		if len(f.Bubbles) > 0 {
			first := f.Bubbles[0].Bubble
			drawText(canvas, first.X1-2, first.Y1+first.H, f.Field, overlayLabel)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// drawRect draws a rectangle outline of the given thickness, clipped to the
// canvas bounds.
func drawRect(canvas *image.RGBA, x, y, w, h int, col color.RGBA, thickness int) {
	for t := 0; t < thickness; t++ {
		x1, y1 := x+t, y+t
		x2, y2 := x+w-1-t, y+h-1-t
		if x1 > x2 || y1 > y2 {
			return
		}
		for px := x1; px <= x2; px++ {
			setClipped(canvas, px, y1, col)
			setClipped(canvas, px, y2, col)
		}
		for py := y1; py <= y2; py++ {
			setClipped(canvas, x1, py, col)
			setClipped(canvas, x2, py, col)
		}
	}
}

func setClipped(canvas *image.RGBA, x, y int, col color.RGBA) {
	if (image.Point{X: x, Y: y}).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, col)
	}
}

// drawText renders a label ending at (x, y) right-aligned, using the fixed
// 7x13 face. Text that would start outside the canvas is shifted in.
func drawText(canvas *image.RGBA, x, y int, text string, col color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	startX := x - width
	if startX < canvas.Bounds().Min.X {
		startX = canvas.Bounds().Min.X
	}

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(startX, y),
	}
	d.DrawString(text)
}
