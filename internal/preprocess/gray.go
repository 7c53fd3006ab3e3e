package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
)

// ImageDecodeError reports image bytes that could not be decoded. It is
// fatal for the affected image only; batch processing isolates it from
// sibling images.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// DecodeGray decodes PNG, JPEG, or GIF bytes into a grayscale image. Mark
// classification only needs intensity, so color is dropped at the door, the
// same way the sheets are scanned.
func DecodeGray(raw []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	return toGray(img), nil
}

// toGray converts any image to a zero-origin grayscale copy.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// resizeGray rescales an image to exactly w x h using Lanczos resampling.
func resizeGray(img image.Image, w, h int) *image.Gray {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return toGray(img)
	}
	return toGray(imaging.Resize(img, w, h, imaging.Lanczos))
}
