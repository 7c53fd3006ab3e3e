package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/template"
)

func whiteGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.Gray, x, y, w, h int, intensity uint8) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			img.SetGray(px, py, color.Gray{Y: intensity})
		}
	}
}

// makeMarker builds the reference pattern: a black square with a white
// border, size x size.
func makeMarker(size int) *image.Gray {
	img := whiteGray(size, size)
	border := size / 6
	fillRect(img, border, border, size-2*border, size-2*border, 0)
	return img
}

// makeMarkedSheet draws the marker pattern near all four corners of a
// white sheet. inset is the top-left offset of each corner marker.
func makeMarkedSheet(w, h, markerSize, inset int) *image.Gray {
	img := whiteGray(w, h)
	positions := [][2]int{
		{inset, inset},
		{w - inset - markerSize, inset},
		{inset, h - inset - markerSize},
		{w - inset - markerSize, h - inset - markerSize},
	}
	marker := makeMarker(markerSize)
	for _, p := range positions {
		draw.Draw(img, image.Rect(p[0], p[1], p[0]+markerSize, p[1]+markerSize), marker, image.Point{}, draw.Src)
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func plainTemplate(t *testing.T, withMarkers bool) *template.Template {
	t.Helper()
	pre := ""
	if withMarkers {
		pre = `"preProcessors": [{"name": "CropOnMarkers", "options": {"sheetToMarkerWidthRatio": 17}}],`
	}
	tpl, err := template.Parse([]byte(`{
		"pageDimensions": [200, 200],
		"bubbleDimensions": [12, 12],
		` + pre + `
		"fieldBlocks": {
			"Block1": {
				"fieldType": "QTYPE_MCQ4",
				"origin": [20, 20],
				"fieldLabels": ["q1"],
				"bubblesGap": 30,
				"labelsGap": 30
			}
		}
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tpl
}

func smallConfig(w, h int) config.Config {
	cfg := config.Default()
	cfg.Dimensions.ProcessingWidth = w
	cfg.Dimensions.ProcessingHeight = h
	return cfg
}

func TestDecodeGray(t *testing.T) {
	raw := encodePNG(t, whiteGray(40, 30))

	img, err := DecodeGray(raw)
	if err != nil {
		t.Fatalf("DecodeGray failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("dimensions: got %v", img.Bounds())
	}
	if img.GrayAt(10, 10).Y != 255 {
		t.Errorf("intensity: got %d, want 255", img.GrayAt(10, 10).Y)
	}
}

func TestDecodeGray_Corrupt(t *testing.T) {
	_, err := DecodeGray([]byte("not an image"))
	if err == nil {
		t.Fatal("expected error")
	}
	var ide *ImageDecodeError
	if !errors.As(err, &ide) {
		t.Errorf("expected ImageDecodeError, got %T: %v", err, err)
	}
}

func TestApply_PlainRescale(t *testing.T) {
	tpl := plainTemplate(t, false)
	raw := encodePNG(t, whiteGray(400, 500))

	out, err := Apply(raw, tpl, smallConfig(300, 300), Options{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Image.Bounds().Dx() != 200 || out.Image.Bounds().Dy() != 200 {
		t.Errorf("output dimensions: got %v, want 200x200", out.Image.Bounds())
	}
	if out.SourceWidth != 400 || out.SourceHeight != 500 {
		t.Errorf("source dimensions: got %dx%d", out.SourceWidth, out.SourceHeight)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.WarningStrings())
	}
}

func TestApply_CorruptBytes(t *testing.T) {
	tpl := plainTemplate(t, false)
	_, err := Apply([]byte("junk"), tpl, config.Default(), Options{})
	var ide *ImageDecodeError
	if !errors.As(err, &ide) {
		t.Fatalf("expected ImageDecodeError, got %T: %v", err, err)
	}
}

func TestLocateMarkers(t *testing.T) {
	// Working image 340x340 with 20px markers inset 20px from each
	// corner; ratio 17 puts the expected marker width at exactly 20.
	sheet := makeMarkedSheet(340, 340, 20, 20)
	opts := markerOptions{sheetToMarkerWidthRatio: 17, minMatchingThreshold: 0.3}

	result := locateMarkers(sheet, makeMarker(20), opts)

	if result.Confidence < 0.8 {
		t.Fatalf("confidence: got %.3f, want >= 0.8", result.Confidence)
	}

	wantCenters := [4][2]float64{{30, 30}, {310, 30}, {30, 310}, {310, 310}}
	for i, want := range wantCenters {
		got := result.Corners[i]
		if abs(got[0]-want[0]) > 3 || abs(got[1]-want[1]) > 3 {
			t.Errorf("corner %d: got (%.1f,%.1f), want (%.0f,%.0f)", i, got[0], got[1], want[0], want[1])
		}
	}

	if result.Crop.Dx() < 270 || result.Crop.Dx() > 290 {
		t.Errorf("crop width: got %d, want ~280", result.Crop.Dx())
	}
}

func TestApply_CropOnMarkers(t *testing.T) {
	tpl := plainTemplate(t, true)
	sheet := makeMarkedSheet(340, 340, 20, 20)
	raw := encodePNG(t, sheet)

	out, err := Apply(raw, tpl, smallConfig(340, 340), Options{Marker: makeMarker(20)})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.WarningStrings())
	}
	if out.Image.Bounds().Dx() != 200 || out.Image.Bounds().Dy() != 200 {
		t.Errorf("output dimensions: got %v, want 200x200", out.Image.Bounds())
	}
}

func TestApply_MarkerNotFound(t *testing.T) {
	tpl := plainTemplate(t, true)
	// Blank sheet: no marker pattern anywhere, correlation stays flat.
	raw := encodePNG(t, whiteGray(340, 340))

	out, err := Apply(raw, tpl, smallConfig(340, 340), Options{Marker: makeMarker(20)})
	if err != nil {
		t.Fatalf("Apply should not fail on low confidence: %v", err)
	}

	if len(out.Warnings) == 0 {
		t.Fatal("expected an alignment warning")
	}
	if out.Warnings[0].Stage != "marker" {
		t.Errorf("warning stage: got %q, want marker", out.Warnings[0].Stage)
	}
	// Fallback framing still yields a usable page-sized image.
	if out.Image.Bounds().Dx() != 200 || out.Image.Bounds().Dy() != 200 {
		t.Errorf("fallback dimensions: got %v", out.Image.Bounds())
	}
}

func TestApply_MarkerConfiguredButMissing(t *testing.T) {
	tpl := plainTemplate(t, true)
	raw := encodePNG(t, whiteGray(340, 340))

	out, err := Apply(raw, tpl, smallConfig(340, 340), Options{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(out.Warnings) == 0 || out.Warnings[0].Stage != "marker" {
		t.Errorf("expected marker warning, got %v", out.WarningStrings())
	}
}

func TestApply_AutoAlignWithoutMarkers(t *testing.T) {
	tpl := plainTemplate(t, false)
	raw := encodePNG(t, whiteGray(300, 300))

	out, err := Apply(raw, tpl, smallConfig(300, 300), Options{AutoAlign: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Stage != "auto-align" {
		t.Errorf("expected single auto-align warning, got %v", out.WarningStrings())
	}
}

func TestApply_AutoAlignWithMarkers(t *testing.T) {
	tpl := plainTemplate(t, true)
	sheet := makeMarkedSheet(340, 340, 20, 20)
	raw := encodePNG(t, sheet)

	// A well-framed sheet needs at most a sub-envelope correction, so the
	// run stays warning-free.
	out, err := Apply(raw, tpl, smallConfig(340, 340), Options{Marker: makeMarker(20), AutoAlign: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.WarningStrings())
	}
	if out.Image.Bounds().Dx() != 200 || out.Image.Bounds().Dy() != 200 {
		t.Errorf("output dimensions: got %v", out.Image.Bounds())
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
