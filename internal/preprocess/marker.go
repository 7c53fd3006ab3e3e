package preprocess

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	"github.com/scansheet/omr-decoder/internal/template"
)

// markerOptions are the CropOnMarkers tuning knobs, read from the
// template's preprocessor options with sensible defaults.
type markerOptions struct {
	// sheetToMarkerWidthRatio relates the working-image width to the
	// expected marker width on the sheet.
	sheetToMarkerWidthRatio float64

	// minMatchingThreshold is the minimum acceptable correlation score;
	// below it the crop is abandoned with a warning.
	minMatchingThreshold float64
}

func markerOptionsFrom(p *template.PreProcessor) markerOptions {
	opts := markerOptions{
		sheetToMarkerWidthRatio: 17,
		minMatchingThreshold:    0.3,
	}
	if p == nil {
		return opts
	}
	if v, ok := optFloat(p.Options, "sheetToMarkerWidthRatio"); ok && v > 0 {
		opts.sheetToMarkerWidthRatio = v
	}
	if v, ok := optFloat(p.Options, "minMatchingThreshold"); ok && v > 0 {
		opts.minMatchingThreshold = v
	}
	return opts
}

func optFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// markerMatch is the best placement of the marker within one quadrant.
type markerMatch struct {
	X, Y  int // top-left of the placement
	W, H  int // placement extents (scaled marker size)
	Score float64
}

func (m markerMatch) centerX() float64 { return float64(m.X) + float64(m.W)/2 }
func (m markerMatch) centerY() float64 { return float64(m.Y) + float64(m.H)/2 }

// markerResult describes a successful four-corner localization in
// working-image coordinates.
type markerResult struct {
	// Crop is the axis-aligned bounding box of the four marker centers.
	Crop image.Rectangle

	// Corners holds the marker centers in TL, TR, BL, BR order.
	Corners [4][2]float64

	// Confidence is the weakest of the four per-quadrant scores.
	Confidence float64
}

// scale sweep around the expected marker size; photographed sheets rarely
// hit the nominal ratio exactly.
var markerScales = []float64{0.85, 0.95, 1.0, 1.05, 1.15}

// locateMarkers matches the marker reference against each quadrant of the
// working image and returns the framed region. Both images are lightly
// blurred first so print noise and resampling artifacts do not dominate
// the correlation.
func locateMarkers(working *image.Gray, marker image.Image, opts markerOptions) markerResult {
	w := working.Bounds().Dx()
	h := working.Bounds().Dy()

	expectedW := int(math.Round(float64(w) / opts.sheetToMarkerWidthRatio))
	if expectedW < 3 {
		expectedW = 3
	}

	smoothed := blurGray(working)

	quadrants := [4]image.Rectangle{
		image.Rect(0, 0, w/2, h/2),     // TL
		image.Rect(w/2, 0, w, h/2),     // TR
		image.Rect(0, h/2, w/2, h),     // BL
		image.Rect(w/2, h/2, w, h),     // BR
	}

	var matches [4]markerMatch
	confidence := math.Inf(1)
	for i, quad := range quadrants {
		best := markerMatch{Score: -1}
		for _, s := range markerScales {
			tw := int(math.Round(float64(expectedW) * s))
			if tw < 3 || tw >= quad.Dx() || tw >= quad.Dy() {
				continue
			}
			scaled := blurGray(resizeAspect(marker, tw))
			if scaled.Bounds().Dy() >= quad.Dy() {
				continue
			}
			x, y, score := matchTemplate(smoothed, quad, scaled)
			if score > best.Score {
				best = markerMatch{X: x, Y: y, W: scaled.Bounds().Dx(), H: scaled.Bounds().Dy(), Score: score}
			}
		}
		matches[i] = best
		if best.Score < confidence {
			confidence = best.Score
		}
	}

	result := markerResult{Confidence: confidence}
	for i, m := range matches {
		result.Corners[i] = [2]float64{m.centerX(), m.centerY()}
	}

	minX := math.Min(result.Corners[0][0], result.Corners[2][0])
	maxX := math.Max(result.Corners[1][0], result.Corners[3][0])
	minY := math.Min(result.Corners[0][1], result.Corners[1][1])
	maxY := math.Max(result.Corners[2][1], result.Corners[3][1])
	result.Crop = image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(working.Bounds())

	return result
}

// matchTemplate slides tmpl over the region and returns the placement with
// the highest zero-normalized cross-correlation score. A flat template or
// a flat window scores zero.
func matchTemplate(img *image.Gray, region image.Rectangle, tmpl *image.Gray) (int, int, float64) {
	tw := tmpl.Bounds().Dx()
	th := tmpl.Bounds().Dy()
	n := float64(tw * th)

	// Template statistics are placement-invariant.
	var tSum, tSumSq float64
	for y := 0; y < th; y++ {
		row := tmpl.Pix[y*tmpl.Stride : y*tmpl.Stride+tw]
		for _, v := range row {
			f := float64(v)
			tSum += f
			tSumSq += f * f
		}
	}
	tMean := tSum / n
	tVar := tSumSq - n*tMean*tMean
	if tVar <= 1e-9 {
		return region.Min.X, region.Min.Y, 0
	}

	bestX, bestY := region.Min.X, region.Min.Y
	bestScore := -1.0

	for y := region.Min.Y; y+th <= region.Max.Y; y++ {
		for x := region.Min.X; x+tw <= region.Max.X; x++ {
			var iSum, iSumSq, cross float64
			for ty := 0; ty < th; ty++ {
				imgRow := img.Pix[(y+ty)*img.Stride+x : (y+ty)*img.Stride+x+tw]
				tmplRow := tmpl.Pix[ty*tmpl.Stride : ty*tmpl.Stride+tw]
				for tx := 0; tx < tw; tx++ {
					iv := float64(imgRow[tx])
					iSum += iv
					iSumSq += iv * iv
					cross += iv * float64(tmplRow[tx])
				}
			}
			iMean := iSum / n
			iVar := iSumSq - n*iMean*iMean
			if iVar <= 1e-9 {
				continue
			}
			score := (cross - n*iMean*tMean) / math.Sqrt(iVar*tVar)
			if score > bestScore {
				bestScore = score
				bestX, bestY = x, y
			}
		}
	}

	if bestScore < 0 {
		bestScore = 0
	}
	return bestX, bestY, bestScore
}

// blurGray applies a light Gaussian before correlation.
func blurGray(img image.Image) *image.Gray {
	return toGray(blur.Gaussian(img, 1.0))
}

// resizeAspect rescales to the given width preserving aspect ratio.
func resizeAspect(img image.Image, w int) *image.Gray {
	return toGray(imaging.Resize(img, w, 0, imaging.Lanczos))
}
