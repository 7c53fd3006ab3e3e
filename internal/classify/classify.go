package classify

import (
	"image"
	"sort"

	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/template"
)

// ClassifiedBubble is one bubble plus its darkness statistic and the
// marked/unmarked decision. Created fresh per image per run.
type ClassifiedBubble struct {
	Bubble   template.Bubble `json:"bubble"`
	Darkness float64         `json:"darkness"`
	Marked   bool            `json:"marked"`
}

// FieldBubbles holds the classified bubbles of one field (question) in
// fixed option order.
type FieldBubbles struct {
	Block   string             `json:"block"`
	Field   string             `json:"field"`
	Type    template.FieldType `json:"field_type"`
	Bubbles []ClassifiedBubble `json:"bubbles"`
}

// MarkedLabels returns the option labels of all marked bubbles, in option
// order.
func (f *FieldBubbles) MarkedLabels() []string {
	var labels []string
	for _, b := range f.Bubbles {
		if b.Marked {
			labels = append(labels, b.Bubble.Label)
		}
	}
	return labels
}

// Classify computes a darkness statistic for every bubble of the template
// and classifies each as marked or unmarked.
//
// The image must already be normalized to the template's page dimensions;
// bubble rectangles are read directly without scaling. Fields are returned
// in template order (blocks sorted by name, fields in label order).
func Classify(img *image.Gray, tpl *template.Template, cfg config.Config) []FieldBubbles {
	out := make([]FieldBubbles, 0, tpl.FieldCount())
	for _, block := range tpl.Blocks {
		for _, field := range block.Fields {
			fb := FieldBubbles{Block: block.Name, Field: field.Label, Type: block.Type}
			for _, bubble := range field.Bubbles {
				fb.Bubbles = append(fb.Bubbles, ClassifiedBubble{
					Bubble:   bubble,
					Darkness: darkness(img, bubble),
				})
			}
			markByJump(fb.Bubbles, cfg.ThresholdParams)
			out = append(out, fb)
		}
	}
	return out
}

// darkness returns 255 minus the mean intensity over the bubble interior.
// The interior excludes a border margin of one sixth of the smaller bubble
// dimension (at least one pixel) on every side. Rectangles clipped entirely
// away by the margin or the image bounds read as darkness 0.
func darkness(img *image.Gray, b template.Bubble) float64 {
	margin := min(b.W, b.H) / 6
	if margin < 1 {
		margin = 1
	}

	x1, y1 := b.X1+margin, b.Y1+margin
	x2, y2 := b.X1+b.W-margin, b.Y1+b.H-margin

	bounds := img.Bounds()
	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	var sum int64
	for y := y1; y < y2; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride+(x1-bounds.Min.X) : (y-bounds.Min.Y)*img.Stride+(x2-bounds.Min.X)]
		for _, v := range row {
			sum += int64(v)
		}
	}
	n := int64(x2-x1) * int64(y2-y1)
	return 255 - float64(sum)/float64(n)
}

// markByJump applies the per-question jump split followed by the global
// bound overrides, mutating the Marked flags in place.
func markByJump(bubbles []ClassifiedBubble, tp config.ThresholdParams) {
	if len(bubbles) == 0 {
		return
	}

	values := make([]float64, len(bubbles))
	for i, b := range bubbles {
		values[i] = b.Darkness
	}
	sort.Float64s(values)

	// First adjacent gap exceeding MinJump splits unmarked (below) from
	// marked (at and above).
	split := -1.0
	haveSplit := false
	for i := 0; i+1 < len(values); i++ {
		if values[i+1]-values[i] > tp.MinJump {
			split = values[i+1]
			haveSplit = true
			break
		}
	}

	// Global cutoffs expressed in darkness space: darker than whiteFloor is
	// required to mark at all, darker than blackCeil is always a mark.
	whiteFloor := 255 - tp.GlobalThresholdWhite
	blackCeil := 255 - tp.GlobalThresholdBlack

	for i := range bubbles {
		marked := haveSplit && bubbles[i].Darkness >= split
		if bubbles[i].Darkness < whiteFloor {
			marked = false
		}
		if bubbles[i].Darkness > blackCeil {
			marked = true
		}
		bubbles[i].Marked = marked
	}
}
