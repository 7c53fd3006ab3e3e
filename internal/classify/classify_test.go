package classify

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/template"
)

// sheet builds a white page and fills the given bubbles with the given
// intensities (0 = black, 255 = white).
func sheet(t *testing.T, w, h int) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return img
}

func fill(img *image.Gray, b template.Bubble, intensity uint8) {
	for y := b.Y1; y < b.Y1+b.H; y++ {
		for x := b.X1; x < b.X1+b.W; x++ {
			img.SetGray(x, y, color.Gray{Y: intensity})
		}
	}
}

// fourOptionTemplate resolves one MCQ4 field at (20,20) on a 200x200 page.
func fourOptionTemplate(t *testing.T) *template.Template {
	t.Helper()
	tpl, err := template.Parse([]byte(`{
		"pageDimensions": [200, 200],
		"bubbleDimensions": [12, 12],
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

func TestClassify_SingleDarkBubble(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	// B sharply darker than A/C/D.
	fill(img, tpl.Blocks[0].Fields[0].Bubbles[1], 30)

	fields := Classify(img, tpl, config.Default())
	if len(fields) != 1 {
		t.Fatalf("fields: got %d, want 1", len(fields))
	}

	marked := fields[0].MarkedLabels()
	if len(marked) != 1 || marked[0] != "B" {
		t.Errorf("marked: got %v, want [B]", marked)
	}

	// Darkness of the filled bubble must dominate the empty ones.
	if fields[0].Bubbles[1].Darkness < 200 {
		t.Errorf("filled darkness too low: %v", fields[0].Bubbles[1].Darkness)
	}
	if fields[0].Bubbles[0].Darkness > 10 {
		t.Errorf("empty darkness too high: %v", fields[0].Bubbles[0].Darkness)
	}
}

func TestClassify_TwoMarked(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	fill(img, tpl.Blocks[0].Fields[0].Bubbles[0], 40) // A
	fill(img, tpl.Blocks[0].Fields[0].Bubbles[2], 50) // C

	fields := Classify(img, tpl, config.Default())
	marked := fields[0].MarkedLabels()
	if len(marked) != 2 || marked[0] != "A" || marked[1] != "C" {
		t.Errorf("marked: got %v, want [A C]", marked)
	}
}

func TestClassify_NoGapMeansNoAnswer(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	// Near-uniform light smudging on all four bubbles; the spread stays
	// below MIN_JUMP so nothing should be marked.
	for i, b := range tpl.Blocks[0].Fields[0].Bubbles {
		fill(img, b, uint8(246+2*i))
	}

	fields := Classify(img, tpl, config.Default())
	if marked := fields[0].MarkedLabels(); len(marked) != 0 {
		t.Errorf("marked: got %v, want none", marked)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	// Two dark bubbles at different darkness, both well past the jump from
	// the empty pair. If the lighter of the two is marked, the darker one
	// must be too: the marked set is an upward-closed suffix of the
	// darkness ranking.
	fill(img, tpl.Blocks[0].Fields[0].Bubbles[1], 20) // B, darkest
	fill(img, tpl.Blocks[0].Fields[0].Bubbles[3], 80) // D, lighter but still dark

	fields := Classify(img, tpl, config.Default())
	bubbles := fields[0].Bubbles

	if bubbles[3].Marked && !bubbles[1].Marked {
		t.Error("darker bubble unmarked while lighter bubble marked")
	}
	if !bubbles[1].Marked || !bubbles[3].Marked {
		t.Errorf("both dark bubbles should be marked: B=%v D=%v", bubbles[1].Marked, bubbles[3].Marked)
	}
}

func TestClassify_GlobalWhiteBound(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	// A relative jump exists (250 vs 255 region means darkness 5 vs 0) but
	// everything stays lighter than the white cutoff, so nothing is marked
	// regardless of ranking.
	cfg := config.Default()
	cfg.ThresholdParams.MinJump = 2

	fill(img, tpl.Blocks[0].Fields[0].Bubbles[0], 250)

	fields := Classify(img, tpl, cfg)
	if marked := fields[0].MarkedLabels(); len(marked) != 0 {
		t.Errorf("white-bound override failed, marked: %v", marked)
	}
}

func TestClassify_GlobalBlackBound(t *testing.T) {
	tpl := fourOptionTemplate(t)
	img := sheet(t, 200, 200)

	// All four bubbles solid black: no relative jump anywhere, but every
	// bubble is darker than the black cutoff and must be marked.
	for _, b := range tpl.Blocks[0].Fields[0].Bubbles {
		fill(img, b, 10)
	}

	fields := Classify(img, tpl, config.Default())
	if marked := fields[0].MarkedLabels(); len(marked) != 4 {
		t.Errorf("black-bound override failed, marked: %v", marked)
	}
}

func TestDarkness_MarginExcludesBorder(t *testing.T) {
	img := sheet(t, 50, 50)

	// Paint only the border ring of the bubble; the interior statistic
	// should stay near zero darkness.
	b := template.Bubble{Label: "A", X1: 10, Y1: 10, W: 12, H: 12}
	fill(img, b, 0)
	inner := template.Bubble{X1: b.X1 + 2, Y1: b.Y1 + 2, W: b.W - 4, H: b.H - 4}
	fill(img, inner, 255)

	if d := darkness(img, b); d > 60 {
		t.Errorf("border ring dominated the statistic: darkness %v", d)
	}
}

func TestDarkness_DegenerateRect(t *testing.T) {
	img := sheet(t, 20, 20)

	// Rectangle clipped entirely away reads as zero darkness, not a panic.
	b := template.Bubble{X1: 18, Y1: 18, W: 2, H: 2}
	if d := darkness(img, b); d != 0 {
		t.Errorf("degenerate rect darkness: got %v, want 0", d)
	}
}
