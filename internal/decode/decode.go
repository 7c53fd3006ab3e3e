package decode

import (
	"strings"
	"time"

	"github.com/scansheet/omr-decoder/internal/classify"
	"github.com/scansheet/omr-decoder/internal/template"
)

// NoAnswer is the primary-answer sentinel for a question with no marked
// bubble. Callers rendering for humans typically show it as "-".
const NoAnswer = ""

// Result is the decoded output for one image.
type Result struct {
	// Answers maps field label to the primary answer: one option label,
	// a concatenation of all marked labels in option order, or NoAnswer.
	Answers map[string]string `json:"response"`

	// Raw maps field label to every marked option label in option order.
	// Empty slice for unanswered questions.
	Raw map[string][]string `json:"raw_response"`

	// MultiMarked is true when any single question has more than one mark.
	MultiMarked bool `json:"multi_marked"`

	// MultiMarkedCount is the number of questions with more than one mark.
	MultiMarkedCount int `json:"multi_marked_count"`

	// ImageDimensions is the processed image size as [width, height].
	ImageDimensions [2]int `json:"image_dimensions"`

	// Elapsed is the wall-clock processing time for the whole pipeline
	// run that produced this result.
	Elapsed time.Duration `json:"processing_time_ns"`
}

// FieldOrder returns the field labels of a template in decoding order:
// blocks sorted by name, fields in label order within each block.
func FieldOrder(tpl *template.Template) []string {
	out := make([]string, 0, tpl.FieldCount())
	for _, block := range tpl.Blocks {
		for _, field := range block.Fields {
			out = append(out, field.Label)
		}
	}
	return out
}

// Decode aggregates classified bubbles into a Result.
//
// The fields slice is expected in template order as produced by
// classify.Classify; elapsed is recorded verbatim.
func Decode(fields []classify.FieldBubbles, tpl *template.Template, elapsed time.Duration) *Result {
	res := &Result{
		Answers:         make(map[string]string, len(fields)),
		Raw:             make(map[string][]string, len(fields)),
		ImageDimensions: [2]int{tpl.PageWidth, tpl.PageHeight},
		Elapsed:         elapsed,
	}

	for i := range fields {
		f := &fields[i]
		marked := f.MarkedLabels()
		res.Raw[f.Field] = marked

		switch len(marked) {
		case 0:
			res.Answers[f.Field] = NoAnswer
		case 1:
			res.Answers[f.Field] = marked[0]
		default:
			res.Answers[f.Field] = strings.Join(marked, "")
			res.MultiMarked = true
			res.MultiMarkedCount++
		}
	}

	return res
}
