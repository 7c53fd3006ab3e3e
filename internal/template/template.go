package template

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// FieldType identifies the option alphabet and layout direction of a field
// block. The names follow the template vocabulary of common OMR sheet
// generators.
type FieldType string

const (
	// FieldTypeMCQ4 is a four-option multiple-choice field (A-D),
	// options laid out horizontally.
	FieldTypeMCQ4 FieldType = "QTYPE_MCQ4"

	// FieldTypeMCQ5 is a five-option multiple-choice field (A-E),
	// options laid out horizontally.
	FieldTypeMCQ5 FieldType = "QTYPE_MCQ5"

	// FieldTypeInt is a single-digit field (0-9), options laid out
	// vertically. Several adjacent FieldTypeInt labels form a multi-digit
	// entry such as a roll number.
	FieldTypeInt FieldType = "QTYPE_INT"
)

// fieldTypeSpec describes the static option alphabet of a field type and
// whether bubbles stack vertically (digits) or run horizontally (choices).
type fieldTypeSpec struct {
	values   []string
	vertical bool
}

var fieldTypes = map[FieldType]fieldTypeSpec{
	FieldTypeMCQ4: {values: []string{"A", "B", "C", "D"}},
	FieldTypeMCQ5: {values: []string{"A", "B", "C", "D", "E"}},
	FieldTypeInt:  {values: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, vertical: true},
}

// OptionValues returns the fixed option alphabet for a field type, or nil
// for an unknown type.
func OptionValues(t FieldType) []string {
	spec, ok := fieldTypes[t]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.values))
	copy(out, spec.values)
	return out
}

// Bubble is one resolved mark position: the absolute pixel rectangle of one
// option of one field. Bubbles are immutable once the template is resolved.
type Bubble struct {
	// Label is the option value this bubble represents ("A".."E" for
	// choice fields, "0".."9" for digit fields).
	Label string `json:"label"`

	// X1, Y1 is the top-left corner of the rectangle (inclusive).
	X1 int `json:"x1"`
	Y1 int `json:"y1"`

	// W, H are the rectangle extents in pixels (bubbleDimensions).
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the rectangle's center point.
func (b Bubble) Center() (float64, float64) {
	return float64(b.X1) + float64(b.W)/2, float64(b.Y1) + float64(b.H)/2
}

// Field is one question: an expanded label plus its bubbles in fixed option
// order.
type Field struct {
	// Label is the expanded field label, e.g. "q17".
	Label string `json:"label"`

	// Bubbles holds one bubble per option, in the field type's alphabet
	// order.
	Bubbles []Bubble `json:"bubbles"`
}

// FieldBlock is a named group of fields sharing one coordinate grid and
// field type.
type FieldBlock struct {
	Name string    `json:"name"`
	Type FieldType `json:"fieldType"`

	// Fields holds the expanded fields in label-expression order.
	Fields []Field `json:"fields"`
}

// PreProcessor is a preprocessor specification carried through from the
// template. Option values are interpreted by the preprocessing stage, not
// validated here.
type PreProcessor struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

// Template is a fully resolved sheet layout. It is immutable after Parse
// and safe for concurrent readers.
type Template struct {
	PageWidth  int `json:"page_width"`
	PageHeight int `json:"page_height"`

	BubbleWidth  int `json:"bubble_width"`
	BubbleHeight int `json:"bubble_height"`

	// PreProcessors preserves the template's declared preprocessing order.
	PreProcessors []PreProcessor `json:"pre_processors,omitempty"`

	// Blocks holds the resolved field blocks sorted by name, so iteration
	// order is deterministic regardless of JSON map order.
	Blocks []FieldBlock `json:"field_blocks"`
}

// FieldCount returns the total number of expanded fields across all blocks.
func (t *Template) FieldCount() int {
	n := 0
	for _, b := range t.Blocks {
		n += len(b.Fields)
	}
	return n
}

// PreProcessor returns the first preprocessor specification with the given
// name, or nil if the template does not declare one.
func (t *Template) PreProcessor(name string) *PreProcessor {
	for i := range t.PreProcessors {
		if t.PreProcessors[i].Name == name {
			return &t.PreProcessors[i]
		}
	}
	return nil
}

// Raw wire format, matching the template.json vocabulary.

type rawTemplate struct {
	PageDimensions   []int               `json:"pageDimensions"`
	BubbleDimensions []int               `json:"bubbleDimensions"`
	PreProcessors    []rawPreProcessor   `json:"preProcessors"`
	FieldBlocks      map[string]rawBlock `json:"fieldBlocks"`
}

type rawPreProcessor struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

type rawBlock struct {
	FieldType   string    `json:"fieldType"`
	Origin      []float64 `json:"origin"`
	FieldLabels []string  `json:"fieldLabels"`
	BubblesGap  float64   `json:"bubblesGap"`
	LabelsGap   float64   `json:"labelsGap"`
}

// Parse validates a raw template document and resolves it into an absolute
// bubble grid.
//
// Structural problems are collected into a single MalformedTemplateError so
// that validation tooling can surface every issue at once. Label-range and
// bounds errors are reported individually once the structure is sound.
func Parse(raw []byte) (*Template, error) {
	var rt rawTemplate
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, &MalformedTemplateError{Issues: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	if issues := validate(&rt); len(issues) > 0 {
		return nil, &MalformedTemplateError{Issues: issues}
	}

	tpl := &Template{
		PageWidth:    rt.PageDimensions[0],
		PageHeight:   rt.PageDimensions[1],
		BubbleWidth:  rt.BubbleDimensions[0],
		BubbleHeight: rt.BubbleDimensions[1],
	}
	for _, p := range rt.PreProcessors {
		tpl.PreProcessors = append(tpl.PreProcessors, PreProcessor{Name: p.Name, Options: p.Options})
	}

	// Deterministic block order independent of JSON map iteration.
	names := make([]string, 0, len(rt.FieldBlocks))
	for name := range rt.FieldBlocks {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string) // field label -> owning block
	for _, name := range names {
		rb := rt.FieldBlocks[name]
		block, err := resolveBlock(name, rb, tpl, seen)
		if err != nil {
			return nil, err
		}
		tpl.Blocks = append(tpl.Blocks, block)
	}

	return tpl, nil
}

// validate performs the structural pass, returning one message per
// violation.
func validate(rt *rawTemplate) []string {
	var issues []string

	issues = appendDimIssues(issues, "pageDimensions", rt.PageDimensions)
	issues = appendDimIssues(issues, "bubbleDimensions", rt.BubbleDimensions)

	for i, p := range rt.PreProcessors {
		if p.Name == "" {
			issues = append(issues, fmt.Sprintf("preProcessors[%d]: missing name", i))
		}
	}

	if len(rt.FieldBlocks) == 0 {
		issues = append(issues, "fieldBlocks: missing or empty")
		return issues
	}

	names := make([]string, 0, len(rt.FieldBlocks))
	for name := range rt.FieldBlocks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := rt.FieldBlocks[name]
		if _, ok := fieldTypes[FieldType(b.FieldType)]; !ok {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: unknown fieldType %q", name, b.FieldType))
		}
		if len(b.Origin) != 2 {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: origin must be [x, y]", name))
		} else if b.Origin[0] < 0 || b.Origin[1] < 0 {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: origin must be non-negative", name))
		}
		if len(b.FieldLabels) == 0 {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: missing fieldLabels", name))
		}
		if b.BubblesGap <= 0 {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: bubblesGap must be positive", name))
		}
		if b.LabelsGap <= 0 {
			issues = append(issues, fmt.Sprintf("fieldBlocks[%s]: labelsGap must be positive", name))
		}
	}

	return issues
}

func appendDimIssues(issues []string, key string, dims []int) []string {
	if len(dims) != 2 {
		return append(issues, fmt.Sprintf("%s: must be [width, height]", key))
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return append(issues, fmt.Sprintf("%s: width and height must be positive", key))
	}
	return issues
}

// resolveBlock expands a block's labels and computes the absolute rectangle
// of every (field, option) pair.
//
// Choice fields run their options horizontally with bubblesGap between
// options and stack fields vertically with labelsGap between them; digit
// fields are the transpose.
func resolveBlock(name string, rb rawBlock, tpl *Template, seen map[string]string) (FieldBlock, error) {
	spec := fieldTypes[FieldType(rb.FieldType)]

	labels, err := expandLabels(rb.FieldLabels)
	if err != nil {
		return FieldBlock{}, err
	}

	block := FieldBlock{Name: name, Type: FieldType(rb.FieldType)}
	originX, originY := rb.Origin[0], rb.Origin[1]

	for j, label := range labels {
		if owner, dup := seen[label]; dup {
			return FieldBlock{}, &MalformedTemplateError{Issues: []string{
				fmt.Sprintf("fieldBlocks[%s]: field label %q already defined in block %q", name, label, owner),
			}}
		}
		seen[label] = name

		field := Field{Label: label}
		for i, value := range spec.values {
			var x, y float64
			if spec.vertical {
				x = originX + float64(j)*rb.LabelsGap
				y = originY + float64(i)*rb.BubblesGap
			} else {
				x = originX + float64(i)*rb.BubblesGap
				y = originY + float64(j)*rb.LabelsGap
			}

			bubble := Bubble{
				Label: value,
				X1:    int(math.Round(x)),
				Y1:    int(math.Round(y)),
				W:     tpl.BubbleWidth,
				H:     tpl.BubbleHeight,
			}
			if bubble.X1 < 0 || bubble.Y1 < 0 ||
				bubble.X1+bubble.W > tpl.PageWidth || bubble.Y1+bubble.H > tpl.PageHeight {
				return FieldBlock{}, &OutOfBoundsError{
					Block: name, Field: label, Label: value,
					X1: bubble.X1, Y1: bubble.Y1, W: bubble.W, H: bubble.H,
					PageWidth: tpl.PageWidth, PageHeight: tpl.PageHeight,
				}
			}
			field.Bubbles = append(field.Bubbles, bubble)
		}
		block.Fields = append(block.Fields, field)
	}

	return block, nil
}
