package template

import (
	"fmt"
	"strings"
)

// MalformedTemplateError reports every structural violation found in a raw
// template document. Issues are ordered by page-level fields first, then by
// block name.
type MalformedTemplateError struct {
	// Issues holds one human-readable message per violated field.
	Issues []string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template: %s", strings.Join(e.Issues, "; "))
}

// LabelRangeError reports a field label whose range syntax could not be
// expanded.
type LabelRangeError struct {
	// Expr is the offending label expression as written in the template.
	Expr string

	// Reason describes why expansion failed.
	Reason string
}

func (e *LabelRangeError) Error() string {
	return fmt.Sprintf("invalid label range %q: %s", e.Expr, e.Reason)
}

// OutOfBoundsError reports a resolved bubble rectangle that falls outside
// the template's page dimensions.
type OutOfBoundsError struct {
	Block string // field block name
	Field string // expanded field label
	Label string // option label within the field

	// X1, Y1, W, H describe the offending rectangle.
	X1, Y1, W, H int

	PageWidth  int
	PageHeight int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("block %q field %q option %q: bubble (%d,%d %dx%d) outside page %dx%d",
		e.Block, e.Field, e.Label, e.X1, e.Y1, e.W, e.H, e.PageWidth, e.PageHeight)
}
