package template

import (
	"fmt"
	"regexp"
	"strconv"
)

// rangeExpr matches compact range labels of the form "base<lo>..<hi>",
// e.g. "q1..40". The base may be empty ("1..5" is valid).
var rangeExpr = regexp.MustCompile(`^(.*?)(\d+)\.\.(\d+)$`)

// expandLabel expands a single field-label expression.
//
// A plain label expands to itself. A range label "q1..40" expands to
// q1, q2, ..., q40 in ascending numeric order. A label containing ".."
// that does not parse as a range is rejected rather than treated literally.
func expandLabel(expr string) ([]string, error) {
	if !containsRange(expr) {
		return []string{expr}, nil
	}

	m := rangeExpr.FindStringSubmatch(expr)
	if m == nil {
		return nil, &LabelRangeError{Expr: expr, Reason: "expected base<lo>..<hi> with numeric bounds"}
	}

	base := m[1]
	lo, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, &LabelRangeError{Expr: expr, Reason: "lower bound is not a number"}
	}
	hi, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, &LabelRangeError{Expr: expr, Reason: "upper bound is not a number"}
	}
	if hi < lo {
		return nil, &LabelRangeError{Expr: expr, Reason: fmt.Sprintf("descending range %d..%d", lo, hi)}
	}

	labels := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		labels = append(labels, base+strconv.Itoa(i))
	}
	return labels, nil
}

// expandLabels expands every expression of a field block in order,
// preserving the written ordering of the expressions themselves.
func expandLabels(exprs []string) ([]string, error) {
	out := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		labels, err := expandLabel(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, labels...)
	}
	return out, nil
}

func containsRange(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '.' && s[i+1] == '.' {
			return true
		}
	}
	return false
}
