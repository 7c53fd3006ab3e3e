package template

import (
	"errors"
	"fmt"
	"testing"
)

func TestExpandLabel_Range(t *testing.T) {
	labels, err := expandLabel("q1..40")
	if err != nil {
		t.Fatalf("expandLabel failed: %v", err)
	}

	if len(labels) != 40 {
		t.Fatalf("count: got %d, want 40", len(labels))
	}

	// Ascending numeric order, re-derivable from the range bounds.
	for i, label := range labels {
		want := fmt.Sprintf("q%d", i+1)
		if label != want {
			t.Errorf("labels[%d]: got %q, want %q", i, label, want)
		}
	}
}

func TestExpandLabel_Plain(t *testing.T) {
	labels, err := expandLabel("rollNo")
	if err != nil {
		t.Fatalf("expandLabel failed: %v", err)
	}
	if len(labels) != 1 || labels[0] != "rollNo" {
		t.Errorf("got %v, want [rollNo]", labels)
	}
}

func TestExpandLabel_SingleElementRange(t *testing.T) {
	labels, err := expandLabel("q7..7")
	if err != nil {
		t.Fatalf("expandLabel failed: %v", err)
	}
	if len(labels) != 1 || labels[0] != "q7" {
		t.Errorf("got %v, want [q7]", labels)
	}
}

func TestExpandLabel_EmptyBase(t *testing.T) {
	labels, err := expandLabel("1..3")
	if err != nil {
		t.Fatalf("expandLabel failed: %v", err)
	}
	want := []string{"1", "2", "3"}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d]: got %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestExpandLabel_Malformed(t *testing.T) {
	tests := []string{
		"q..5",    // missing lower bound
		"q1..",    // missing upper bound
		"q1..x",   // non-numeric upper bound
		"q9..2",   // descending
		"..",      // bare range
		"a..b",    // no numbers at all
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := expandLabel(expr)
			if err == nil {
				t.Fatalf("expected error for %q", expr)
			}
			var lre *LabelRangeError
			if !errors.As(err, &lre) {
				t.Errorf("expected LabelRangeError, got %T: %v", err, err)
			}
		})
	}
}

func TestExpandLabels_PreservesExpressionOrder(t *testing.T) {
	labels, err := expandLabels([]string{"q4..5", "bonus", "q1..2"})
	if err != nil {
		t.Fatalf("expandLabels failed: %v", err)
	}

	want := []string{"q4", "q5", "bonus", "q1", "q2"}
	if len(labels) != len(want) {
		t.Fatalf("count: got %d, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d]: got %q, want %q", i, labels[i], want[i])
		}
	}
}
