// Package decode aggregates classified bubbles into per-question answers.
//
// For each question the decoder collects the marked bubbles in fixed option
// order and produces two views: the primary answer (a single label, a
// concatenation when several options are marked, or the empty no-answer
// sentinel) and the raw answer (the set of every marked option label).
// Questions with more than one mark contribute to the result's multi-mark
// count. Digit fields aggregate identically, with option labels already
// being digit runes.
//
// Decoding is pure: the same classified-bubble set always produces a
// byte-identical result, and no I/O happens here.
//
// The package also renders the optional annotated overlay image: bubble
// rectangles drawn over the processed sheet, colored by mark state, with
// field labels. The overlay is returned base64-encoded so a transport layer
// can pass it through without touching pixel data.
package decode
