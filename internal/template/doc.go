// Package template parses and resolves OMR sheet-layout templates.
//
// A template is a JSON document describing the geometry of a scannable
// answer sheet: the page dimensions the pipeline normalizes every image to,
// the size of a single bubble, an ordered list of preprocessor
// specifications, and a set of named field blocks. Each field block places a
// grid of bubbles on the page: one row (or column) of options per field
// label, spaced by the block's bubble and label gaps.
//
// # Resolution
//
// Parse performs three stages:
//
//  1. Structural validation. Every violation is collected, not just the
//     first, so a validation front end can report all problems in one pass.
//  2. Label expansion. Compact range labels such as "q1..40" expand to the
//     individual labels q1 through q40 in ascending numeric order.
//  3. Geometry resolution. Every (field, option) pair is assigned an
//     absolute pixel rectangle, and each rectangle is checked against the
//     page bounds.
//
// The resolved Template is immutable and safe for concurrent readers; the
// pipeline shares one resolved template across all images of a batch.
//
// # Coordinate System
//
// All coordinates are 0-based pixels with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Bubble rectangles are
// stored as top-left corner plus extents; (X1,Y1) is inclusive and
// (X1+W, Y1+H) is exclusive, matching standard image bounds.
//
// # Error Handling
//
//   - MalformedTemplateError: structural problems, with one message per
//     violated field.
//   - LabelRangeError: a field label uses range syntax that cannot be
//     expanded.
//   - OutOfBoundsError: a resolved bubble rectangle falls outside the page.
package template
