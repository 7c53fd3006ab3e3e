// Package preprocess normalizes a raw sheet photo into the template's
// coordinate frame.
//
// The pipeline stage decodes the uploaded bytes to grayscale, rescales to
// the configured working dimensions, optionally locates the four corner
// markers and crops to the region they frame, optionally applies a bounded
// auto-alignment, and always rescales the final output to the template's
// declared page dimensions so every downstream bubble coordinate is valid
// without further scaling.
//
// # Marker Localization
//
// When the template declares a CropOnMarkers preprocessor and a marker
// reference image is supplied, the marker is scaled to its expected size
// (working width divided by the sheet-to-marker width ratio) and matched by
// zero-normalized cross-correlation independently in each quadrant of the
// working image, over a small sweep of scales around the expected one. The
// four best placements frame the crop region.
//
// # Best Effort, Never Fatal
//
// Geometric estimation is best effort. A marker match below the acceptance
// threshold, or an auto-alignment correction outside its envelope, does not
// fail the pipeline: the stage falls back to the plain rescale and records
// an AlignmentWarning on the result, so callers can distinguish "decoded
// from a well-framed sheet" from "decoded with fallback framing".
//
// Undecodable image bytes are the one fatal input: they surface as an
// ImageDecodeError.
package preprocess
