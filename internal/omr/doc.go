// Package omr wires the decoding stages into a single engine.
//
// An Engine is built once from a resolved template, a validated config,
// and an optional marker reference image. After construction it is
// immutable and safe for any number of concurrent readers, which is what
// batch processing relies on: one goroutine per image, sharing the engine
// without locks.
//
// # Pipeline
//
// One Process call runs the strictly sequential pipeline: preprocess
// (decode, marker crop, auto-align, rescale), classify (per-bubble
// darkness and jump-split marking), decode (per-question aggregation).
// Each stage fully consumes its predecessor's output before the next
// starts; there are no suspension points inside a run.
//
// # Failure Isolation
//
//   - ProcessBatch: a fatal error on one image is recorded on its batch
//     item and never aborts sibling images.
//   - Repeat: a failed run is recorded and excluded from aggregation; only
//     all runs failing fails the report.
//   - Alignment problems are warnings on the output, never errors.
package omr
