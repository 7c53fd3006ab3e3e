// Package classify decides, per bubble, whether a mark is present.
//
// # Darkness Statistic
//
// Each bubble rectangle gets a scalar darkness: 255 minus the mean gray
// intensity over the rectangle's interior. A thin border margin is excluded
// so printed bubble outlines and slight misregistration do not dominate the
// statistic. Darkness runs 0 (paper white) to 255 (solid black).
//
// # Jump Split
//
// Classification is relative within one question, not a fixed global cutoff.
// Absolute darkness is not comparable sheet-to-sheet (lighting, scanner
// gain), but the separation between a filled bubble and its empty siblings
// within one question usually survives those conditions. The bubbles of a
// field are sorted by darkness ascending and the sequence is walked looking
// for the first adjacent gap exceeding the configured minimum jump; every
// bubble at or above that split is marked. No qualifying gap means the
// field is unmarked entirely, which downstream reads as "no answer".
//
// # Global Bounds
//
// Two absolute intensity cutoffs bound the relative method so a uniformly
// over- or under-exposed field cannot fool it: a bubble lighter than the
// global white threshold is never marked, and one darker than the global
// black threshold is never unmarked.
package classify
