// Package rope implements a persistent rope: text stored as bounded
// chunks arranged in a B+ tree with cached summaries.
//
// Each chunk holds at most 128 bytes plus four 128-bit bitsets marking
// character starts, UTF-16 code-unit boundaries, newlines, and tabs,
// so offset/point/UTF-16 conversions are answered with popcounts
// rather than text scans. Internal tree nodes cache composable
// TextSummary values, giving logarithmic seeks by byte offset, point,
// or UTF-16 offset.
//
// Ropes are immutable values. Slicing, splitting, and concatenation
// return new ropes that share unchanged subtrees, so snapshots of old
// versions stay cheap to hold.
package rope
