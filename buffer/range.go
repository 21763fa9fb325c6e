package buffer

import (
	"fmt"

	"github.com/dshills/cotext/rope"
)

// Range is a byte range in the visible text. Start is inclusive, End
// is exclusive: [Start, End).
type Range struct {
	Start int
	End   int
}

// NewRange creates a Range from start and end offsets.
func NewRange(start, end int) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if Start <= End.
func (r Range) IsValid() bool {
	return r.Start <= r.End
}

// Intersects returns true if the ranges overlap or touch.
func (r Range) Intersects(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// PointRange is a range expressed in line/column positions.
type PointRange struct {
	Start rope.Point
	End   rope.Point
}

// String returns a human-readable representation of the range.
func (r PointRange) String() string {
	return fmt.Sprintf("[%s:%s)", r.Start, r.End)
}

// TextEdit is one (range, replacement) pair passed to Edit.
type TextEdit struct {
	Range   Range
	NewText string
}

// PointEdit is a TextEdit addressed by line/column positions.
type PointEdit struct {
	Range   PointRange
	NewText string
}

// AnchorEdit is a TextEdit addressed by anchors.
type AnchorEdit struct {
	Start   Anchor
	End     Anchor
	NewText string
}

// Edit describes one contiguous difference between two buffer
// versions, in both byte offsets and points. Old addresses the earlier
// snapshot, New the later one.
type Edit struct {
	Old       Range
	New       Range
	OldPoints PointRange
	NewPoints PointRange
}

// IsEmpty returns true if the edit changes nothing.
func (e Edit) IsEmpty() bool {
	return e.Old.IsEmpty() && e.New.IsEmpty()
}

// Delta returns the change in byte length caused by the edit.
func (e Edit) Delta() int {
	return e.New.Len() - e.Old.Len()
}
