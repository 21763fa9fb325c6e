package buffer

import (
	"fmt"
	"math"

	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/rope"
)

// Anchor is a stable logical position: the insertion it lives in, the
// offset within that insertion, and a bias deciding which side it
// sticks to when text is inserted exactly at the anchor. Anchors hold
// no reference into the rope; they are resolved on demand against the
// buffer's fragment log, so they survive any sequence of local and
// remote edits.
//
// Anchors must only be resolved against buffers that share the history
// of the buffer that created them; resolving against an unrelated
// buffer panics.
type Anchor struct {
	Timestamp clock.Local // insertion the anchor lives in
	Offset    int         // offset within that insertion
	Bias      rope.Bias
}

// AnchorMin always resolves to offset 0, and AnchorMax to the document
// end, regardless of version. Ranges built from them automatically
// extend as content is prepended or appended.
var (
	AnchorMin = Anchor{Bias: rope.BiasLeft}
	AnchorMax = Anchor{
		Timestamp: clock.Local{ReplicaID: math.MaxUint16, Value: math.MaxUint32},
		Offset:    math.MaxInt,
		Bias:      rope.BiasRight,
	}
)

// String returns a human-readable representation of the anchor.
func (a Anchor) String() string {
	return fmt.Sprintf("anchor(%s+%d %s)", a.Timestamp, a.Offset, a.Bias)
}

// AnchorBefore returns an anchor that sticks to the character before
// the given visible offset.
func (b *Buffer) AnchorBefore(offset int) Anchor {
	return b.anchorAt(offset, rope.BiasLeft)
}

// AnchorAfter returns an anchor that sticks to the character after the
// given visible offset.
func (b *Buffer) AnchorAfter(offset int) Anchor {
	return b.anchorAt(offset, rope.BiasRight)
}

// AnchorBeforePoint is AnchorBefore addressed by a point.
func (b *Buffer) AnchorBeforePoint(p rope.Point) Anchor {
	return b.anchorAt(b.visible.PointToOffset(p), rope.BiasLeft)
}

// AnchorAfterPoint is AnchorAfter addressed by a point.
func (b *Buffer) AnchorAfterPoint(p rope.Point) Anchor {
	return b.anchorAt(b.visible.PointToOffset(p), rope.BiasRight)
}

// AnchorRange returns a (before, after) anchor pair covering the given
// visible range, so the range shrinks rather than swallows concurrent
// insertions at its boundaries.
func (b *Buffer) AnchorRange(r Range) (Anchor, Anchor) {
	return b.anchorAt(r.Start, rope.BiasRight), b.anchorAt(r.End, rope.BiasLeft)
}

func (b *Buffer) anchorAt(offset int, bias rope.Bias) Anchor {
	if offset < 0 || offset > b.visible.Len() {
		panic(fmt.Sprintf("buffer: anchor offset %d out of range for %d bytes", offset, b.visible.Len()))
	}
	if offset == 0 && bias == rope.BiasLeft {
		return AnchorMin
	}
	if offset == b.visible.Len() && bias == rope.BiasRight {
		return AnchorMax
	}
	visPos := 0
	for _, f := range b.fragments {
		if !f.visible {
			continue
		}
		fEnd := visPos + f.len
		var contains bool
		if bias == rope.BiasLeft {
			contains = offset > visPos && offset <= fEnd
		} else {
			contains = offset >= visPos && offset < fEnd
		}
		if contains {
			return Anchor{
				Timestamp: f.ins.Local,
				Offset:    f.insOffset + (offset - visPos),
				Bias:      bias,
			}
		}
		visPos = fEnd
	}
	// Reached only when the visible text is empty.
	if bias == rope.BiasLeft {
		return AnchorMin
	}
	return AnchorMax
}

// ToOffset resolves the anchor against the buffer's current version.
func (a Anchor) ToOffset(b *Buffer) int {
	if a == AnchorMin {
		return 0
	}
	if a == AnchorMax {
		return b.visible.Len()
	}
	fallback := -1
	visPos := 0
	for _, f := range b.fragments {
		if f.ins.Local == a.Timestamp && a.Offset >= f.insOffset && a.Offset <= f.insOffset+f.len {
			if a.Offset < f.insOffset+f.len || a.Bias == rope.BiasLeft {
				if f.visible {
					return visPos + (a.Offset - f.insOffset)
				}
				return visPos
			}
			// Right-biased anchor at this run's end: prefer a later
			// run of the same insertion starting here, if any.
			if f.visible {
				fallback = visPos + f.len
			} else {
				fallback = visPos
			}
		}
		visPos += f.visLen()
	}
	if fallback >= 0 {
		return fallback
	}
	panic(fmt.Sprintf("buffer: %s resolved against a buffer that never saw its insertion", a))
}

// ToPoint resolves the anchor to a line/column position.
func (a Anchor) ToPoint(b *Buffer) rope.Point {
	return b.visible.OffsetToPoint(a.ToOffset(b))
}

// Cmp orders anchors by their resolved position in the given buffer,
// breaking ties by bias (left before right) and then by insertion id,
// so sorting is total and deterministic.
func (a Anchor) Cmp(other Anchor, b *Buffer) int {
	ao, bo := a.ToOffset(b), other.ToOffset(b)
	if ao != bo {
		if ao < bo {
			return -1
		}
		return 1
	}
	if a.Bias != other.Bias {
		if a.Bias == rope.BiasLeft {
			return -1
		}
		return 1
	}
	return a.Timestamp.Compare(other.Timestamp)
}
