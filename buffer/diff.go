package buffer

import (
	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/rope"
)

// EditsSince computes the contiguous differences between the buffer at
// the given version and now, in ascending order. Each Edit carries old
// and new coordinates as both byte offsets and points, so a consumer
// holding a snapshot at since can patch its own derived state instead
// of rescanning the text.
func (b *Buffer) EditsSince(since clock.Global) []Edit {
	return b.editsSince(since, Range{Start: 0, End: b.visible.Len()}, false)
}

// EditsSinceInRange is EditsSince restricted to edits intersecting the
// given range of the current visible text.
func (b *Buffer) EditsSinceInRange(since clock.Global, r Range) []Edit {
	return b.editsSince(since, r, false)
}

// HasEditsSince reports whether the visible text has changed since the
// given version. It is cheaper than EditsSince: version bookkeeping
// alone answers most calls, and the fragment scan stops at the first
// difference.
func (b *Buffer) HasEditsSince(since clock.Global) bool {
	if !b.version.Changed(since) {
		return false
	}
	return len(b.editsSince(since, Range{Start: 0, End: b.visible.Len()}, true)) > 0
}

func (b *Buffer) editsSince(since clock.Global, bounds Range, firstOnly bool) []Edit {
	if !b.version.Changed(since) {
		return nil
	}

	var edits []Edit
	var pending *Edit
	oldOff, newOff, delOff := 0, 0, 0
	var oldPoint, newPoint rope.Point

	flush := func() {
		if pending != nil && !pending.IsEmpty() &&
			pending.New.Start <= bounds.End && pending.New.End >= bounds.Start {
			edits = append(edits, *pending)
		}
		pending = nil
	}
	open := func() {
		if pending == nil {
			pending = &Edit{
				Old:       Range{Start: oldOff, End: oldOff},
				New:       Range{Start: newOff, End: newOff},
				OldPoints: PointRange{Start: oldPoint, End: oldPoint},
				NewPoints: PointRange{Start: newPoint, End: newPoint},
			}
		}
	}

	for _, f := range b.fragments {
		was := f.wasVisible(since, b.undoMap)
		is := f.visible
		switch {
		case was && is:
			flush()
			if firstOnly && len(edits) > 0 {
				return edits
			}
			ext := b.visible.TextSummaryForRange(newOff, newOff+f.len).Lines
			oldOff += f.len
			newOff += f.len
			oldPoint = oldPoint.Add(ext)
			newPoint = newPoint.Add(ext)
		case !was && is:
			open()
			ext := b.visible.TextSummaryForRange(newOff, newOff+f.len).Lines
			newOff += f.len
			newPoint = newPoint.Add(ext)
			pending.New.End = newOff
			pending.NewPoints.End = newPoint
		case was && !is:
			open()
			ext := b.deleted.TextSummaryForRange(delOff, delOff+f.len).Lines
			oldOff += f.len
			oldPoint = oldPoint.Add(ext)
			pending.Old.End = oldOff
			pending.OldPoints.End = oldPoint
		}
		if !is {
			delOff += f.len
		}
		if pending == nil && newOff > bounds.End {
			break
		}
	}
	flush()
	return edits
}

// RopeForVersion reconstructs the visible text as it stood at the given
// version, pulling retained text from the visible rope and resurrected
// text from the tombstones. The version must be one this buffer has
// fully observed.
func (b *Buffer) RopeForVersion(version clock.Global) rope.Rope {
	builder := rope.NewBuilder()
	visOff, delOff := 0, 0
	for _, f := range b.fragments {
		if f.wasVisible(version, b.undoMap) {
			if f.visible {
				builder.PushRope(b.visible.Slice(visOff, visOff+f.len))
			} else {
				builder.PushRope(b.deleted.Slice(delOff, delOff+f.len))
			}
		}
		if f.visible {
			visOff += f.len
		} else {
			delOff += f.len
		}
	}
	return builder.Build()
}

// TextForVersion is RopeForVersion materialized as a string.
func (b *Buffer) TextForVersion(version clock.Global) string {
	return b.RopeForVersion(version).String()
}
