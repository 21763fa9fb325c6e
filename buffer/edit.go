package buffer

import (
	"github.com/dshills/cotext/clock"
)

// fragCursor consumes the fragment list front to back in visible
// coordinates, splitting fragments on demand. visPos and delPos track
// how many visible and deleted bytes have been consumed, so their sum
// is the full offset of the unconsumed remainder.
type fragCursor struct {
	frags  []fragment
	idx    int
	rem    *fragment
	visPos int
	delPos int
}

func newFragCursor(frags []fragment) *fragCursor {
	return &fragCursor{frags: frags}
}

func (c *fragCursor) peek() *fragment {
	if c.rem == nil && c.idx < len(c.frags) {
		f := c.frags[c.idx]
		c.rem = &f
	}
	return c.rem
}

// takeAll consumes the remainder of the current fragment.
func (c *fragCursor) takeAll() fragment {
	f := *c.peek()
	c.rem = nil
	c.idx++
	c.visPos += f.visLen()
	c.delPos += f.delLen()
	return f
}

// take consumes n visible bytes from the current fragment, which must
// be visible.
func (c *fragCursor) take(n int) fragment {
	f := c.peek()
	if n >= f.len {
		return c.takeAll()
	}
	left, right := f.split(n)
	*c.rem = right
	c.visPos += n
	return left
}

// fullOffset returns the full (visible plus deleted) offset of the
// unconsumed remainder.
func (c *fragCursor) fullOffset() int {
	return c.visPos + c.delPos
}

// versionedCursor consumes the fragment list in the coordinate space of
// a fixed version: fragments whose insertion that version never saw
// occupy no space.
type versionedCursor struct {
	frags   []fragment
	version clock.Global
	idx     int
	rem     *fragment
	pos     int
}

func newVersionedCursor(frags []fragment, version clock.Global) *versionedCursor {
	return &versionedCursor{frags: frags, version: version}
}

func (c *versionedCursor) peek() *fragment {
	if c.rem == nil && c.idx < len(c.frags) {
		f := c.frags[c.idx]
		c.rem = &f
	}
	return c.rem
}

func (c *versionedCursor) takeAll() fragment {
	f := *c.peek()
	c.rem = nil
	c.idx++
	c.pos += f.versionedLen(c.version)
	return f
}

// take consumes n versioned bytes from the current fragment, which must
// be observed by the cursor's version.
func (c *versionedCursor) take(n int) fragment {
	f := c.peek()
	if n >= f.len {
		return c.takeAll()
	}
	left, right := f.split(n)
	*c.rem = right
	c.pos += n
	return left
}

// applyLocalEdit splices a validated edit batch into the fragment list
// and rebuilds the ropes. Edit ranges address the pre-edit visible
// text; the returned operation carries the same ranges converted to
// full offsets so peers can locate them in their own fragment lists.
func (b *Buffer) applyLocalEdit(edits []TextEdit, ts InsertionTimestamp) *EditOperation {
	op := &EditOperation{
		Timestamp: ts,
		Version:   b.version.Clone(),
		Ranges:    make([]Range, 0, len(edits)),
		NewTexts:  make([]string, 0, len(edits)),
	}
	c := newFragCursor(b.fragments)
	rb := newRopeBuilder(b.visible, b.deleted)
	newFrags := make([]fragment, 0, len(b.fragments)+3*len(edits))
	insOffset := 0

	for _, e := range edits {
		// Copy fragments ending at or before the edit start. Tombstones
		// sitting exactly at the start are consumed too, so the new text
		// lands after them.
		for f := c.peek(); f != nil && c.visPos+f.visLen() <= e.Range.Start; f = c.peek() {
			g := c.takeAll()
			rb.pushFragment(g, g.visible)
			newFrags = append(newFrags, g)
		}
		if c.visPos < e.Range.Start {
			pre := c.take(e.Range.Start - c.visPos)
			rb.pushFragment(pre, pre.visible)
			newFrags = append(newFrags, pre)
		}
		fullStart := c.fullOffset()

		if len(e.NewText) > 0 {
			rb.pushNewText(e.NewText)
			newFrags = append(newFrags, fragment{
				ins:       ts,
				insOffset: insOffset,
				len:       len(e.NewText),
				visible:   true,
			})
			insOffset += len(e.NewText)
		}

		for c.visPos < e.Range.End {
			f := c.peek()
			if !f.visible {
				g := c.takeAll()
				rb.pushFragment(g, false)
				newFrags = append(newFrags, g)
				continue
			}
			g := c.take(e.Range.End - c.visPos)
			wasVisible := g.visible
			g = g.withDeletion(ts.Local)
			rb.push(g.len, wasVisible, false)
			newFrags = append(newFrags, g)
		}

		op.Ranges = append(op.Ranges, Range{Start: fullStart, End: c.fullOffset()})
		op.NewTexts = append(op.NewTexts, e.NewText)
	}

	for f := c.peek(); f != nil; f = c.peek() {
		g := c.takeAll()
		rb.pushFragment(g, g.visible)
		newFrags = append(newFrags, g)
	}

	b.fragments = newFrags
	b.visible, b.deleted = rb.finish()
	return op
}

// applyRemoteEdit merges a concurrent edit. The operation's ranges are
// located in the coordinate space of its version; fragments the
// operation never saw are stepped over without being deleted.
// Concurrent insertions at the same spot are ordered by Lamport
// timestamp, higher timestamps landing leftmost, so every replica
// splices them identically.
func (b *Buffer) applyRemoteEdit(op *EditOperation) {
	c := newVersionedCursor(b.fragments, op.Version)
	rb := newRopeBuilder(b.visible, b.deleted)
	newFrags := make([]fragment, 0, len(b.fragments)+3*len(op.Ranges))
	insOffset := 0

	for k, r := range op.Ranges {
		// Copy fragments strictly before the edit start. Fragments the
		// operation never saw occupy no space here, so one sitting exactly
		// at the start must be left for the Lamport loop below to order.
		for f := c.peek(); f != nil; f = c.peek() {
			vlen := f.versionedLen(op.Version)
			if c.pos+vlen > r.Start || (vlen == 0 && c.pos == r.Start) {
				break
			}
			g := c.takeAll()
			rb.pushFragment(g, g.visible)
			newFrags = append(newFrags, g)
		}
		if c.pos < r.Start {
			pre := c.take(r.Start - c.pos)
			rb.pushFragment(pre, pre.visible)
			newFrags = append(newFrags, pre)
		}
		for f := c.peek(); f != nil && c.pos == r.Start && f.ins.Lamport.Compare(op.Timestamp.Lamport) > 0; f = c.peek() {
			g := c.takeAll()
			rb.pushFragment(g, g.visible)
			newFrags = append(newFrags, g)
		}

		newText := op.NewTexts[k]
		if len(newText) > 0 {
			rb.pushNewText(newText)
			newFrags = append(newFrags, fragment{
				ins:       op.Timestamp,
				insOffset: insOffset,
				len:       len(newText),
				visible:   true,
			})
			insOffset += len(newText)
		}

		for c.pos < r.End {
			f := c.peek()
			if f == nil {
				break
			}
			if f.versionedLen(op.Version) == 0 {
				// Concurrent insertion inside the deleted range; it
				// survives the deletion.
				g := c.takeAll()
				rb.pushFragment(g, g.visible)
				newFrags = append(newFrags, g)
				continue
			}
			g := c.take(r.End - c.pos)
			if g.wasVisible(op.Version, b.undoMap) {
				wasVisible := g.visible
				g = g.withDeletion(op.Timestamp.Local)
				rb.push(g.len, wasVisible, false)
			} else {
				rb.pushFragment(g, g.visible)
			}
			newFrags = append(newFrags, g)
		}
	}

	for f := c.peek(); f != nil; f = c.peek() {
		g := c.takeAll()
		rb.pushFragment(g, g.visible)
		newFrags = append(newFrags, g)
	}

	b.fragments = newFrags
	b.visible, b.deleted = rb.finish()
	b.version.Observe(op.Timestamp.Local)
	b.localClock.Observe(op.Timestamp.Local)
	b.lamportClock.Observe(op.Timestamp.Lamport)
}

// applyUndo recomputes visibility for every fragment the undo touches,
// either by its insertion or by one of its deletions.
func (b *Buffer) applyUndo(op *UndoOperation) {
	b.undoMap.insert(op)
	rb := newRopeBuilder(b.visible, b.deleted)
	newFrags := make([]fragment, 0, len(b.fragments))

	for _, f := range b.fragments {
		_, touched := op.Counts[f.ins.Local]
		if !touched {
			for d := range f.deletions {
				if _, ok := op.Counts[d]; ok {
					touched = true
					break
				}
			}
		}
		if !touched {
			rb.pushFragment(f, f.visible)
			newFrags = append(newFrags, f)
			continue
		}
		wasVisible := f.visible
		g := f.withVisibility(b.undoMap, op.ID)
		rb.push(g.len, wasVisible, g.visible)
		newFrags = append(newFrags, g)
	}

	b.fragments = newFrags
	b.visible, b.deleted = rb.finish()
	b.localClock.Observe(op.ID)
	b.lamportClock.Observe(op.Lamport)
}

// undoOrRedo toggles a transaction's edits by bumping each edit's undo
// count. Even counts leave the edit applied, odd counts leave it
// undone.
func (b *Buffer) undoOrRedo(tx Transaction) *UndoOperation {
	counts := make(map[clock.Local]uint32, len(tx.EditIDs))
	for _, edit := range tx.EditIDs {
		counts[edit] = b.undoMap.undoCount(edit) + 1
	}
	op := &UndoOperation{
		ID:      b.localClock.Tick(),
		Lamport: b.lamportClock.Tick(),
		Version: tx.Start.Clone(),
		Counts:  counts,
	}
	b.applyUndo(op)
	b.version.Observe(op.ID)
	return op
}

// EditedRangesForTransaction returns the current visible ranges touched
// by a transaction's edits. Insertions map to their surviving text,
// deletions to empty ranges at the deletion site. Adjacent ranges are
// merged.
func (b *Buffer) EditedRangesForTransaction(id TransactionID) []Range {
	tx, ok := b.history.find(id)
	if !ok {
		return nil
	}
	ids := make(map[clock.Local]struct{}, len(tx.EditIDs))
	for _, edit := range tx.EditIDs {
		ids[edit] = struct{}{}
	}

	var ranges []Range
	push := func(r Range) {
		if n := len(ranges); n > 0 && ranges[n-1].End >= r.Start {
			if r.End > ranges[n-1].End {
				ranges[n-1].End = r.End
			}
			return
		}
		ranges = append(ranges, r)
	}

	visPos := 0
	for _, f := range b.fragments {
		_, inserted := ids[f.ins.Local]
		deleted := false
		for d := range f.deletions {
			if _, ok := ids[d]; ok {
				deleted = true
				break
			}
		}
		if inserted && f.visible {
			push(Range{Start: visPos, End: visPos + f.len})
		} else if deleted && !f.visible {
			push(Range{Start: visPos, End: visPos})
		}
		visPos += f.visLen()
	}
	return ranges
}
