package rope

import "fmt"

// Cursor walks a rope from left to right, carving off slices and
// summaries as it goes. It is the workhorse for rebuilding ropes after
// an edit: seek to each boundary, keep the retained spans, splice in
// the new text.
type Cursor struct {
	rope   Rope
	offset int
}

// CursorAt returns a cursor positioned at the given byte offset.
func (r Rope) CursorAt(offset int) *Cursor {
	if offset < 0 || offset > r.Len() {
		panic(fmt.Sprintf("rope: cursor offset %d out of range for %d bytes", offset, r.Len()))
	}
	return &Cursor{rope: r, offset: offset}
}

// Offset returns the cursor's current byte offset.
func (c *Cursor) Offset() int {
	return c.offset
}

// Slice returns the rope spanning from the cursor to end and advances
// the cursor to end.
func (c *Cursor) Slice(end int) Rope {
	if end < c.offset || end > c.rope.Len() {
		panic(fmt.Sprintf("rope: cursor slice to %d from %d out of range", end, c.offset))
	}
	out := c.rope.Slice(c.offset, end)
	c.offset = end
	return out
}

// Summary returns the text summary from the cursor to end and advances
// the cursor to end.
func (c *Cursor) Summary(end int) TextSummary {
	if end < c.offset || end > c.rope.Len() {
		panic(fmt.Sprintf("rope: cursor summary to %d from %d out of range", end, c.offset))
	}
	out := c.rope.TextSummaryForRange(c.offset, end)
	c.offset = end
	return out
}

// SeekForward advances the cursor to end without yielding anything.
func (c *Cursor) SeekForward(end int) {
	if end < c.offset || end > c.rope.Len() {
		panic(fmt.Sprintf("rope: cursor seek to %d from %d out of range", end, c.offset))
	}
	c.offset = end
}

// Suffix returns everything from the cursor to the end of the rope and
// advances the cursor to the end.
func (c *Cursor) Suffix() Rope {
	return c.Slice(c.rope.Len())
}
