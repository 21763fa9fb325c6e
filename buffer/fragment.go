package buffer

import (
	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/rope"
)

// InsertionTimestamp identifies one insertion: the per-replica sequence
// id plus the Lamport timestamp used to order concurrent insertions.
type InsertionTimestamp struct {
	Local   clock.Local
	Lamport clock.Lamport
}

// fragment is one contiguous run of an insertion in document order.
// Edits split fragments but never reorder them, so the fragments of an
// insertion always appear in increasing insOffset order. Invisible
// fragments stay in the list as tombstones; their text lives in the
// deleted rope.
type fragment struct {
	ins       InsertionTimestamp
	insOffset int // offset of this run within its insertion
	len       int
	visible   bool
	deletions map[clock.Local]struct{} // edit ids that deleted this run
	maxUndos  clock.Global             // undo ids that have touched this run
}

// visLen returns the fragment's contribution to the visible text.
func (f fragment) visLen() int {
	if f.visible {
		return f.len
	}
	return 0
}

// delLen returns the fragment's contribution to the deleted text.
func (f fragment) delLen() int {
	if f.visible {
		return 0
	}
	return f.len
}

// versionedLen returns the fragment's length in the coordinate space
// of the given version: fragments whose insertion that version has not
// seen occupy no space in it.
func (f fragment) versionedLen(version clock.Global) int {
	if version.Observed(f.ins.Local) {
		return f.len
	}
	return 0
}

// isVisible reports current visibility under the undo map: the
// insertion must not be undone and every deletion must be undone.
func (f fragment) isVisible(undos undoMap) bool {
	if undos.isUndone(f.ins.Local) {
		return false
	}
	for d := range f.deletions {
		if !undos.isUndone(d) {
			return false
		}
	}
	return true
}

// wasVisible reports whether the fragment was visible at the given
// version.
func (f fragment) wasVisible(version clock.Global, undos undoMap) bool {
	if !version.Observed(f.ins.Local) || undos.wasUndone(f.ins.Local, version) {
		return false
	}
	for d := range f.deletions {
		if version.Observed(d) && !undos.wasUndone(d, version) {
			return false
		}
	}
	return true
}

// split divides the fragment into [0, at) and [at, len). Both halves
// keep the full deletion set.
func (f fragment) split(at int) (fragment, fragment) {
	left := f
	left.len = at
	left.deletions = cloneDeletions(f.deletions)
	left.maxUndos = f.maxUndos.Clone()
	right := f
	right.insOffset += at
	right.len -= at
	right.deletions = cloneDeletions(f.deletions)
	right.maxUndos = f.maxUndos.Clone()
	return left, right
}

// withDeletion returns a copy marked deleted by the given edit.
func (f fragment) withDeletion(id clock.Local) fragment {
	g := f
	g.deletions = cloneDeletions(f.deletions)
	if g.deletions == nil {
		g.deletions = make(map[clock.Local]struct{}, 1)
	}
	g.deletions[id] = struct{}{}
	g.visible = false
	return g
}

// withVisibility returns a copy with recomputed visibility after an
// undo, recording the undo id in maxUndos.
func (f fragment) withVisibility(undos undoMap, undoID clock.Local) fragment {
	g := f
	g.maxUndos = f.maxUndos.Clone()
	if g.maxUndos == nil {
		g.maxUndos = clock.Global{}
	}
	g.maxUndos.Observe(undoID)
	g.visible = g.isVisible(undos)
	return g
}

func cloneDeletions(d map[clock.Local]struct{}) map[clock.Local]struct{} {
	if d == nil {
		return nil
	}
	out := make(map[clock.Local]struct{}, len(d))
	for k := range d {
		out[k] = struct{}{}
	}
	return out
}

// undoEntry records one undo operation's count for an edit.
type undoEntry struct {
	undoID clock.Local
	count  uint32
}

// undoMap tracks, per edit id, every undo count that has been applied
// to it. An edit is undone when its highest count is odd.
type undoMap map[clock.Local][]undoEntry

func (m undoMap) insert(op *UndoOperation) {
	for edit, count := range op.Counts {
		m[edit] = append(m[edit], undoEntry{undoID: op.ID, count: count})
	}
}

func (m undoMap) undoCount(edit clock.Local) uint32 {
	var max uint32
	for _, e := range m[edit] {
		if e.count > max {
			max = e.count
		}
	}
	return max
}

func (m undoMap) isUndone(edit clock.Local) bool {
	return m.undoCount(edit)%2 == 1
}

// wasUndone reports whether the edit counted as undone at the given
// version, considering only undo operations that version had seen.
func (m undoMap) wasUndone(edit clock.Local, version clock.Global) bool {
	var max uint32
	for _, e := range m[edit] {
		if version.Observed(e.undoID) && e.count > max {
			max = e.count
		}
	}
	return max%2 == 1
}

// ropeBuilder rebuilds the visible and deleted ropes during a fragment
// pass. Fragments are pushed in document order; their text is pulled
// sequentially from whichever old rope held it and routed to whichever
// new rope should hold it.
type ropeBuilder struct {
	oldVisible *rope.Cursor
	oldDeleted *rope.Cursor
	newVisible *rope.Builder
	newDeleted *rope.Builder
}

func newRopeBuilder(visible, deleted rope.Rope) *ropeBuilder {
	return &ropeBuilder{
		oldVisible: visible.CursorAt(0),
		oldDeleted: deleted.CursorAt(0),
		newVisible: rope.NewBuilder(),
		newDeleted: rope.NewBuilder(),
	}
}

// push routes length bytes from the old ropes to the new ones.
func (rb *ropeBuilder) push(length int, wasVisible, isVisible bool) {
	cur := rb.oldDeleted
	if wasVisible {
		cur = rb.oldVisible
	}
	piece := cur.Slice(cur.Offset() + length)
	if isVisible {
		rb.newVisible.PushRope(piece)
	} else {
		rb.newDeleted.PushRope(piece)
	}
}

// pushFragment routes a fragment whose old-rope residence is given by
// wasVisible.
func (rb *ropeBuilder) pushFragment(f fragment, wasVisible bool) {
	rb.push(f.len, wasVisible, f.visible)
}

// pushNewText adds freshly inserted text to the visible rope.
func (rb *ropeBuilder) pushNewText(text string) {
	rb.newVisible.PushString(text)
}

func (rb *ropeBuilder) finish() (rope.Rope, rope.Rope) {
	return rb.newVisible.Build(), rb.newDeleted.Build()
}
