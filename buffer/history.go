package buffer

import (
	"time"

	"github.com/dshills/cotext/clock"
)

// DefaultGroupInterval is the window within which consecutive
// transactions merge into a single undo unit.
const DefaultGroupInterval = 300 * time.Millisecond

// TransactionID identifies one undo unit within a buffer.
type TransactionID uint64

// Transaction groups the edits performed within one undo unit, along
// with the buffer version at its start. Undoing the transaction
// toggles exactly these edits.
type Transaction struct {
	ID          TransactionID
	Start       clock.Global
	EditIDs     []clock.Local
	FirstEditAt time.Time
	LastEditAt  time.Time

	// suppressGroup seals the transaction against automatic merging
	// with a later one.
	suppressGroup bool
}

// history holds the undo and redo stacks and the open-transaction
// state. It is owned by exactly one Buffer.
type history struct {
	undoStack        []Transaction
	redoStack        []Transaction
	transactionDepth int
	groupInterval    time.Duration
	nextID           TransactionID
}

func newHistory() *history {
	return &history{groupInterval: DefaultGroupInterval}
}

// start opens a transaction. Nested calls only increase the depth and
// return false; edits land in the outermost transaction.
func (h *history) start(now time.Time, version clock.Global) (TransactionID, bool) {
	h.transactionDepth++
	if h.transactionDepth > 1 {
		return 0, false
	}
	h.nextID++
	h.undoStack = append(h.undoStack, Transaction{
		ID:          h.nextID,
		Start:       version.Clone(),
		FirstEditAt: now,
		LastEditAt:  now,
	})
	return h.nextID, true
}

// end closes the innermost transaction. When the outermost one closes,
// an empty transaction is discarded and a non-empty one is merged with
// its predecessor if both fall within the group interval.
func (h *history) end(now time.Time) (TransactionID, bool) {
	if h.transactionDepth == 0 {
		return 0, false
	}
	h.transactionDepth--
	if h.transactionDepth > 0 {
		return 0, false
	}
	top := &h.undoStack[len(h.undoStack)-1]
	if len(top.EditIDs) == 0 {
		h.undoStack = h.undoStack[:len(h.undoStack)-1]
		return 0, false
	}
	top.LastEditAt = now
	id := top.ID
	h.group()
	return id, true
}

// group merges the newest transaction into its predecessor when they
// fall within the group interval and the predecessor is not sealed.
func (h *history) group() {
	n := len(h.undoStack)
	if n < 2 {
		return
	}
	last := h.undoStack[n-1]
	prev := &h.undoStack[n-2]
	if prev.suppressGroup {
		return
	}
	if last.FirstEditAt.Sub(prev.LastEditAt) > h.groupInterval {
		return
	}
	prev.EditIDs = append(prev.EditIDs, last.EditIDs...)
	prev.LastEditAt = last.LastEditAt
	h.undoStack = h.undoStack[:n-1]
}

// groupUntil merges every transaction pushed after id back into id's
// group. Unknown ids are a no-op.
func (h *history) groupUntil(id TransactionID) {
	idx := -1
	for i := range h.undoStack {
		if h.undoStack[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	target := &h.undoStack[idx]
	for _, tx := range h.undoStack[idx+1:] {
		target.EditIDs = append(target.EditIDs, tx.EditIDs...)
		if tx.LastEditAt.After(target.LastEditAt) {
			target.LastEditAt = tx.LastEditAt
		}
	}
	h.undoStack = h.undoStack[:idx+1]
}

// finalize seals the newest transaction against automatic grouping.
func (h *history) finalize() {
	if len(h.undoStack) > 0 {
		h.undoStack[len(h.undoStack)-1].suppressGroup = true
	}
}

// recordEdit attaches an edit id to the open transaction.
func (h *history) recordEdit(id clock.Local, now time.Time) {
	top := &h.undoStack[len(h.undoStack)-1]
	top.EditIDs = append(top.EditIDs, id)
	top.LastEditAt = now
}

// popUndo removes and returns the newest applied transaction.
func (h *history) popUndo() (Transaction, bool) {
	if len(h.undoStack) == 0 || h.transactionDepth > 0 {
		return Transaction{}, false
	}
	tx := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	return tx, true
}

// popRedo removes and returns the newest undone transaction.
func (h *history) popRedo() (Transaction, bool) {
	if len(h.redoStack) == 0 || h.transactionDepth > 0 {
		return Transaction{}, false
	}
	tx := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	return tx, true
}

// find locates a transaction by id on either stack.
func (h *history) find(id TransactionID) (*Transaction, bool) {
	for i := range h.undoStack {
		if h.undoStack[i].ID == id {
			return &h.undoStack[i], true
		}
	}
	for i := range h.redoStack {
		if h.redoStack[i].ID == id {
			return &h.redoStack[i], true
		}
	}
	return nil, false
}
