package buffer

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/rope"
)

// Sentinel errors returned by Buffer operations.
var (
	// ErrRangeInvalid is returned when an edit range has Start > End.
	ErrRangeInvalid = errors.New("buffer: range start exceeds end")

	// ErrEditsOverlap is returned when edit ranges in one batch
	// overlap or touch.
	ErrEditsOverlap = errors.New("buffer: edit ranges overlap or touch")
)

// Buffer is one replica of a collaboratively edited text document.
//
// Local edits produce operations that can be broadcast to peers;
// remote operations are merged through ApplyOp. As long as each
// replica's operations arrive in the order they were generated, all
// replicas converge to identical text regardless of the interleaving
// across replicas. Out-of-order operations across replicas are held in
// a deferred queue until their causal dependencies arrive.
//
// A Buffer is not safe for concurrent use; callers that share one
// across goroutines must synchronize externally.
type Buffer struct {
	replicaID clock.ReplicaID
	remoteID  uint64

	visible   rope.Rope
	deleted   rope.Rope
	fragments []fragment

	version      clock.Global
	localClock   *clock.Clock
	lamportClock *clock.LamportClock
	undoMap      undoMap
	history      *history

	deferredOps      []Operation
	deferredReplicas map[clock.ReplicaID]struct{}

	lineEnding LineEnding
}

// baseTimestamp identifies the initial text shared by all replicas of
// a document. Every replica constructs it identically so their
// fragment logs agree from the start.
var baseTimestamp = InsertionTimestamp{
	Local:   clock.Local{ReplicaID: 0, Value: 1},
	Lamport: clock.Lamport{Value: 1, ReplicaID: 0},
}

// New creates a buffer replica. Line endings in text are detected,
// remembered, and normalized to "\n" internally.
func New(replicaID clock.ReplicaID, remoteID uint64, text string) *Buffer {
	le := detectLineEnding(text)
	norm := normalizeLineEndings(text)
	b := &Buffer{
		replicaID:        replicaID,
		remoteID:         remoteID,
		visible:          rope.FromString(norm),
		deleted:          rope.New(),
		version:          clock.Global{},
		localClock:       clock.NewClock(replicaID),
		lamportClock:     clock.NewLamportClock(replicaID),
		undoMap:          undoMap{},
		history:          newHistory(),
		deferredReplicas: make(map[clock.ReplicaID]struct{}),
		lineEnding:       le,
	}
	if len(norm) > 0 {
		b.fragments = []fragment{{ins: baseTimestamp, len: len(norm), visible: true}}
		b.version.Observe(baseTimestamp.Local)
		b.localClock.Observe(baseTimestamp.Local)
		b.lamportClock.Observe(baseTimestamp.Lamport)
	}
	return b
}

// ReplicaID returns this replica's id.
func (b *Buffer) ReplicaID() clock.ReplicaID {
	return b.replicaID
}

// RemoteID returns the document id shared by all replicas.
func (b *Buffer) RemoteID() uint64 {
	return b.remoteID
}

// Version returns a copy of the current version vector.
func (b *Buffer) Version() clock.Global {
	return b.version.Clone()
}

// LineEnding returns the newline convention detected in the initial
// text.
func (b *Buffer) LineEnding() LineEnding {
	return b.lineEnding
}

// Len returns the byte length of the visible text.
func (b *Buffer) Len() int {
	return b.visible.Len()
}

// Text returns the visible text.
func (b *Buffer) Text() string {
	return b.visible.String()
}

// Rope returns the visible text as an immutable rope snapshot.
func (b *Buffer) Rope() rope.Rope {
	return b.visible
}

// DeletedText returns the tombstoned text, in document order.
func (b *Buffer) DeletedText() string {
	return b.deleted.String()
}

// TextForRange returns an iterator over the text pieces in the given
// visible range.
func (b *Buffer) TextForRange(r Range) *rope.RangeIterator {
	return b.visible.ChunksInRange(r.Start, r.End)
}

// CharsAt returns an iterator over the characters starting at the
// given point.
func (b *Buffer) CharsAt(p rope.Point) *rope.CharIterator {
	return b.visible.CharsAt(b.visible.PointToOffset(p))
}

// LineLen returns the byte length of the given row, excluding its
// newline.
func (b *Buffer) LineLen(row uint32) uint32 {
	return b.visible.LineLen(row)
}

// MaxPoint returns the point one past the final character.
func (b *Buffer) MaxPoint() rope.Point {
	return b.visible.MaxPoint()
}

// TextSummaryForRange computes aggregate statistics over a visible
// range without materializing the text.
func (b *Buffer) TextSummaryForRange(r Range) rope.TextSummary {
	return b.visible.TextSummaryForRange(r.Start, r.End)
}

// OffsetToPoint converts a visible byte offset to a point.
func (b *Buffer) OffsetToPoint(offset int) rope.Point {
	return b.visible.OffsetToPoint(offset)
}

// PointToOffset converts a point to a visible byte offset.
func (b *Buffer) PointToOffset(p rope.Point) int {
	return b.visible.PointToOffset(p)
}

// ClipOffset clamps a byte offset to the nearest character boundary.
func (b *Buffer) ClipOffset(offset int, bias rope.Bias) int {
	return b.visible.ClipOffset(offset, bias)
}

// ClipPoint clamps a point to the nearest grapheme cluster boundary.
func (b *Buffer) ClipPoint(p rope.Point, bias rope.Bias) rope.Point {
	return b.visible.ClipPoint(p, bias)
}

// Edit applies a batch of local edits at the current wall-clock time.
// See EditAt.
func (b *Buffer) Edit(edits []TextEdit) (*EditOperation, error) {
	return b.EditAt(edits, time.Now())
}

// EditAt applies a batch of local edits as one atomic operation.
// Ranges address the pre-edit visible text, must be sorted ascending,
// and must not overlap or touch. Offsets falling mid-character are
// clipped down to a character boundary. The returned operation is
// ready to broadcast to peers.
//
// When no transaction is open, the edit gets its own transaction,
// subject to group-interval merging with its neighbors.
func (b *Buffer) EditAt(edits []TextEdit, now time.Time) (*EditOperation, error) {
	if len(edits) == 0 {
		return nil, nil
	}
	clipped := make([]TextEdit, len(edits))
	for i, e := range edits {
		if !e.Range.IsValid() {
			return nil, fmt.Errorf("edit %d %s: %w", i, e.Range, ErrRangeInvalid)
		}
		start := b.visible.ClipOffset(e.Range.Start, rope.BiasLeft)
		end := b.visible.ClipOffset(e.Range.End, rope.BiasLeft)
		clipped[i] = TextEdit{Range: Range{Start: start, End: end}, NewText: e.NewText}
	}
	for i := 1; i < len(clipped); i++ {
		if clipped[i-1].Range.End >= clipped[i].Range.Start {
			return nil, fmt.Errorf("edits %d and %d: %w", i-1, i, ErrEditsOverlap)
		}
	}

	auto := b.history.transactionDepth == 0
	if auto {
		b.StartTransactionAt(now)
	}
	ts := InsertionTimestamp{Local: b.localClock.Tick(), Lamport: b.lamportClock.Tick()}
	op := b.applyLocalEdit(clipped, ts)
	b.version.Observe(ts.Local)
	b.history.recordEdit(ts.Local, now)
	b.history.redoStack = nil
	if auto {
		b.EndTransactionAt(now)
	}
	return op, nil
}

// EditPoints is Edit addressed by line/column positions.
func (b *Buffer) EditPoints(edits []PointEdit) (*EditOperation, error) {
	converted := make([]TextEdit, len(edits))
	for i, e := range edits {
		converted[i] = TextEdit{
			Range: Range{
				Start: b.visible.PointToOffset(e.Range.Start),
				End:   b.visible.PointToOffset(e.Range.End),
			},
			NewText: e.NewText,
		}
	}
	return b.Edit(converted)
}

// EditAnchors is Edit addressed by anchors, resolved against the
// current version and sorted into document order before applying.
func (b *Buffer) EditAnchors(edits []AnchorEdit) (*EditOperation, error) {
	converted := make([]TextEdit, len(edits))
	for i, e := range edits {
		converted[i] = TextEdit{
			Range:   Range{Start: e.Start.ToOffset(b), End: e.End.ToOffset(b)},
			NewText: e.NewText,
		}
	}
	for i := 1; i < len(converted); i++ {
		for j := i; j > 0 && converted[j].Range.Start < converted[j-1].Range.Start; j-- {
			converted[j], converted[j-1] = converted[j-1], converted[j]
		}
	}
	return b.Edit(converted)
}

// ApplyOps merges a batch of remote operations.
func (b *Buffer) ApplyOps(ops []Operation) {
	for _, op := range ops {
		b.ApplyOp(op)
	}
}

// ApplyOp merges one remote operation. Duplicate deliveries are
// no-ops. An operation whose causal dependencies have not arrived yet
// is deferred, along with all later operations from its replica, until
// the missing operations show up.
func (b *Buffer) ApplyOp(op Operation) {
	if b.isDuplicate(op) {
		return
	}
	if _, held := b.deferredReplicas[op.ReplicaID()]; held || !b.canApply(op) {
		b.deferredOps = append(b.deferredOps, op)
		b.deferredReplicas[op.ReplicaID()] = struct{}{}
	} else {
		b.applyOp(op)
	}
	b.flushDeferred()
}

// DeferredOpCount reports how many operations are awaiting causal
// dependencies.
func (b *Buffer) DeferredOpCount() int {
	return len(b.deferredOps)
}

func (b *Buffer) isDuplicate(op Operation) bool {
	switch op := op.(type) {
	case *EditOperation:
		return b.version.Observed(op.Timestamp.Local)
	case *UndoOperation:
		return b.version.Observed(op.ID)
	}
	return false
}

func (b *Buffer) canApply(op Operation) bool {
	switch op := op.(type) {
	case *EditOperation:
		return b.version.ObservedAll(op.Version)
	case *UndoOperation:
		if !b.version.ObservedAll(op.Version) {
			return false
		}
		for edit := range op.Counts {
			if !b.version.Observed(edit) {
				return false
			}
		}
		return true
	}
	return false
}

func (b *Buffer) applyOp(op Operation) {
	switch op := op.(type) {
	case *EditOperation:
		b.applyRemoteEdit(op)
	case *UndoOperation:
		b.applyUndo(op)
		b.version.Observe(op.ID)
	}
}

// flushDeferred retries deferred operations in Lamport order until no
// more become applicable.
func (b *Buffer) flushDeferred() {
	if len(b.deferredOps) == 0 {
		return
	}
	sortOperations(b.deferredOps)
	for {
		progressed := false
		var remaining []Operation
		for _, op := range b.deferredOps {
			switch {
			case b.isDuplicate(op):
				progressed = true
			case b.canApply(op):
				b.applyOp(op)
				progressed = true
			default:
				remaining = append(remaining, op)
			}
		}
		b.deferredOps = remaining
		if !progressed || len(b.deferredOps) == 0 {
			break
		}
	}
	b.deferredReplicas = make(map[clock.ReplicaID]struct{}, len(b.deferredOps))
	for _, op := range b.deferredOps {
		b.deferredReplicas[op.ReplicaID()] = struct{}{}
	}
}

// StartTransaction opens a transaction at the current time.
func (b *Buffer) StartTransaction() (TransactionID, bool) {
	return b.StartTransactionAt(time.Now())
}

// StartTransactionAt opens a transaction. Nested calls return false;
// their edits land in the outermost transaction.
func (b *Buffer) StartTransactionAt(now time.Time) (TransactionID, bool) {
	return b.history.start(now, b.version)
}

// EndTransaction closes the transaction at the current time.
func (b *Buffer) EndTransaction() (TransactionID, bool) {
	return b.EndTransactionAt(time.Now())
}

// EndTransactionAt closes the innermost transaction. A transaction
// with no edits is discarded and reported as false, as is an
// unbalanced call with no transaction open.
func (b *Buffer) EndTransactionAt(now time.Time) (TransactionID, bool) {
	return b.history.end(now)
}

// FinalizeLastTransaction seals the newest transaction against
// group-interval merging with later ones.
func (b *Buffer) FinalizeLastTransaction() {
	b.history.finalize()
}

// GroupUntilTransaction merges every transaction pushed after id back
// into id's undo unit.
func (b *Buffer) GroupUntilTransaction(id TransactionID) {
	b.history.groupUntil(id)
}

// SetGroupInterval changes the automatic grouping window.
func (b *Buffer) SetGroupInterval(d time.Duration) {
	b.history.groupInterval = d
}

// GroupInterval returns the automatic grouping window.
func (b *Buffer) GroupInterval() time.Duration {
	return b.history.groupInterval
}

// Undo toggles the newest applied transaction to undone, returning the
// operation to broadcast. Returns false if there is nothing to undo.
func (b *Buffer) Undo() (*UndoOperation, bool) {
	tx, ok := b.history.popUndo()
	if !ok {
		return nil, false
	}
	op := b.undoOrRedo(tx)
	b.history.redoStack = append(b.history.redoStack, tx)
	return op, true
}

// Redo toggles the newest undone transaction back to applied.
func (b *Buffer) Redo() (*UndoOperation, bool) {
	tx, ok := b.history.popRedo()
	if !ok {
		return nil, false
	}
	op := b.undoOrRedo(tx)
	b.history.undoStack = append(b.history.undoStack, tx)
	return op, true
}

// UndoOrRedoTransaction toggles a specific transaction between applied
// and undone without disturbing the stacks, supporting selective undo.
// Returns false if the transaction is unknown.
func (b *Buffer) UndoOrRedoTransaction(id TransactionID) (*UndoOperation, bool) {
	tx, ok := b.history.find(id)
	if !ok {
		return nil, false
	}
	return b.undoOrRedo(*tx), true
}

// LastTransactionID returns the id of the newest applied transaction.
func (b *Buffer) LastTransactionID() (TransactionID, bool) {
	if len(b.history.undoStack) == 0 {
		return 0, false
	}
	return b.history.undoStack[len(b.history.undoStack)-1].ID, true
}

// CheckInvariants audits internal consistency: fragment lengths must
// tile the visible and deleted ropes exactly, every insertion must be
// in the version vector, and runs of one insertion must stay ordered.
func (b *Buffer) CheckInvariants() error {
	visLen, delLen := 0, 0
	lastRun := make(map[clock.Local]int)
	for i, f := range b.fragments {
		if f.len <= 0 {
			return fmt.Errorf("fragment %d has length %d", i, f.len)
		}
		if !b.version.Observed(f.ins.Local) {
			return fmt.Errorf("fragment %d insertion %s not in version %s", i, f.ins.Local, b.version)
		}
		if prev, seen := lastRun[f.ins.Local]; seen && f.insOffset < prev {
			return fmt.Errorf("fragment %d of insertion %s out of order", i, f.ins.Local)
		}
		lastRun[f.ins.Local] = f.insOffset + f.len
		visLen += f.visLen()
		delLen += f.delLen()
	}
	if visLen != b.visible.Len() {
		return fmt.Errorf("fragments cover %d visible bytes, rope has %d", visLen, b.visible.Len())
	}
	if delLen != b.deleted.Len() {
		return fmt.Errorf("fragments cover %d deleted bytes, rope has %d", delLen, b.deleted.Len())
	}
	return nil
}
