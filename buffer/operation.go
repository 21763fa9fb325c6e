package buffer

import (
	"sort"

	"github.com/dshills/cotext/clock"
)

// Operation is one atomic replicated record: either an edit or an undo
// toggle. Operations carry the causal version they were generated at;
// a replica applies an operation only once that version has been seen.
type Operation interface {
	// ReplicaID identifies the replica that generated the operation.
	ReplicaID() clock.ReplicaID

	lamport() clock.Lamport
}

// EditOperation is one atomic batch of (range, new-text) edits by one
// replica. Ranges are expressed in full offsets of the generating
// replica's version: they count deleted text as well as visible text,
// so receivers can locate them regardless of concurrent deletions.
type EditOperation struct {
	Timestamp InsertionTimestamp
	Version   clock.Global
	Ranges    []Range
	NewTexts  []string
}

// ReplicaID returns the generating replica.
func (op *EditOperation) ReplicaID() clock.ReplicaID {
	return op.Timestamp.Local.ReplicaID
}

func (op *EditOperation) lamport() clock.Lamport {
	return op.Timestamp.Lamport
}

// EditID returns the edit's per-replica sequence id.
func (op *EditOperation) EditID() clock.Local {
	return op.Timestamp.Local
}

// UndoOperation toggles edits between applied and undone. Counts maps
// each affected edit id to its new undo count; an odd count means
// undone. Undo records merge through the same causal machinery as
// edits, so concurrent undos converge.
type UndoOperation struct {
	ID      clock.Local
	Lamport clock.Lamport
	Version clock.Global
	Counts  map[clock.Local]uint32
}

// ReplicaID returns the generating replica.
func (op *UndoOperation) ReplicaID() clock.ReplicaID {
	return op.ID.ReplicaID
}

func (op *UndoOperation) lamport() clock.Lamport {
	return op.Lamport
}

// sortOperations orders operations by Lamport timestamp, the order in
// which deferred operations are retried.
func sortOperations(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].lamport().Compare(ops[j].lamport()) < 0
	})
}
