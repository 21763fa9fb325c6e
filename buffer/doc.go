// Package buffer implements a replicated text document.
//
// Each Buffer is one replica. Local edits return operations that can be
// sent to peers in any order; ApplyOp merges them, deferring operations
// whose causal dependencies have not arrived. All replicas that receive
// the same set of operations converge to identical text.
//
// The document is stored as a list of fragments, one per contiguous run
// of an insertion, in document order. Deleted runs remain in the list
// as invisible tombstones so that concurrent operations addressing them
// can still be located. The visible text and the tombstoned text each
// live in an immutable rope, rebuilt incrementally as fragments change.
//
// On top of the replication core the package provides stable anchors,
// grouped undo history with transactions, version-to-version diffing,
// and reconstruction of past states.
package buffer
