package buffer

import (
	"math/rand"
	"strings"

	"github.com/dshills/cotext/rope"
)

// Helpers for randomized convergence tests. They live in the package
// proper so simulation tooling can drive the same workloads the tests
// use.

const randomAlphabet = "abcdefghijklmnop \nqrstuvwxyz"

// RandomByteRange picks a character-aligned range of the visible text.
func (b *Buffer) RandomByteRange(rng *rand.Rand) Range {
	n := b.visible.Len()
	start := b.visible.ClipOffset(rng.Intn(n+1), rope.BiasLeft)
	end := b.visible.ClipOffset(start+rng.Intn(n-start+1), rope.BiasLeft)
	return Range{Start: start, End: end}
}

// RandomlyEdit applies count random edits and returns the operations
// they produced.
func (b *Buffer) RandomlyEdit(rng *rand.Rand, count int) []Operation {
	ops := make([]Operation, 0, count)
	for i := 0; i < count; i++ {
		r := b.RandomByteRange(rng)
		var text strings.Builder
		for j := rng.Intn(8); j > 0; j-- {
			text.WriteByte(randomAlphabet[rng.Intn(len(randomAlphabet))])
		}
		if r.IsEmpty() && text.Len() == 0 {
			continue
		}
		op, err := b.Edit([]TextEdit{{Range: r, NewText: text.String()}})
		if err != nil {
			panic(err)
		}
		ops = append(ops, op)
	}
	return ops
}

// RandomlyUndoRedo toggles up to count random transactions and returns
// the operations produced.
func (b *Buffer) RandomlyUndoRedo(rng *rand.Rand, count int) []Operation {
	var ops []Operation
	for i := 0; i < count; i++ {
		stack := b.history.undoStack
		if rng.Intn(2) == 1 && len(b.history.redoStack) > 0 {
			stack = b.history.redoStack
		}
		if len(stack) == 0 {
			continue
		}
		tx := stack[rng.Intn(len(stack))]
		if op, ok := b.UndoOrRedoTransaction(tx.ID); ok {
			ops = append(ops, op)
		}
	}
	return ops
}
