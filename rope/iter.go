package rope

import "unicode/utf8"

// chunkFrame tracks one level of tree traversal for chunk iteration.
type chunkFrame struct {
	node     *node
	childIdx int
	chunkIdx int
	offset   int // absolute byte offset of the start of this node
}

// ChunkIterator walks the chunks of a rope in document order.
type ChunkIterator struct {
	rope       Rope
	stack      []chunkFrame
	started    bool
	chunk      Chunk
	chunkStart int
}

// Chunks returns an iterator over all chunks in the rope.
func (r Rope) Chunks() *ChunkIterator {
	return &ChunkIterator{rope: r, stack: make([]chunkFrame, 0, 8)}
}

// Next advances to the next chunk, returning false when exhausted.
func (it *ChunkIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.rope.root == nil {
			return false
		}
		it.stack = append(it.stack, chunkFrame{node: it.rope.root})
		return it.findNext()
	}
	if len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		if frame.node.isLeaf() {
			frame.chunkIdx++
		}
	}
	return it.findNext()
}

func (it *ChunkIterator) findNext() bool {
	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		n := frame.node

		if n.isLeaf() {
			if frame.chunkIdx < len(n.chunks) {
				start := frame.offset
				for i := 0; i < frame.chunkIdx; i++ {
					start += n.chunks[i].Len()
				}
				it.chunk = n.chunks[frame.chunkIdx]
				it.chunkStart = start
				return true
			}
			it.pop()
			continue
		}

		if frame.childIdx < len(n.children) {
			childOffset := frame.offset
			for i := 0; i < frame.childIdx; i++ {
				childOffset += n.childSummaries[i].Bytes
			}
			it.stack = append(it.stack, chunkFrame{
				node:   n.children[frame.childIdx],
				offset: childOffset,
			})
			continue
		}
		it.pop()
	}
	return false
}

func (it *ChunkIterator) pop() {
	it.stack = it.stack[:len(it.stack)-1]
	if len(it.stack) > 0 {
		it.stack[len(it.stack)-1].childIdx++
	}
}

// Chunk returns the current chunk.
func (it *ChunkIterator) Chunk() Chunk {
	return it.chunk
}

// Offset returns the byte offset of the current chunk's start.
func (it *ChunkIterator) Offset() int {
	return it.chunkStart
}

// RangeIterator yields successive string pieces covering a byte range,
// without allocating the joined text.
type RangeIterator struct {
	chunks *ChunkIterator
	start  int
	end    int
	piece  string
}

// ChunksInRange returns an iterator over the text pieces in
// [start, end), clamped to the rope bounds.
func (r Rope) ChunksInRange(start, end int) *RangeIterator {
	if start < 0 {
		start = 0
	}
	if end > r.Len() {
		end = r.Len()
	}
	return &RangeIterator{chunks: r.Chunks(), start: start, end: end}
}

// Next advances to the next piece, returning false when exhausted.
func (it *RangeIterator) Next() bool {
	for it.start < it.end && it.chunks.Next() {
		c := it.chunks.Chunk()
		chunkStart := it.chunks.Offset()
		chunkEnd := chunkStart + c.Len()
		if chunkEnd <= it.start {
			continue
		}
		lo, hi := 0, c.Len()
		if it.start > chunkStart {
			lo = it.start - chunkStart
		}
		if it.end < chunkEnd {
			hi = it.end - chunkStart
		}
		it.piece = c.String()[lo:hi]
		it.start = chunkStart + hi
		return len(it.piece) > 0
	}
	return false
}

// Text returns the current piece.
func (it *RangeIterator) Text() string {
	return it.piece
}

// CharIterator yields the characters of a rope from a starting offset.
// It is forward-only and safe to drop before exhaustion.
type CharIterator struct {
	pieces *RangeIterator
	piece  string
	idx    int
}

// CharsAt returns an iterator over the characters starting at the
// given byte offset, which must lie on a character boundary.
func (r Rope) CharsAt(offset int) *CharIterator {
	return &CharIterator{pieces: r.ChunksInRange(offset, r.Len())}
}

// Next returns the next character, or ok == false when exhausted.
func (it *CharIterator) Next() (rune, bool) {
	for it.idx >= len(it.piece) {
		if !it.pieces.Next() {
			return 0, false
		}
		it.piece = it.pieces.Text()
		it.idx = 0
	}
	ch, size := utf8.DecodeRuneInString(it.piece[it.idx:])
	it.idx += size
	return ch, true
}
