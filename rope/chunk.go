package rope

import (
	"fmt"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	// MaxChunkSize is the maximum byte length of a chunk. The bitset
	// metadata is 128 bits wide, one bit per byte.
	MaxChunkSize = 128

	// minChunkFill is the fill target below which neighboring chunks
	// are merged during rebalancing. The final chunk of a rope may be
	// shorter.
	minChunkFill = MaxChunkSize / 2
)

// ChunkSlice is a read-only view over a span of packed text: the text
// bytes plus four bitsets marking character starts, UTF-16 code-unit
// boundaries, newlines, and tabs. Position conversions are answered
// with popcounts over the bitsets instead of rescanning the text.
//
// Conversion methods treat out-of-range arguments as programming
// errors and panic; callers clip positions first using the Clip
// functions, which never panic.
type ChunkSlice struct {
	text       string
	chars      bitmap128
	charsUTF16 bitmap128
	newlines   bitmap128
	tabs       bitmap128
}

// Chunk is an owned, bounded text segment (at most MaxChunkSize bytes)
// with the same bit-packed metadata as ChunkSlice. Chunks are the leaf
// payload of the rope tree; once placed in a tree they are treated as
// immutable. PushStr and Append are only used while the rope is
// restructuring after an edit.
type Chunk struct {
	ChunkSlice
}

// NewChunk builds a chunk by scanning text once.
// Panics if text exceeds MaxChunkSize bytes.
func NewChunk(text string) Chunk {
	if len(text) > MaxChunkSize {
		panic(fmt.Sprintf("rope: chunk of %d bytes exceeds %d", len(text), MaxChunkSize))
	}
	var c Chunk
	c.text = text
	for i, r := range text {
		c.chars.set(i)
		c.charsUTF16.set(i)
		if utf16Len(r) == 2 {
			c.charsUTF16.set(i + 1)
		}
		switch r {
		case '\n':
			c.newlines.set(i)
		case '\t':
			c.tabs.set(i)
		}
	}
	return c
}

// PushStr appends text to the chunk, extending the bitsets in place.
// Panics if the result would exceed MaxChunkSize; the caller must
// split the chunk first.
func (c *Chunk) PushStr(text string) {
	if len(c.text)+len(text) > MaxChunkSize {
		panic(fmt.Sprintf("rope: PushStr overflows chunk: %d+%d bytes", len(c.text), len(text)))
	}
	c.Append(NewChunk(text).ChunkSlice)
}

// Append merges an already-packed slice onto the end of the chunk by
// OR-ing its bitsets at the shifted offset. Panics on overflow.
func (c *Chunk) Append(s ChunkSlice) {
	n := len(c.text)
	if n+len(s.text) > MaxChunkSize {
		panic(fmt.Sprintf("rope: Append overflows chunk: %d+%d bytes", n, len(s.text)))
	}
	c.chars = c.chars.or(s.chars.shiftLeft(n))
	c.charsUTF16 = c.charsUTF16.or(s.charsUTF16.shiftLeft(n))
	c.newlines = c.newlines.or(s.newlines.shiftLeft(n))
	c.tabs = c.tabs.or(s.tabs.shiftLeft(n))
	c.text += s.text
}

// Slice returns a zero-copy view of [start, end). Both bounds must lie
// on character boundaries; panics otherwise.
func (c Chunk) Slice(start, end int) ChunkSlice {
	return c.ChunkSlice.Slice(start, end)
}

// Split divides the chunk at a character boundary.
func (c Chunk) Split(at int) (Chunk, Chunk) {
	return Chunk{c.ChunkSlice.Slice(0, at)}, Chunk{c.ChunkSlice.Slice(at, len(c.text))}
}

// Slice returns a sub-view of [start, end). Both bounds must lie on
// character boundaries; panics otherwise.
func (s ChunkSlice) Slice(start, end int) ChunkSlice {
	if start < 0 || end > len(s.text) || start > end {
		panic(fmt.Sprintf("rope: slice bounds [%d:%d) out of range for %d bytes", start, end, len(s.text)))
	}
	if !s.isCharBoundary(start) || !s.isCharBoundary(end) {
		panic(fmt.Sprintf("rope: slice bounds [%d:%d) not on character boundaries", start, end))
	}
	n := end - start
	return ChunkSlice{
		text:       s.text[start:end],
		chars:      s.chars.shiftRight(start).maskLow(n),
		charsUTF16: s.charsUTF16.shiftRight(start).maskLow(n),
		newlines:   s.newlines.shiftRight(start).maskLow(n),
		tabs:       s.tabs.shiftRight(start).maskLow(n),
	}
}

// String returns the text of the slice.
func (s ChunkSlice) String() string { return s.text }

// Len returns the byte length of the slice.
func (s ChunkSlice) Len() int { return len(s.text) }

// IsEmpty returns true if the slice holds no text.
func (s ChunkSlice) IsEmpty() bool { return len(s.text) == 0 }

func (s ChunkSlice) isCharBoundary(i int) bool {
	return i == 0 || i == len(s.text) || s.chars.test(i)
}

// Summary computes the text summary of the slice from its bitsets.
func (s ChunkSlice) Summary() TextSummary {
	n := len(s.text)
	sum := TextSummary{
		Bytes:      n,
		Chars:      s.chars.count(),
		UTF16Units: s.charsUTF16.count(),
	}
	rows := s.newlines.count()
	sum.Lines.Line = uint32(rows)

	firstEnd := n
	lastStart := 0
	if rows > 0 {
		firstEnd = s.newlines.nth(0)
		lastStart = s.newlines.nth(rows-1) + 1
	}
	sum.Lines.Column = uint32(n - lastStart)
	sum.FirstLineChars = uint32(s.chars.countBelow(firstEnd))
	sum.LastLineChars = uint32(sum.Chars - s.chars.countBelow(lastStart))
	sum.LastLineUTF16Units = uint32(sum.UTF16Units - s.charsUTF16.countBelow(lastStart))
	sum.LongestRow, sum.LongestRowChars = s.LongestRow()
	return sum
}

// lineBounds returns the byte range [start, end) of the given row, not
// including its trailing newline.
func (s ChunkSlice) lineBounds(row uint32) (int, int) {
	start := 0
	if row > 0 {
		start = s.newlines.nth(int(row)-1) + 1
	}
	end := s.newlines.nth(int(row))
	if end < 0 {
		end = len(s.text)
	}
	return start, end
}

// LongestRow returns the row with the most characters and its count.
// Earlier rows win ties.
func (s ChunkSlice) LongestRow() (uint32, uint32) {
	rows := s.newlines.count()
	var bestRow, bestChars uint32
	for row := 0; row <= rows; row++ {
		start, end := s.lineBounds(uint32(row))
		chars := uint32(s.chars.countBelow(end) - s.chars.countBelow(start))
		if chars > bestChars {
			bestRow = uint32(row)
			bestChars = chars
		}
	}
	return bestRow, bestChars
}

// OffsetToPoint converts a byte offset to a line/column position.
func (s ChunkSlice) OffsetToPoint(offset int) Point {
	if offset < 0 || offset > len(s.text) {
		panic(fmt.Sprintf("rope: offset %d out of range for %d bytes", offset, len(s.text)))
	}
	row := s.newlines.countBelow(offset)
	start, _ := s.lineBounds(uint32(row))
	return Point{Line: uint32(row), Column: uint32(offset - start)}
}

// PointToOffset converts a line/column position to a byte offset.
// Panics if the line does not exist or the column is past its end.
func (s ChunkSlice) PointToOffset(p Point) int {
	if int(p.Line) > s.newlines.count() {
		panic(fmt.Sprintf("rope: line %d out of range", p.Line))
	}
	start, end := s.lineBounds(p.Line)
	offset := start + int(p.Column)
	if offset > end {
		panic(fmt.Sprintf("rope: column %d past end of line %d", p.Column, p.Line))
	}
	return offset
}

// OffsetToOffsetUTF16 converts a byte offset to a UTF-16 offset.
func (s ChunkSlice) OffsetToOffsetUTF16(offset int) OffsetUTF16 {
	if offset < 0 || offset > len(s.text) {
		panic(fmt.Sprintf("rope: offset %d out of range for %d bytes", offset, len(s.text)))
	}
	return OffsetUTF16(s.charsUTF16.countBelow(offset))
}

// OffsetUTF16ToOffset converts a UTF-16 offset to a byte offset. A
// position between the two units of a surrogate pair is clipped to the
// nearest character boundary per bias.
func (s ChunkSlice) OffsetUTF16ToOffset(offset OffsetUTF16, bias Bias) int {
	total := s.charsUTF16.count()
	if offset <= 0 {
		return 0
	}
	if int(offset) >= total {
		return len(s.text)
	}
	idx := s.charsUTF16.nth(int(offset))
	if s.chars.test(idx) {
		return idx
	}
	// Mid-surrogate: round to a character boundary.
	if bias == BiasLeft {
		return s.chars.prev(idx)
	}
	if next := s.chars.next(idx); next >= 0 {
		return next
	}
	return len(s.text)
}

// OffsetToPointUTF16 converts a byte offset to a line/UTF-16-column
// position.
func (s ChunkSlice) OffsetToPointUTF16(offset int) PointUTF16 {
	if offset < 0 || offset > len(s.text) {
		panic(fmt.Sprintf("rope: offset %d out of range for %d bytes", offset, len(s.text)))
	}
	row := s.newlines.countBelow(offset)
	start, _ := s.lineBounds(uint32(row))
	col := s.charsUTF16.countBelow(offset) - s.charsUTF16.countBelow(start)
	return PointUTF16{Line: uint32(row), Column: uint32(col)}
}

// PointUTF16ToOffset converts a line/UTF-16-column position to a byte
// offset, clipping a column that lands past the line end or inside a
// surrogate pair per bias. Panics if the line does not exist.
func (s ChunkSlice) PointUTF16ToOffset(p PointUTF16, bias Bias) int {
	if int(p.Line) > s.newlines.count() {
		panic(fmt.Sprintf("rope: line %d out of range", p.Line))
	}
	start, end := s.lineBounds(p.Line)
	startUnits := s.charsUTF16.countBelow(start)
	lineUnits := s.charsUTF16.countBelow(end) - startUnits
	col := int(p.Column)
	if col > lineUnits {
		col = lineUnits
	}
	offset := s.OffsetUTF16ToOffset(OffsetUTF16(startUnits+col), bias)
	if offset > end {
		offset = end
	}
	return offset
}

// ClipOffset clamps a byte offset to the nearest character boundary.
func (s ChunkSlice) ClipOffset(offset int, bias Bias) int {
	if offset <= 0 {
		return 0
	}
	if offset >= len(s.text) {
		return len(s.text)
	}
	if s.chars.test(offset) {
		return offset
	}
	if bias == BiasLeft {
		return s.chars.prev(offset)
	}
	if next := s.chars.next(offset); next >= 0 {
		return next
	}
	return len(s.text)
}

// ClipOffsetUTF16 clamps a UTF-16 offset so it does not split a
// surrogate pair.
func (s ChunkSlice) ClipOffsetUTF16(offset OffsetUTF16, bias Bias) OffsetUTF16 {
	total := s.charsUTF16.count()
	if offset <= 0 {
		return 0
	}
	if int(offset) >= total {
		return OffsetUTF16(total)
	}
	idx := s.charsUTF16.nth(int(offset))
	if s.chars.test(idx) {
		return offset
	}
	if bias == BiasLeft {
		return offset - 1
	}
	return offset + 1
}

// ClipPoint clamps a line/column position to the nearest grapheme
// cluster boundary, so positions never land between the code points of
// an emoji or combining sequence.
func (s ChunkSlice) ClipPoint(p Point, bias Bias) Point {
	rows := uint32(s.newlines.count())
	if p.Line > rows {
		start, end := s.lineBounds(rows)
		return Point{Line: rows, Column: uint32(end - start)}
	}
	start, end := s.lineBounds(p.Line)
	line := s.text[start:end]
	col := int(p.Column)
	if col > len(line) {
		col = len(line)
	}
	return Point{Line: p.Line, Column: uint32(clipGrapheme(line, col, bias))}
}

// ClipPointUTF16 clamps a line/UTF-16-column position to a valid
// character boundary.
func (s ChunkSlice) ClipPointUTF16(p PointUTF16, bias Bias) PointUTF16 {
	rows := uint32(s.newlines.count())
	if p.Line > rows {
		start, end := s.lineBounds(rows)
		units := s.charsUTF16.countBelow(end) - s.charsUTF16.countBelow(start)
		return PointUTF16{Line: rows, Column: uint32(units)}
	}
	start, end := s.lineBounds(p.Line)
	startUnits := s.charsUTF16.countBelow(start)
	lineUnits := s.charsUTF16.countBelow(end) - startUnits
	col := int(p.Column)
	if col > lineUnits {
		col = lineUnits
	}
	clipped := s.ClipOffsetUTF16(OffsetUTF16(startUnits+col), bias)
	return PointUTF16{Line: p.Line, Column: uint32(int(clipped) - startUnits)}
}

// clipGrapheme rounds col to the nearest grapheme cluster boundary in
// line, per bias.
func clipGrapheme(line string, col int, bias Bias) int {
	if col <= 0 {
		return 0
	}
	if col >= len(line) {
		return len(line)
	}
	pos := 0
	rest := line
	state := -1
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		next := pos + len(cluster)
		if col == pos {
			return pos
		}
		if col < next {
			if bias == BiasLeft {
				return pos
			}
			return next
		}
		pos = next
	}
	return len(line)
}

// TabPosition reports one tab character within a chunk.
type TabPosition struct {
	Offset     int // byte offset of the tab
	CharOffset int // character index of the tab
}

// TabIterator lazily enumerates tab positions. Obtain a fresh iterator
// for each traversal via Tabs.
type TabIterator struct {
	slice ChunkSlice
	pos   int
}

// Tabs returns an iterator over the tab characters in the slice.
func (s ChunkSlice) Tabs() *TabIterator {
	return &TabIterator{slice: s}
}

// Next returns the next tab position, or ok == false when exhausted.
func (it *TabIterator) Next() (TabPosition, bool) {
	i := it.slice.tabs.next(it.pos)
	if i < 0 || i >= len(it.slice.text) {
		return TabPosition{}, false
	}
	it.pos = i + 1
	return TabPosition{Offset: i, CharOffset: it.slice.chars.countBelow(i)}, true
}

// splitIntoChunks divides text into chunks of at most MaxChunkSize
// bytes, cutting only at character boundaries. The final two chunks
// are balanced so no chunk except a lone trailing one falls below the
// fill target.
func splitIntoChunks(text string) []Chunk {
	if len(text) == 0 {
		return nil
	}
	var chunks []Chunk
	for len(text) > MaxChunkSize {
		cut := MaxChunkSize
		if len(text)-MaxChunkSize < minChunkFill && len(text) > MaxChunkSize {
			// Balance the final two chunks instead of leaving a runt.
			cut = len(text) / 2
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, NewChunk(text[:cut]))
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, NewChunk(text))
	}
	return chunks
}
