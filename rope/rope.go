package rope

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rope is a persistent sequence of text chunks arranged in a B+ tree.
// The zero value is an empty rope. Ropes are immutable values: every
// operation returns a new rope sharing unchanged subtrees with its
// inputs, so holding old snapshots is cheap.
type Rope struct {
	root *node
}

// New returns an empty rope.
func New() Rope {
	return Rope{root: newLeaf()}
}

// FromString builds a rope from a string.
func FromString(text string) Rope {
	chunks := splitIntoChunks(text)
	if len(chunks) == 0 {
		return New()
	}
	if len(chunks) <= maxChunksPerLeaf {
		return Rope{root: newLeafWithChunks(chunks)}
	}
	var leaves []*node
	for i := 0; i < len(chunks); i += maxChunksPerLeaf {
		end := i + maxChunksPerLeaf
		if end > len(chunks) {
			end = len(chunks)
		}
		leaves = append(leaves, newLeafWithChunks(chunks[i:end]))
	}
	return Rope{root: buildFromNodes(leaves)}
}

// Len returns the byte length of the rope.
func (r Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.len()
}

// IsEmpty returns true if the rope holds no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// Summary returns the text summary of the whole rope.
func (r Rope) Summary() TextSummary {
	if r.root == nil {
		return TextSummary{}
	}
	return r.root.summary
}

// String returns the full text.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(r.Len())
	r.root.appendTo(&sb)
	return sb.String()
}

// TextInRange returns the text in the byte range [start, end), clamped
// to the rope bounds.
func (r Rope) TextInRange(start, end int) string {
	if r.root == nil || start >= end {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > r.Len() {
		end = r.Len()
	}
	var sb strings.Builder
	sb.Grow(end - start)
	r.root.appendRangeTo(&sb, start, end)
	return sb.String()
}

// Concat returns the rope holding r followed by other.
func (r Rope) Concat(other Rope) Rope {
	return Rope{root: concat(r.root, other.root)}
}

// SplitAt divides the rope at a byte offset lying on a character
// boundary.
func (r Rope) SplitAt(offset int) (Rope, Rope) {
	if r.root == nil {
		return New(), New()
	}
	left, right := r.root.split(offset)
	return Rope{root: left}, Rope{root: right}
}

// Slice returns the rope covering [start, end). Bounds must lie on
// character boundaries.
func (r Rope) Slice(start, end int) Rope {
	if start >= end {
		return New()
	}
	_, rest := r.SplitAt(start)
	mid, _ := rest.SplitAt(end - start)
	return mid
}

// TextSummaryForRange computes the summary of the byte range
// [start, end) without materializing the text. Bounds must lie on
// character boundaries.
func (r Rope) TextSummaryForRange(start, end int) TextSummary {
	if r.root == nil || start >= end {
		return TextSummary{}
	}
	if start < 0 {
		start = 0
	}
	if end > r.Len() {
		end = r.Len()
	}
	return r.root.summaryOfRange(start, end)
}

// MaxPoint returns the point one past the final character.
func (r Rope) MaxPoint() Point {
	return r.Summary().Lines
}

// LineCount returns the number of lines (newline count + 1).
func (r Rope) LineCount() uint32 {
	return r.Summary().Lines.Line + 1
}

// LineLen returns the byte length of the given row, excluding its
// trailing newline. Panics if the row does not exist.
func (r Rope) LineLen(row uint32) uint32 {
	max := r.MaxPoint()
	if row > max.Line {
		panic(fmt.Sprintf("rope: row %d out of range (%d lines)", row, max.Line+1))
	}
	start := r.PointToOffset(Point{Line: row})
	if row == max.Line {
		return uint32(r.Len() - start)
	}
	end := r.PointToOffset(Point{Line: row + 1})
	return uint32(end - start - 1)
}

// seekOffset locates the chunk containing a byte offset. It returns
// the chunk, the offset of the chunk start, and the summary of all
// text before the chunk.
func (r Rope) seekOffset(offset int) (Chunk, int, TextSummary) {
	if r.root == nil || offset < 0 || offset > r.Len() {
		panic(fmt.Sprintf("rope: offset %d out of range for %d bytes", offset, r.Len()))
	}
	var prefix TextSummary
	n := r.root
	for !n.isLeaf() {
		descended := false
		for i, child := range n.children {
			childEnd := prefix.Bytes + n.childSummaries[i].Bytes
			if offset < childEnd || (offset == childEnd && i == len(n.children)-1) {
				n = child
				descended = true
				break
			}
			prefix = prefix.Add(n.childSummaries[i])
		}
		if !descended {
			n = n.children[len(n.children)-1]
		}
	}
	for i, c := range n.chunks {
		chunkEnd := prefix.Bytes + c.Len()
		if offset < chunkEnd || i == len(n.chunks)-1 {
			return c, prefix.Bytes, prefix
		}
		prefix = prefix.Add(c.Summary())
	}
	return Chunk{}, prefix.Bytes, prefix
}

// seekPoint locates the chunk containing a point, returning the chunk,
// the byte offset of the chunk start, and the prefix summary.
func (r Rope) seekPoint(p Point) (Chunk, int, TextSummary) {
	if r.root == nil {
		panic("rope: seek on nil root")
	}
	var prefix TextSummary
	n := r.root
	for !n.isLeaf() {
		for i, child := range n.children {
			end := prefix.Lines.Add(n.childSummaries[i].Lines)
			// Boundary points resolve in the earlier child; both
			// children map them to the same byte offset.
			if p.Compare(end) <= 0 || i == len(n.children)-1 {
				n = child
				break
			}
			prefix = prefix.Add(n.childSummaries[i])
		}
	}
	for i, c := range n.chunks {
		sum := c.Summary()
		end := prefix.Lines.Add(sum.Lines)
		if p.Compare(end) <= 0 || i == len(n.chunks)-1 {
			return c, prefix.Bytes, prefix
		}
		prefix = prefix.Add(sum)
	}
	return Chunk{}, prefix.Bytes, prefix
}

// seekOffsetUTF16 locates the chunk containing a UTF-16 offset.
func (r Rope) seekOffsetUTF16(offset OffsetUTF16) (Chunk, int, TextSummary) {
	if r.root == nil {
		panic("rope: seek on nil root")
	}
	var prefix TextSummary
	n := r.root
	for !n.isLeaf() {
		descended := false
		for i, child := range n.children {
			end := OffsetUTF16(prefix.UTF16Units + n.childSummaries[i].UTF16Units)
			if offset <= end || i == len(n.children)-1 {
				n = child
				descended = true
				break
			}
			prefix = prefix.Add(n.childSummaries[i])
		}
		if !descended {
			n = n.children[len(n.children)-1]
		}
	}
	for i, c := range n.chunks {
		sum := c.Summary()
		end := OffsetUTF16(prefix.UTF16Units + sum.UTF16Units)
		if offset <= end || i == len(n.chunks)-1 {
			return c, prefix.Bytes, prefix
		}
		prefix = prefix.Add(sum)
	}
	return Chunk{}, prefix.Bytes, prefix
}

// OffsetToPoint converts a byte offset to a line/column position.
func (r Rope) OffsetToPoint(offset int) Point {
	if r.Len() == 0 {
		return Point{}
	}
	c, start, prefix := r.seekOffset(offset)
	return prefix.Lines.Add(c.OffsetToPoint(offset - start))
}

// OffsetToPointUTF16 converts a byte offset to a line/UTF-16-column
// position.
func (r Rope) OffsetToPointUTF16(offset int) PointUTF16 {
	if r.Len() == 0 {
		return PointUTF16{}
	}
	c, start, prefix := r.seekOffset(offset)
	rel := c.OffsetToPointUTF16(offset - start)
	base := PointUTF16{Line: prefix.Lines.Line, Column: prefix.LastLineUTF16Units}
	if rel.Line == 0 {
		return PointUTF16{Line: base.Line, Column: base.Column + rel.Column}
	}
	return PointUTF16{Line: base.Line + rel.Line, Column: rel.Column}
}

// OffsetToOffsetUTF16 converts a byte offset to a UTF-16 offset.
func (r Rope) OffsetToOffsetUTF16(offset int) OffsetUTF16 {
	if r.Len() == 0 {
		return 0
	}
	c, start, prefix := r.seekOffset(offset)
	return OffsetUTF16(prefix.UTF16Units) + c.OffsetToOffsetUTF16(offset-start)
}

// OffsetUTF16ToOffset converts a UTF-16 offset to a byte offset,
// clipping mid-surrogate positions per bias.
func (r Rope) OffsetUTF16ToOffset(offset OffsetUTF16, bias Bias) int {
	if r.Len() == 0 {
		return 0
	}
	c, start, prefix := r.seekOffsetUTF16(offset)
	return start + c.OffsetUTF16ToOffset(offset-OffsetUTF16(prefix.UTF16Units), bias)
}

// PointToOffset converts a line/column position to a byte offset.
// Panics if the position does not exist.
func (r Rope) PointToOffset(p Point) int {
	if r.Len() == 0 {
		if p.IsZero() {
			return 0
		}
		panic(fmt.Sprintf("rope: point %v out of range of empty rope", p))
	}
	c, start, prefix := r.seekPoint(p)
	rel := Point{Line: p.Line - prefix.Lines.Line, Column: p.Column}
	if rel.Line == 0 {
		rel.Column = p.Column - prefix.Lines.Column
	}
	return start + c.PointToOffset(rel)
}

// PointUTF16ToOffset converts a line/UTF-16-column position to a byte
// offset, clipping per bias when the column lands past the line end or
// inside a surrogate pair.
func (r Rope) PointUTF16ToOffset(p PointUTF16, bias Bias) int {
	if r.Len() == 0 {
		return 0
	}
	lineStart := r.PointToOffset(Point{Line: p.Line})
	lineEnd := lineStart + int(r.LineLen(p.Line))

	// Walk forward from the line start, counting UTF-16 units. The
	// line may span several chunks, so iterate characters directly.
	target := int(p.Column)
	offset := lineStart
	units := 0
	iter := r.CharsAt(lineStart)
	for units < target && offset < lineEnd {
		ch, ok := iter.Next()
		if !ok {
			break
		}
		step := utf16Len(ch)
		if units+step > target {
			// Landing between the units of a surrogate pair.
			if bias == BiasRight {
				offset += utf8.RuneLen(ch)
			}
			return offset
		}
		units += step
		offset += utf8.RuneLen(ch)
	}
	return offset
}

// ClipOffset clamps a byte offset to the nearest character boundary.
func (r Rope) ClipOffset(offset int, bias Bias) int {
	if offset <= 0 {
		return 0
	}
	if offset >= r.Len() {
		return r.Len()
	}
	c, start, _ := r.seekOffset(offset)
	return start + c.ClipOffset(offset-start, bias)
}

// ClipOffsetUTF16 clamps a UTF-16 offset so it does not split a
// surrogate pair.
func (r Rope) ClipOffsetUTF16(offset OffsetUTF16, bias Bias) OffsetUTF16 {
	total := OffsetUTF16(r.Summary().UTF16Units)
	if offset <= 0 {
		return 0
	}
	if offset >= total {
		return total
	}
	c, _, prefix := r.seekOffsetUTF16(offset)
	rel := c.ClipOffsetUTF16(offset-OffsetUTF16(prefix.UTF16Units), bias)
	return OffsetUTF16(prefix.UTF16Units) + rel
}

// ClipPoint clamps a line/column position to the nearest grapheme
// cluster boundary.
func (r Rope) ClipPoint(p Point, bias Bias) Point {
	max := r.MaxPoint()
	if p.Line > max.Line {
		return max
	}
	lineLen := r.LineLen(p.Line)
	col := p.Column
	if col > lineLen {
		col = lineLen
	}
	start := r.PointToOffset(Point{Line: p.Line})
	line := r.TextInRange(start, start+int(lineLen))
	return Point{Line: p.Line, Column: uint32(clipGrapheme(line, int(col), bias))}
}

// ClipPointUTF16 clamps a line/UTF-16-column position to a valid
// character boundary.
func (r Rope) ClipPointUTF16(p PointUTF16, bias Bias) PointUTF16 {
	maxLine := r.MaxPoint().Line
	if p.Line > maxLine {
		end := r.Len()
		return r.OffsetToPointUTF16(end)
	}
	offset := r.PointUTF16ToOffset(p, bias)
	return r.OffsetToPointUTF16(offset)
}
