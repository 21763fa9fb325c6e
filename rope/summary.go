package rope

import (
	"fmt"
	"unicode/utf8"
)

// Point represents a line and column position.
// Both Line and Column are 0-indexed; Column is measured in bytes from
// the start of the line.
type Point struct {
	Line   uint32
	Column uint32
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line != other.Line {
		if p.Line < other.Line {
			return -1
		}
		return 1
	}
	if p.Column != other.Column {
		if p.Column < other.Column {
			return -1
		}
		return 1
	}
	return 0
}

// Add treats other as a relative extent and returns the point advanced
// by it: if other spans lines, the column restarts at other's column.
func (p Point) Add(other Point) Point {
	if other.Line == 0 {
		return Point{Line: p.Line, Column: p.Column + other.Column}
	}
	return Point{Line: p.Line + other.Line, Column: other.Column}
}

// Sub returns the extent from other to p. Requires other <= p.
func (p Point) Sub(other Point) Point {
	if p.Compare(other) < 0 {
		panic(fmt.Sprintf("rope: Point.Sub underflow: %v - %v", p, other))
	}
	if p.Line == other.Line {
		return Point{Line: 0, Column: p.Column - other.Column}
	}
	return Point{Line: p.Line - other.Line, Column: p.Column}
}

// IsZero returns true if this is the zero point (0:0).
func (p Point) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

// PointUTF16 represents a line and column position where the column is
// measured in UTF-16 code units.
type PointUTF16 struct {
	Line   uint32
	Column uint32
}

// String returns a human-readable representation of the point.
func (p PointUTF16) String() string {
	return fmt.Sprintf("(%d:%d utf16)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p PointUTF16) Compare(other PointUTF16) int {
	if p.Line != other.Line {
		if p.Line < other.Line {
			return -1
		}
		return 1
	}
	if p.Column != other.Column {
		if p.Column < other.Column {
			return -1
		}
		return 1
	}
	return 0
}

// OffsetUTF16 is a document position measured in UTF-16 code units.
type OffsetUTF16 int

// Bias selects which side a position sticks to when it must be moved
// onto a valid boundary, or which neighbor an anchor stays glued to.
type Bias uint8

const (
	// BiasLeft rounds down / sticks to the preceding character.
	BiasLeft Bias = iota
	// BiasRight rounds up / sticks to the following character.
	BiasRight
)

// String returns "left" or "right".
func (b Bias) String() string {
	if b == BiasRight {
		return "right"
	}
	return "left"
}

// Invert returns the opposite bias.
func (b Bias) Invert() Bias {
	if b == BiasRight {
		return BiasLeft
	}
	return BiasRight
}

// TextSummary aggregates statistics over a span of text. Summaries are
// composable: Summarize(a).Add(Summarize(b)) equals Summarize(a + b),
// which lets the rope cache them at every tree node.
type TextSummary struct {
	Bytes      int
	Chars      int
	UTF16Units int

	// Lines is the line/column extent: Line counts newlines, Column is
	// the byte length of the final line.
	Lines Point

	FirstLineChars     uint32
	LastLineChars      uint32
	LastLineUTF16Units uint32

	// LongestRow is the row with the most characters; LongestRowChars
	// is its character count.
	LongestRow      uint32
	LongestRowChars uint32
}

// Summarize computes the summary of a string in a single scan.
func Summarize(text string) TextSummary {
	s := TextSummary{Bytes: len(text)}
	for _, r := range text {
		s.Chars++
		units := utf16Len(r)
		s.UTF16Units += units
		if r == '\n' {
			s.Lines.Line++
			s.Lines.Column = 0
			s.LastLineChars = 0
			s.LastLineUTF16Units = 0
		} else {
			s.Lines.Column += uint32(utf8.RuneLen(r))
			s.LastLineChars++
			s.LastLineUTF16Units += uint32(units)
		}
		if s.Lines.Line == 0 {
			s.FirstLineChars = s.LastLineChars
		}
		if s.LastLineChars > s.LongestRowChars {
			s.LongestRow = s.Lines.Line
			s.LongestRowChars = s.LastLineChars
		}
	}
	return s
}

// Add returns the summary of this span followed by other.
func (s TextSummary) Add(other TextSummary) TextSummary {
	joined := s.LastLineChars + other.FirstLineChars
	if joined > s.LongestRowChars {
		s.LongestRow = s.Lines.Line
		s.LongestRowChars = joined
	}
	if other.LongestRowChars > s.LongestRowChars {
		s.LongestRow = s.Lines.Line + other.LongestRow
		s.LongestRowChars = other.LongestRowChars
	}

	if s.Lines.Line == 0 {
		s.FirstLineChars += other.FirstLineChars
	}
	if other.Lines.Line == 0 {
		s.LastLineChars += other.FirstLineChars
		s.LastLineUTF16Units += other.LastLineUTF16Units
	} else {
		s.LastLineChars = other.LastLineChars
		s.LastLineUTF16Units = other.LastLineUTF16Units
	}

	s.Bytes += other.Bytes
	s.Chars += other.Chars
	s.UTF16Units += other.UTF16Units
	s.Lines = s.Lines.Add(other.Lines)
	return s
}

// utf16Len returns the number of UTF-16 code units needed for r.
func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
