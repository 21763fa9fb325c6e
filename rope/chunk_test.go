package rope

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBitmap128(t *testing.T) {
	var b bitmap128
	for _, i := range []int{0, 1, 63, 64, 100, 127} {
		b.set(i)
	}
	if b.count() != 6 {
		t.Errorf("count() = %d, want 6", b.count())
	}
	if !b.test(63) || !b.test(64) {
		t.Error("bits 63 and 64 should be set")
	}
	if b.test(62) {
		t.Error("bit 62 should be clear")
	}
	if got := b.countBelow(64); got != 3 {
		t.Errorf("countBelow(64) = %d, want 3", got)
	}
	if got := b.nth(3); got != 64 {
		t.Errorf("nth(3) = %d, want 64", got)
	}
	if got := b.next(64); got != 64 {
		t.Errorf("next(64) = %d, want 64", got)
	}
	if got := b.next(65); got != 100 {
		t.Errorf("next(65) = %d, want 100", got)
	}
	if got := b.prev(100); got != 64 {
		t.Errorf("prev(100) = %d, want 64", got)
	}

	shifted := b.shiftRight(64)
	if !shifted.test(0) || !shifted.test(36) || !shifted.test(63) {
		t.Error("shiftRight(64) lost bits")
	}
	if shifted.count() != 3 {
		t.Errorf("shiftRight(64).count() = %d, want 3", shifted.count())
	}

	masked := b.maskLow(64)
	if masked.count() != 3 {
		t.Errorf("maskLow(64).count() = %d, want 3", masked.count())
	}
}

func TestNewChunkSummary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want TextSummary
	}{
		{
			name: "ascii line",
			text: "hello",
			want: TextSummary{
				Bytes: 5, Chars: 5, UTF16Units: 5,
				Lines:          Point{Line: 0, Column: 5},
				FirstLineChars: 5, LastLineChars: 5, LastLineUTF16Units: 5,
				LongestRowChars: 5,
			},
		},
		{
			name: "two lines",
			text: "ab\ncdef",
			want: TextSummary{
				Bytes: 7, Chars: 7, UTF16Units: 7,
				Lines:          Point{Line: 1, Column: 4},
				FirstLineChars: 2, LastLineChars: 4, LastLineUTF16Units: 4,
				LongestRow: 1, LongestRowChars: 4,
			},
		},
		{
			name: "trailing newline",
			text: "ab\n",
			want: TextSummary{
				Bytes: 3, Chars: 3, UTF16Units: 3,
				Lines:          Point{Line: 1, Column: 0},
				FirstLineChars: 2, LastLineChars: 0, LastLineUTF16Units: 0,
				LongestRow: 0, LongestRowChars: 2,
			},
		},
		{
			name: "multibyte",
			text: "日本\n語",
			want: TextSummary{
				Bytes: 10, Chars: 4, UTF16Units: 4,
				Lines:          Point{Line: 1, Column: 3},
				FirstLineChars: 2, LastLineChars: 1, LastLineUTF16Units: 1,
				LongestRow: 0, LongestRowChars: 2,
			},
		},
		{
			name: "surrogate pair",
			text: "a🎉b",
			want: TextSummary{
				Bytes: 6, Chars: 3, UTF16Units: 4,
				Lines:          Point{Line: 0, Column: 6},
				FirstLineChars: 3, LastLineChars: 3, LastLineUTF16Units: 4,
				LongestRowChars: 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunk(tt.text)
			if got := c.Summary(); got != tt.want {
				t.Errorf("Summary() = %+v, want %+v", got, tt.want)
			}
			if got := Summarize(tt.text); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChunkPointConversions(t *testing.T) {
	c := NewChunk("ab\ncd\n\nefg")
	tests := []struct {
		offset int
		point  Point
	}{
		{0, Point{0, 0}},
		{2, Point{0, 2}},
		{3, Point{1, 0}},
		{5, Point{1, 2}},
		{6, Point{2, 0}},
		{7, Point{3, 0}},
		{10, Point{3, 3}},
	}
	for _, tt := range tests {
		if got := c.OffsetToPoint(tt.offset); got != tt.point {
			t.Errorf("OffsetToPoint(%d) = %s, want %s", tt.offset, got, tt.point)
		}
		if got := c.PointToOffset(tt.point); got != tt.offset {
			t.Errorf("PointToOffset(%s) = %d, want %d", tt.point, got, tt.offset)
		}
	}
}

func TestChunkUTF16Conversions(t *testing.T) {
	c := NewChunk("a🎉b")
	if got := c.OffsetToOffsetUTF16(6); got != 4 {
		t.Errorf("OffsetToOffsetUTF16(6) = %d, want 4", got)
	}
	if got := c.OffsetToOffsetUTF16(1); got != 1 {
		t.Errorf("OffsetToOffsetUTF16(1) = %d, want 1", got)
	}
	// UTF-16 offset 2 falls between the surrogate halves of the emoji.
	if got := c.OffsetUTF16ToOffset(2, BiasLeft); got != 1 {
		t.Errorf("OffsetUTF16ToOffset(2, left) = %d, want 1", got)
	}
	if got := c.OffsetUTF16ToOffset(2, BiasRight); got != 5 {
		t.Errorf("OffsetUTF16ToOffset(2, right) = %d, want 5", got)
	}
	if got := c.OffsetUTF16ToOffset(3, BiasLeft); got != 5 {
		t.Errorf("OffsetUTF16ToOffset(3, left) = %d, want 5", got)
	}
	if got := c.OffsetUTF16ToOffset(4, BiasLeft); got != 6 {
		t.Errorf("OffsetUTF16ToOffset(4, left) = %d, want 6", got)
	}
}

func TestChunkClipOffset(t *testing.T) {
	c := NewChunk("a日b")
	tests := []struct {
		offset int
		bias   Bias
		want   int
	}{
		{0, BiasLeft, 0},
		{1, BiasLeft, 1},
		{2, BiasLeft, 1},
		{2, BiasRight, 4},
		{3, BiasLeft, 1},
		{3, BiasRight, 4},
		{4, BiasLeft, 4},
		{5, BiasLeft, 5},
	}
	for _, tt := range tests {
		if got := c.ClipOffset(tt.offset, tt.bias); got != tt.want {
			t.Errorf("ClipOffset(%d, %s) = %d, want %d", tt.offset, tt.bias, got, tt.want)
		}
	}
}

func TestChunkClipPointGrapheme(t *testing.T) {
	// e followed by a combining acute accent forms one grapheme cluster.
	c := NewChunk("e\u0301x")
	if got := c.ClipPoint(Point{0, 1}, BiasLeft); got != (Point{0, 0}) {
		t.Errorf("ClipPoint inside cluster, left = %s, want 0,0", got)
	}
	if got := c.ClipPoint(Point{0, 1}, BiasRight); got != (Point{0, 3}) {
		t.Errorf("ClipPoint inside cluster, right = %s, want 0,3", got)
	}
	if got := c.ClipPoint(Point{0, 3}, BiasLeft); got != (Point{0, 3}) {
		t.Errorf("ClipPoint at boundary = %s, want 0,3", got)
	}
}

func TestChunkSplitAndSlice(t *testing.T) {
	c := NewChunk("ab\ncd")
	left, right := c.Split(3)
	if left.String() != "ab\n" || right.String() != "cd" {
		t.Errorf("Split(3) = %q, %q", left.String(), right.String())
	}
	if got := left.Summary().Lines; got != (Point{1, 0}) {
		t.Errorf("left Lines = %s, want 1,0", got)
	}
	if got := right.Summary().Lines; got != (Point{0, 2}) {
		t.Errorf("right Lines = %s, want 0,2", got)
	}

	s := c.Slice(1, 4)
	if s.String() != "b\nc" {
		t.Errorf("Slice(1,4) = %q, want %q", s.String(), "b\nc")
	}
	if got := s.Summary().Lines; got != (Point{1, 1}) {
		t.Errorf("slice Lines = %s, want 1,1", got)
	}
}

func TestChunkAppend(t *testing.T) {
	c := NewChunk("ab\n")
	c.PushStr("日本")
	if c.String() != "ab\n日本" {
		t.Errorf("got %q", c.String())
	}
	want := Summarize("ab\n日本")
	if got := c.Summary(); got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
}

func TestChunkTabs(t *testing.T) {
	c := NewChunk("\ta\tbc\t")
	it := c.Tabs()
	want := []TabPosition{
		{Offset: 0, CharOffset: 0},
		{Offset: 2, CharOffset: 2},
		{Offset: 5, CharOffset: 5},
	}
	for i, w := range want {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("tab %d missing", i)
		}
		if got != w {
			t.Errorf("tab %d = %+v, want %+v", i, got, w)
		}
	}
	if _, ok := it.Next(); ok {
		t.Error("iterator should be exhausted")
	}
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"exactly max", strings.Repeat("x", MaxChunkSize)},
		{"max plus one", strings.Repeat("x", MaxChunkSize+1)},
		{"long ascii", strings.Repeat("abcdefghij", 100)},
		{"long multibyte", strings.Repeat("日本語", 200)},
		{"newline heavy", strings.Repeat("a\n", 300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitIntoChunks(tt.text)
			var rebuilt strings.Builder
			for i, c := range chunks {
				if c.Len() == 0 {
					t.Errorf("chunk %d is empty", i)
				}
				if c.Len() > MaxChunkSize {
					t.Errorf("chunk %d has %d bytes, max is %d", i, c.Len(), MaxChunkSize)
				}
				if !utf8.ValidString(c.String()) {
					t.Errorf("chunk %d splits a character", i)
				}
				rebuilt.WriteString(c.String())
			}
			if rebuilt.String() != tt.text {
				t.Error("chunks do not reassemble the input")
			}
		})
	}
}
