package rope

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Errorf("New rope should have length 0, got %d", r.Len())
	}
	if !r.IsEmpty() {
		t.Error("New rope should be empty")
	}
	if r.String() != "" {
		t.Errorf("New rope String() should be empty, got %q", r.String())
	}
	if r.LineCount() != 1 {
		t.Errorf("New rope should have 1 line, got %d", r.LineCount())
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"short string", "hello"},
		{"with newline", "hello\nworld"},
		{"multiple newlines", "a\nb\nc\nd"},
		{"unicode", "hello 世界 🌍"},
		{"exactly one chunk", strings.Repeat("x", MaxChunkSize)},
		{"long string", strings.Repeat("abcdefghij", 100)},
		{"very long string", strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.input)
			if r.String() != tt.input {
				t.Errorf("String() = %q, want %q", r.String(), tt.input)
			}
			if r.Len() != len(tt.input) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.input))
			}
			want := Summarize(tt.input)
			if got := r.Summary(); got != want {
				t.Errorf("Summary() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestConcatSplit(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
	}{
		{"both short", "hello ", "world"},
		{"left empty", "", "world"},
		{"right empty", "hello", ""},
		{"short and long", "ab", strings.Repeat("cdefghij", 200)},
		{"long and short", strings.Repeat("cdefghij", 200), "ab"},
		{"both long", strings.Repeat("a\nb", 500), strings.Repeat("x日y", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combined := FromString(tt.left).Concat(FromString(tt.right))
			want := tt.left + tt.right
			if combined.String() != want {
				t.Error("concat mismatch")
			}
			if got := combined.Summary(); got != Summarize(want) {
				t.Errorf("Summary() = %+v, want %+v", got, Summarize(want))
			}

			left, right := combined.SplitAt(len(tt.left))
			if left.String() != tt.left || right.String() != tt.right {
				t.Error("split does not undo concat")
			}
		})
	}
}

func TestSlice(t *testing.T) {
	text := strings.Repeat("lorem ipsum\ndolor sit amet\n", 50)
	r := FromString(text)
	for _, bounds := range [][2]int{{0, 0}, {0, 5}, {11, 12}, {100, 700}, {0, len(text)}, {len(text), len(text)}} {
		start, end := bounds[0], bounds[1]
		s := r.Slice(start, end)
		if s.String() != text[start:end] {
			t.Errorf("Slice(%d, %d) mismatch", start, end)
		}
		if got := s.Summary(); got != Summarize(text[start:end]) {
			t.Errorf("Slice(%d, %d) summary mismatch", start, end)
		}
	}
}

func TestTextInRange(t *testing.T) {
	r := FromString("hello world")
	if got := r.TextInRange(6, 11); got != "world" {
		t.Errorf("TextInRange(6, 11) = %q", got)
	}
	if got := r.TextInRange(6, 100); got != "world" {
		t.Errorf("TextInRange clamps end: got %q", got)
	}
}

func TestTextSummaryForRange(t *testing.T) {
	r := FromString("ab\nefg\nhklm\nnopqrs\ntuvwxyz")
	got := r.TextSummaryForRange(1, 12)
	if got.Lines != (Point{Line: 3, Column: 0}) {
		t.Errorf("Lines = %s, want 3,0", got.Lines)
	}
	if got.LongestRow != 2 {
		t.Errorf("LongestRow = %d, want 2", got.LongestRow)
	}
	if got.LongestRowChars != 4 {
		t.Errorf("LongestRowChars = %d, want 4", got.LongestRowChars)
	}
	if got != Summarize("b\nefg\nhklm\n") {
		t.Errorf("summary = %+v, want %+v", got, Summarize("b\nefg\nhklm\n"))
	}
}

func TestOffsetPointConversions(t *testing.T) {
	// Long enough to span several leaves.
	text := strings.Repeat("alpha\nbeta 日本語\ngamma\n", 100)
	r := FromString(text)

	offset, line, col := 0, uint32(0), uint32(0)
	for offset <= len(text) {
		p := Point{Line: line, Column: col}
		if got := r.OffsetToPoint(offset); got != p {
			t.Fatalf("OffsetToPoint(%d) = %s, want %s", offset, got, p)
		}
		if got := r.PointToOffset(p); got != offset {
			t.Fatalf("PointToOffset(%s) = %d, want %d", p, got, offset)
		}
		if offset == len(text) {
			break
		}
		if text[offset] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		offset++
	}
}

func TestUTF16Conversions(t *testing.T) {
	text := strings.Repeat("ab🎉\n", 100)
	r := FromString(text)

	if got := r.OffsetToOffsetUTF16(r.Len()); got != OffsetUTF16(500) {
		t.Errorf("OffsetToOffsetUTF16(len) = %d, want 500", got)
	}
	// One record is "ab🎉\n": 7 bytes, 5 UTF-16 units.
	if got := r.OffsetToOffsetUTF16(7 * 40); got != OffsetUTF16(5*40) {
		t.Errorf("OffsetToOffsetUTF16(280) = %d, want 200", got)
	}
	if got := r.OffsetUTF16ToOffset(5*40, BiasLeft); got != 7*40 {
		t.Errorf("OffsetUTF16ToOffset(200, left) = %d, want 280", got)
	}
	// Unit 3 of a record is mid-surrogate.
	if got := r.OffsetUTF16ToOffset(3, BiasLeft); got != 2 {
		t.Errorf("OffsetUTF16ToOffset(3, left) = %d, want 2", got)
	}
	if got := r.OffsetUTF16ToOffset(3, BiasRight); got != 6 {
		t.Errorf("OffsetUTF16ToOffset(3, right) = %d, want 6", got)
	}
	if got := r.OffsetToPointUTF16(7*40 + 6); got != (PointUTF16{Line: 40, Column: 4}) {
		t.Errorf("OffsetToPointUTF16 = %s, want 40,4", got)
	}
	if got := r.PointUTF16ToOffset(PointUTF16{Line: 40, Column: 4}, BiasLeft); got != 7*40+6 {
		t.Errorf("PointUTF16ToOffset = %d, want %d", got, 7*40+6)
	}
}

func TestLineLen(t *testing.T) {
	r := FromString("ab\n\nwide line here\nc")
	want := []uint32{2, 0, 14, 1}
	if r.LineCount() != uint32(len(want)) {
		t.Fatalf("LineCount() = %d, want %d", r.LineCount(), len(want))
	}
	for row, w := range want {
		if got := r.LineLen(uint32(row)); got != w {
			t.Errorf("LineLen(%d) = %d, want %d", row, got, w)
		}
	}
	if got := r.MaxPoint(); got != (Point{Line: 3, Column: 1}) {
		t.Errorf("MaxPoint() = %s, want 3,1", got)
	}
}

func TestClipOffset(t *testing.T) {
	text := strings.Repeat("a日🎉", 100)
	r := FromString(text)
	for offset := -2; offset <= len(text)+2; offset++ {
		for _, bias := range []Bias{BiasLeft, BiasRight} {
			got := r.ClipOffset(offset, bias)
			if got < 0 || got > len(text) {
				t.Fatalf("ClipOffset(%d, %s) = %d out of range", offset, bias, got)
			}
			if got != len(text) && !utf8.RuneStart(text[got]) {
				t.Fatalf("ClipOffset(%d, %s) = %d not a boundary", offset, bias, got)
			}
			if again := r.ClipOffset(got, bias); again != got {
				t.Fatalf("ClipOffset not idempotent at %d: %d then %d", offset, got, again)
			}
		}
	}
}

func TestClipPointIdempotent(t *testing.T) {
	text := strings.Repeat("héllo wörld\n日本語 text\n", 40)
	r := FromString(text)
	check := func(line, col uint32) bool {
		p := Point{Line: line % (r.LineCount() + 2), Column: col % 40}
		for _, bias := range []Bias{BiasLeft, BiasRight} {
			clipped := r.ClipPoint(p, bias)
			if r.ClipPoint(clipped, bias) != clipped {
				return false
			}
			// A clipped point must be addressable.
			offset := r.PointToOffset(clipped)
			if r.OffsetToPoint(offset) != clipped {
				return false
			}
		}
		return true
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestSummaryAdditivity(t *testing.T) {
	text := strings.Repeat("alpha béta\n🎉 gamma\n\ttabs\n", 30)
	check := func(split uint16) bool {
		k := int(split) % (len(text) + 1)
		for k < len(text) && !utf8.RuneStart(text[k]) {
			k++
		}
		sum := Summarize(text[:k]).Add(Summarize(text[k:]))
		return sum == Summarize(text)
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestChunkIterator(t *testing.T) {
	text := strings.Repeat("0123456789", 150)
	r := FromString(text)
	var rebuilt strings.Builder
	offset := 0
	for it := r.Chunks(); it.Next(); {
		c := it.Chunk()
		if it.Offset() != offset {
			t.Fatalf("Offset() = %d, want %d", it.Offset(), offset)
		}
		offset += c.Len()
		rebuilt.WriteString(c.String())
	}
	if rebuilt.String() != text {
		t.Error("chunk iteration does not reproduce text")
	}
}

func TestRangeIterator(t *testing.T) {
	text := strings.Repeat("abcdefghij", 200)
	r := FromString(text)
	for _, bounds := range [][2]int{{0, 10}, {95, 350}, {0, len(text)}, {1999, 2000}} {
		var rebuilt strings.Builder
		for it := r.ChunksInRange(bounds[0], bounds[1]); it.Next(); {
			rebuilt.WriteString(it.Text())
		}
		if rebuilt.String() != text[bounds[0]:bounds[1]] {
			t.Errorf("ChunksInRange(%d, %d) mismatch", bounds[0], bounds[1])
		}
	}
}

func TestCharIterator(t *testing.T) {
	text := strings.Repeat("a日🎉\n", 60)
	r := FromString(text)
	want := []rune(text[7:])
	it := r.CharsAt(7)
	for i, w := range want {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("iterator ended at rune %d", i)
		}
		if got != w {
			t.Fatalf("rune %d = %q, want %q", i, got, w)
		}
	}
	if _, ok := it.Next(); ok {
		t.Error("iterator should be exhausted")
	}
}

func TestCursor(t *testing.T) {
	text := strings.Repeat("hello world\n", 100)
	r := FromString(text)
	cur := r.CursorAt(0)
	first := cur.Slice(500)
	if first.String() != text[:500] {
		t.Error("first slice mismatch")
	}
	if cur.Offset() != 500 {
		t.Errorf("Offset() = %d, want 500", cur.Offset())
	}
	second := cur.Slice(507)
	if second.String() != text[500:507] {
		t.Error("second slice mismatch")
	}
	rest := cur.Suffix()
	if rest.String() != text[507:] {
		t.Error("suffix mismatch")
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	var want strings.Builder
	rng := rand.New(rand.NewSource(42))
	pieces := []string{"a", "hello\n", "日本語", strings.Repeat("x", 1000), "🎉", ""}
	for i := 0; i < 200; i++ {
		p := pieces[rng.Intn(len(pieces))]
		if rng.Intn(4) == 0 {
			b.PushRope(FromString(p))
		} else {
			b.PushString(p)
		}
		want.WriteString(p)
		if b.Len() != want.Len() {
			t.Fatalf("Len() = %d, want %d at step %d", b.Len(), want.Len(), i)
		}
	}
	r := b.Build()
	if r.String() != want.String() {
		t.Error("built rope mismatch")
	}
	if got := r.Summary(); got != Summarize(want.String()) {
		t.Error("built rope summary mismatch")
	}
}
