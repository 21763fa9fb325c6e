package buffer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/dshills/cotext/clock"
	"github.com/dshills/cotext/rope"
)

// patch replays a diff against the old text using the new text as the
// source of replacement bytes.
func patch(old, new string, edits []Edit) string {
	var out strings.Builder
	pos := 0
	for _, e := range edits {
		out.WriteString(old[pos:e.Old.Start])
		out.WriteString(new[e.New.Start:e.New.End])
		pos = e.Old.End
	}
	out.WriteString(old[pos:])
	return out.String()
}

func pointOf(s string) rope.Point {
	var p rope.Point
	for _, b := range []byte(s) {
		if b == '\n' {
			p.Line++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

func checkEdits(t *testing.T, old, new string, edits []Edit) {
	t.Helper()
	if got := patch(old, new, edits); got != new {
		t.Fatalf("patched text = %q, want %q (edits %+v)", got, new, edits)
	}
	for i, e := range edits {
		if i > 0 && edits[i-1].Old.End > e.Old.Start {
			t.Errorf("edit %d out of order", i)
		}
		if e.OldPoints.Start != pointOf(old[:e.Old.Start]) || e.OldPoints.End != pointOf(old[:e.Old.End]) {
			t.Errorf("edit %d: old points %s do not match offsets %s", i, e.OldPoints, e.Old)
		}
		if e.NewPoints.Start != pointOf(new[:e.New.Start]) || e.NewPoints.End != pointOf(new[:e.New.End]) {
			t.Errorf("edit %d: new points %s do not match offsets %s", i, e.NewPoints, e.New)
		}
	}
}

func TestEditsSince(t *testing.T) {
	b := New(1, 1, "one\ntwo\nthree")
	v0 := b.Version()
	text0 := b.Text()

	mustEdit(t, b, TextEdit{Range: NewRange(0, 3), NewText: "1"})
	v1 := b.Version()
	text1 := b.Text()

	mustEdit(t, b,
		TextEdit{Range: NewRange(2, 5), NewText: "2"},
		TextEdit{Range: NewRange(6, 11), NewText: "3"},
	)
	text2 := b.Text()
	if text2 != "1\n2\n3" {
		t.Fatalf("Text() = %q", text2)
	}

	checkEdits(t, text0, text2, b.EditsSince(v0))
	checkEdits(t, text1, text2, b.EditsSince(v1))

	if got := b.EditsSince(b.Version()); got != nil {
		t.Errorf("EditsSince(current) = %v, want nil", got)
	}
}

func TestEditsSinceAcrossUndo(t *testing.T) {
	b := New(1, 1, "hello world")
	v0 := b.Version()
	mustEdit(t, b, TextEdit{Range: NewRange(5, 11), NewText: "!"})
	b.Undo()
	mustEdit(t, b, TextEdit{Range: NewRange(0, 0), NewText: "# "})

	checkEdits(t, "hello world", b.Text(), b.EditsSince(v0))
}

func TestEditsSinceWithRemoteOps(t *testing.T) {
	a := New(1, 9, "abcdef")
	b := New(2, 9, "abcdef")
	v0 := a.Version()

	opA := mustEdit(t, a, TextEdit{Range: NewRange(1, 2), NewText: "12"})
	opB := mustEdit(t, b, TextEdit{Range: NewRange(3, 4), NewText: "34"})
	a.ApplyOp(opB)
	b.ApplyOp(opA)

	checkEdits(t, "abcdef", a.Text(), a.EditsSince(v0))
	checkEdits(t, "abcdef", b.Text(), b.EditsSince(v0))
}

func TestHasEditsSince(t *testing.T) {
	b := New(1, 1, "abc")
	v0 := b.Version()
	if b.HasEditsSince(v0) {
		t.Error("no edits yet")
	}
	mustEdit(t, b, TextEdit{Range: NewRange(0, 0), NewText: "x"})
	if !b.HasEditsSince(v0) {
		t.Error("edit not reported")
	}

	// An undo immediately followed by a redo restores the version
	// difference but not the text; the scan must still report a change
	// for versions that saw neither.
	v1 := b.Version()
	b.Undo()
	if !b.HasEditsSince(v1) {
		t.Error("undo not reported")
	}
}

func TestEditsSinceInRange(t *testing.T) {
	b := New(1, 1, strings.Repeat("x", 100))
	v0 := b.Version()
	mustEdit(t, b, TextEdit{Range: NewRange(10, 10), NewText: "AA"})
	mustEdit(t, b, TextEdit{Range: NewRange(90, 92), NewText: ""})

	all := b.EditsSince(v0)
	if len(all) != 2 {
		t.Fatalf("EditsSince returned %d edits, want 2", len(all))
	}
	head := b.EditsSinceInRange(v0, NewRange(0, 50))
	if len(head) != 1 || head[0] != all[0] {
		t.Errorf("EditsSinceInRange(0,50) = %+v, want first edit only", head)
	}
}

func TestRopeForVersion(t *testing.T) {
	b := New(1, 1, "one two")
	v0, text0 := b.Version(), b.Text()
	mustEdit(t, b, TextEdit{Range: NewRange(3, 3), NewText: " and a half"})
	v1, text1 := b.Version(), b.Text()
	mustEdit(t, b, TextEdit{Range: NewRange(0, 3), NewText: "1"})
	v2, text2 := b.Version(), b.Text()
	b.Undo()
	v3, text3 := b.Version(), b.Text()

	if got := b.TextForVersion(v0); got != text0 {
		t.Errorf("v0: %q, want %q", got, text0)
	}
	if got := b.TextForVersion(v1); got != text1 {
		t.Errorf("v1: %q, want %q", got, text1)
	}
	if got := b.TextForVersion(v2); got != text2 {
		t.Errorf("v2: %q, want %q", got, text2)
	}
	if got := b.TextForVersion(v3); got != text3 {
		t.Errorf("v3: %q, want %q", got, text3)
	}
}

func TestSubscription(t *testing.T) {
	b := New(1, 1, "hello")
	sub := b.Subscribe()
	if sub.HasPending() {
		t.Error("fresh subscription should have nothing pending")
	}

	mustEdit(t, b, TextEdit{Range: NewRange(5, 5), NewText: " world"})
	if !sub.HasPending() {
		t.Error("edit not pending")
	}
	edits := sub.Consume()
	if len(edits) != 1 {
		t.Fatalf("Consume returned %d edits, want 1", len(edits))
	}
	if edits[0].New != (Range{Start: 5, End: 11}) {
		t.Errorf("edit range = %s", edits[0].New)
	}
	if got := sub.Consume(); len(got) != 0 {
		t.Errorf("second Consume = %v, want empty", got)
	}
}

func TestEditsSinceRandomized(t *testing.T) {
	type snapshot struct {
		version clock.Global
		text    string
	}
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		b := New(1, 1, "the quick brown fox jumps over the lazy dog")

		snaps := []snapshot{{version: b.Version(), text: b.Text()}}
		b.RandomlyEdit(rng, 5)
		snaps = append(snaps, snapshot{version: b.Version(), text: b.Text()})
		b.RandomlyUndoRedo(rng, 3)
		snaps = append(snaps, snapshot{version: b.Version(), text: b.Text()})
		b.RandomlyEdit(rng, 5)

		if err := b.CheckInvariants(); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for i, s := range snaps {
			if got := b.TextForVersion(s.version); got != s.text {
				t.Fatalf("seed %d snapshot %d: TextForVersion = %q, want %q", seed, i, got, s.text)
			}
			checkEdits(t, s.text, b.Text(), b.EditsSince(s.version))
		}
	}
}
