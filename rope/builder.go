package rope

import "strings"

// Builder incrementally assembles a rope from strings and existing
// rope slices. Pushed strings are buffered and cut into chunks in
// bulk; pushed ropes are concatenated with structural sharing.
type Builder struct {
	rope    Rope
	pending strings.Builder
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{rope: New()}
}

// PushString appends text.
func (b *Builder) PushString(s string) {
	if len(s) == 0 {
		return
	}
	b.pending.WriteString(s)
	if b.pending.Len() >= MaxChunkSize*16 {
		b.flush()
	}
}

// PushRope appends an existing rope, sharing its subtrees.
func (b *Builder) PushRope(r Rope) {
	if r.Len() == 0 {
		return
	}
	b.flush()
	b.rope = b.rope.Concat(r)
}

// Len returns the number of bytes pushed so far.
func (b *Builder) Len() int {
	return b.rope.Len() + b.pending.Len()
}

// Build returns the assembled rope and resets the builder.
func (b *Builder) Build() Rope {
	b.flush()
	out := b.rope
	b.rope = New()
	return out
}

func (b *Builder) flush() {
	if b.pending.Len() == 0 {
		return
	}
	b.rope = b.rope.Concat(FromString(b.pending.String()))
	b.pending.Reset()
}
