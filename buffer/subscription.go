package buffer

import "github.com/dshills/cotext/clock"

// Subscription tracks a consumer's view of the buffer. Each Consume
// call returns the edits since the previous call, letting consumers
// such as display layers patch derived state incrementally.
type Subscription struct {
	buffer *Buffer
	since  clock.Global
}

// Subscribe creates a subscription positioned at the current version.
func (b *Buffer) Subscribe() *Subscription {
	return &Subscription{buffer: b, since: b.version.Clone()}
}

// Consume returns the edits since the last call and advances the
// subscription to the current version.
func (s *Subscription) Consume() []Edit {
	edits := s.buffer.EditsSince(s.since)
	s.since = s.buffer.version.Clone()
	return edits
}

// HasPending reports whether Consume would return edits.
func (s *Subscription) HasPending() bool {
	return s.buffer.HasEditsSince(s.since)
}
