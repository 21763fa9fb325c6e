// Package clock provides the logical clocks used by the collaborative
// buffer: per-replica sequence ids, Lamport timestamps, and version
// vectors. All types are plain values; generators (Clock, LamportClock)
// are owned by a single buffer and are not safe for concurrent use.
package clock

import (
	"fmt"
	"sort"
	"strings"
)

// ReplicaID identifies one replica of a buffer.
type ReplicaID uint16

// Seq is a per-replica sequence number.
type Seq uint32

// Local is a per-replica sequence id. It uniquely identifies one event
// (an edit or an undo) generated by one replica.
type Local struct {
	ReplicaID ReplicaID
	Value     Seq
}

// String returns a human-readable representation of the id.
func (l Local) String() string {
	return fmt.Sprintf("%d.%d", l.ReplicaID, l.Value)
}

// Compare orders ids by (ReplicaID, Value).
func (l Local) Compare(other Local) int {
	if l.ReplicaID != other.ReplicaID {
		if l.ReplicaID < other.ReplicaID {
			return -1
		}
		return 1
	}
	if l.Value != other.Value {
		if l.Value < other.Value {
			return -1
		}
		return 1
	}
	return 0
}

// Clock generates Local ids for one replica.
type Clock struct {
	replicaID ReplicaID
	value     Seq
}

// NewClock creates a Clock for the given replica.
func NewClock(replicaID ReplicaID) *Clock {
	return &Clock{replicaID: replicaID}
}

// ReplicaID returns the replica this clock generates ids for.
func (c *Clock) ReplicaID() ReplicaID {
	return c.replicaID
}

// Tick returns the next Local id for this replica.
func (c *Clock) Tick() Local {
	c.value++
	return Local{ReplicaID: c.replicaID, Value: c.value}
}

// Observe advances the clock past an id generated by this replica.
// Ids from other replicas are ignored.
func (c *Clock) Observe(id Local) {
	if id.ReplicaID == c.replicaID && id.Value > c.value {
		c.value = id.Value
	}
}

// Lamport is a Lamport timestamp. Timestamps are totally ordered by
// (Value, ReplicaID), which gives every event in the system a unique
// position in the order.
type Lamport struct {
	Value     Seq
	ReplicaID ReplicaID
}

// String returns a human-readable representation of the timestamp.
func (l Lamport) String() string {
	return fmt.Sprintf("<%d@%d>", l.Value, l.ReplicaID)
}

// Compare orders timestamps by (Value, ReplicaID).
func (l Lamport) Compare(other Lamport) int {
	if l.Value != other.Value {
		if l.Value < other.Value {
			return -1
		}
		return 1
	}
	if l.ReplicaID != other.ReplicaID {
		if l.ReplicaID < other.ReplicaID {
			return -1
		}
		return 1
	}
	return 0
}

// LamportClock generates Lamport timestamps for one replica.
type LamportClock struct {
	replicaID ReplicaID
	value     Seq
}

// NewLamportClock creates a LamportClock for the given replica.
func NewLamportClock(replicaID ReplicaID) *LamportClock {
	return &LamportClock{replicaID: replicaID}
}

// Tick returns the next timestamp for this replica.
func (c *LamportClock) Tick() Lamport {
	c.value++
	return Lamport{Value: c.value, ReplicaID: c.replicaID}
}

// Observe advances the clock so that subsequent Ticks order after the
// observed timestamp.
func (c *LamportClock) Observe(ts Lamport) {
	if ts.Value > c.value {
		c.value = ts.Value
	}
}

// Global is a version vector: for each replica, the highest Local value
// seen from it. The zero value is an empty vector observing nothing.
type Global map[ReplicaID]Seq

// Clone returns an independent copy of the vector.
func (g Global) Clone() Global {
	out := make(Global, len(g))
	for r, v := range g {
		out[r] = v
	}
	return out
}

// Observe records an id, advancing the replica's entry if needed.
func (g Global) Observe(id Local) {
	if id.Value > g[id.ReplicaID] {
		g[id.ReplicaID] = id.Value
	}
}

// Observed reports whether the vector has seen the given id.
func (g Global) Observed(id Local) bool {
	return g[id.ReplicaID] >= id.Value
}

// ObservedAll reports whether the vector dominates other: every entry of
// other has been seen. This is the causal readiness test for applying a
// remote operation.
func (g Global) ObservedAll(other Global) bool {
	for r, v := range other {
		if g[r] < v {
			return false
		}
	}
	return true
}

// Changed reports whether the vector contains anything other does not.
func (g Global) Changed(other Global) bool {
	for r, v := range g {
		if other[r] < v {
			return true
		}
	}
	return false
}

// Join merges other into the vector, taking the per-replica maximum.
func (g Global) Join(other Global) {
	for r, v := range other {
		if v > g[r] {
			g[r] = v
		}
	}
}

// String returns a human-readable representation of the vector with
// replicas in ascending order.
func (g Global) String() string {
	ids := make([]int, 0, len(g))
	for r := range g {
		ids = append(ids, int(r))
	}
	sort.Ints(ids)
	var b strings.Builder
	b.WriteByte('{')
	for i, r := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: %d", r, g[ReplicaID(r)])
	}
	b.WriteByte('}')
	return b.String()
}
