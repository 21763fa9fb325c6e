package rope

import "math/bits"

// bitmap128 is a fixed 128-bit bitset stored as two 64-bit words.
// Bit i lives in word i/64 at position i%64. All queries are
// popcount-based so chunk metadata lookups stay O(1).
type bitmap128 [2]uint64

// set sets bit i.
func (b *bitmap128) set(i int) {
	b[i>>6] |= 1 << (uint(i) & 63)
}

// test reports whether bit i is set.
func (b bitmap128) test(i int) bool {
	if i < 0 || i >= 128 {
		return false
	}
	return b[i>>6]&(1<<(uint(i)&63)) != 0
}

// count returns the number of set bits.
func (b bitmap128) count() int {
	return bits.OnesCount64(b[0]) + bits.OnesCount64(b[1])
}

// countBelow returns the number of set bits in [0, i).
func (b bitmap128) countBelow(i int) int {
	if i <= 0 {
		return 0
	}
	if i >= 128 {
		return b.count()
	}
	if i <= 64 {
		return bits.OnesCount64(b[0] & lowMask(i))
	}
	return bits.OnesCount64(b[0]) + bits.OnesCount64(b[1]&lowMask(i-64))
}

// nth returns the index of the n-th set bit (0-based), or -1 if there
// are not enough set bits.
func (b bitmap128) nth(n int) int {
	if n < 0 {
		return -1
	}
	c0 := bits.OnesCount64(b[0])
	if n < c0 {
		return selectBit(b[0], n)
	}
	i := selectBit(b[1], n-c0)
	if i < 0 {
		return -1
	}
	return i + 64
}

// next returns the smallest set bit index >= i, or -1 if none.
func (b bitmap128) next(i int) int {
	if i < 0 {
		i = 0
	}
	if i >= 128 {
		return -1
	}
	if i < 64 {
		if w := b[0] &^ lowMask(i); w != 0 {
			return bits.TrailingZeros64(w)
		}
		i = 64
	}
	if w := b[1] &^ lowMask(i - 64); w != 0 {
		return bits.TrailingZeros64(w) + 64
	}
	return -1
}

// prev returns the largest set bit index < i, or -1 if none.
func (b bitmap128) prev(i int) int {
	if i > 128 {
		i = 128
	}
	if i > 64 {
		if w := b[1] & lowMask(i-64); w != 0 {
			return 127 - bits.LeadingZeros64(w)
		}
		i = 64
	}
	if w := b[0] & lowMask(i); w != 0 {
		return 63 - bits.LeadingZeros64(w)
	}
	return -1
}

// shiftRight returns the bitmap shifted right by n, discarding low bits.
func (b bitmap128) shiftRight(n int) bitmap128 {
	switch {
	case n <= 0:
		return b
	case n >= 128:
		return bitmap128{}
	case n >= 64:
		return bitmap128{b[1] >> (uint(n) - 64), 0}
	default:
		return bitmap128{b[0]>>uint(n) | b[1]<<(64-uint(n)), b[1] >> uint(n)}
	}
}

// shiftLeft returns the bitmap shifted left by n, discarding high bits.
func (b bitmap128) shiftLeft(n int) bitmap128 {
	switch {
	case n <= 0:
		return b
	case n >= 128:
		return bitmap128{}
	case n >= 64:
		return bitmap128{0, b[0] << (uint(n) - 64)}
	default:
		return bitmap128{b[0] << uint(n), b[1]<<uint(n) | b[0]>>(64-uint(n))}
	}
}

// maskLow returns the bitmap with only bits [0, n) retained.
func (b bitmap128) maskLow(n int) bitmap128 {
	switch {
	case n <= 0:
		return bitmap128{}
	case n >= 128:
		return b
	case n <= 64:
		return bitmap128{b[0] & lowMask(n), 0}
	default:
		return bitmap128{b[0], b[1] & lowMask(n-64)}
	}
}

// or returns the union of two bitmaps.
func (b bitmap128) or(other bitmap128) bitmap128 {
	return bitmap128{b[0] | other[0], b[1] | other[1]}
}

// lowMask returns a word with the low n bits set. n must be in [0, 64].
func lowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

// selectBit returns the index of the n-th set bit in w (0-based),
// or -1 if w has fewer than n+1 set bits.
func selectBit(w uint64, n int) int {
	for ; n > 0; n-- {
		w &= w - 1
	}
	if w == 0 {
		return -1
	}
	return bits.TrailingZeros64(w)
}
