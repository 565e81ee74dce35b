package tree

import "math/bits"

// leafMaskWords is the number of 64-bit words in a leaf's active mask
// (LeafSize bits).
const leafMaskWords = LeafSize / 64

// LeafMask is a fixed 512-bit set tracking the active state of every voxel in
// a leaf node. Bit layout follows the leaf's voxel offsets: z occupies the low
// three bits, y the next three and x the top three, so each word holds one
// x-slab of 8x8 (y,z) bits.
type LeafMask [leafMaskWords]uint64

// SetOn sets the bit for the given voxel offset.
func (m *LeafMask) SetOn(offset uint) {
	m[offset>>6] |= 1 << (offset & 63)
}

// SetOff clears the bit for the given voxel offset.
func (m *LeafMask) SetOff(offset uint) {
	m[offset>>6] &^= 1 << (offset & 63)
}

// Set sets the bit for the given voxel offset to on.
func (m *LeafMask) Set(offset uint, on bool) {
	if on {
		m.SetOn(offset)
	} else {
		m.SetOff(offset)
	}
}

// IsOn reports whether the bit for the given voxel offset is set.
func (m *LeafMask) IsOn(offset uint) bool {
	return m[offset>>6]&(1<<(offset&63)) != 0
}

// CountOn returns the number of set bits.
func (m *LeafMask) CountOn() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether no bits are set.
func (m *LeafMask) IsEmpty() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// IsFull reports whether every bit is set.
func (m *LeafMask) IsFull() bool {
	for _, w := range m {
		if w != ^uint64(0) {
			return false
		}
	}
	return true
}

// SetAll sets every bit to the given state.
func (m *LeafMask) SetAll(on bool) {
	w := uint64(0)
	if on {
		w = ^uint64(0)
	}
	for i := range m {
		m[i] = w
	}
}

// Or merges the other mask into this one.
func (m *LeafMask) Or(o *LeafMask) {
	for i := range m {
		m[i] |= o[i]
	}
}

// And intersects this mask with the other.
func (m *LeafMask) And(o *LeafMask) {
	for i := range m {
		m[i] &= o[i]
	}
}

// AndNot clears every bit of this mask that is set in the other.
func (m *LeafMask) AndNot(o *LeafMask) {
	for i := range m {
		m[i] &^= o[i]
	}
}

// ForEachOn calls fn with the offset of every set bit in increasing order.
func (m *LeafMask) ForEachOn(fn func(offset uint)) {
	for i, w := range m {
		for w != 0 {
			b := uint(bits.TrailingZeros64(w))
			fn(uint(i)<<6 | b)
			w &= w - 1
		}
	}
}

// nodeMask is a variable-length bitset used for the child and active-tile
// masks of internal nodes.
type nodeMask []uint64

func newNodeMask(size int) nodeMask {
	return make(nodeMask, (size+63)/64)
}

func (m nodeMask) setOn(i int)      { m[i>>6] |= 1 << (uint(i) & 63) }
func (m nodeMask) setOff(i int)     { m[i>>6] &^= 1 << (uint(i) & 63) }
func (m nodeMask) isOn(i int) bool  { return m[i>>6]&(1<<(uint(i)&63)) != 0 }

func (m nodeMask) countOn() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m nodeMask) isEmpty() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

func (m nodeMask) forEachOn(fn func(i int)) {
	for i, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			fn(i<<6 | b)
			w &= w - 1
		}
	}
}
