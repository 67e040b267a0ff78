package bitstream

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// BitVector is an immutable, fixed-length sequence of bits.
//
// The zero value is an empty vector. Methods never modify the receiver;
// anything that changes bits returns a new vector.
type BitVector struct {
	bits *bitset.BitSet
	n    int
}

// FromBits builds a vector from 0/1 values. Any non-zero value is a one.
func FromBits(values []uint8) BitVector {
	b := bitset.New(uint(len(values)))
	for i, v := range values {
		if v != 0 {
			b.Set(uint(i))
		}
	}
	return BitVector{bits: b, n: len(values)}
}

// Zeros returns a vector of n zero bits.
func Zeros(n int) BitVector {
	return BitVector{bits: bitset.New(uint(n)), n: n}
}

// Len returns the number of bits.
func (v BitVector) Len() int { return v.n }

// Test reports whether bit i is one. It panics when i is out of range.
func (v BitVector) Test(i int) bool {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("bitstream: index %d out of range [0,%d)", i, v.n))
	}
	return v.bits.Test(uint(i))
}

// Bit returns bit i as 0 or 1.
func (v BitVector) Bit(i int) uint8 {
	if v.Test(i) {
		return 1
	}
	return 0
}

// Count returns the number of one bits.
func (v BitVector) Count() int {
	if v.n == 0 {
		return 0
	}
	return int(v.bits.Count())
}

// NextSet returns the first one bit at or after i.
func (v BitVector) NextSet(i int) (int, bool) {
	if v.n == 0 || i >= v.n {
		return 0, false
	}
	j, ok := v.bits.NextSet(uint(i))
	if !ok || int(j) >= v.n {
		return 0, false
	}
	return int(j), true
}

// Slice returns a copy of bits [from, to).
func (v BitVector) Slice(from, to int) BitVector {
	if from < 0 || to > v.n || from > to {
		panic(fmt.Sprintf("bitstream: slice [%d:%d] out of range [0,%d]", from, to, v.n))
	}
	out := bitset.New(uint(to - from))
	for i, ok := v.NextSet(from); ok && i < to; i, ok = v.NextSet(i + 1) {
		out.Set(uint(i - from))
	}
	return BitVector{bits: out, n: to - from}
}

// Pad returns v extended with zero bits up to n. A vector already at least n
// long is returned unchanged.
func (v BitVector) Pad(n int) BitVector {
	if n <= v.n {
		return v
	}
	out := bitset.New(uint(n))
	for i, ok := v.NextSet(0); ok; i, ok = v.NextSet(i + 1) {
		out.Set(uint(i))
	}
	return BitVector{bits: out, n: n}
}

// Complement returns the bitwise inverse of v.
func (v BitVector) Complement() BitVector {
	if v.n == 0 {
		return v
	}
	return BitVector{bits: v.bits.Complement(), n: v.n}
}

// Equal reports whether both vectors hold the same bits.
func (v BitVector) Equal(o BitVector) bool {
	if v.n != o.n {
		return false
	}
	if v.n == 0 {
		return true
	}
	return v.bits.Equal(o.bits)
}

// Bits expands the vector into one byte per bit.
func (v BitVector) Bits() []uint8 {
	out := make([]uint8, v.n)
	for i, ok := v.NextSet(0); ok; i, ok = v.NextSet(i + 1) {
		out[i] = 1
	}
	return out
}

// Concat joins vectors in order.
func Concat(vs ...BitVector) BitVector {
	total := 0
	for _, v := range vs {
		total += v.n
	}
	out := bitset.New(uint(total))
	off := 0
	for _, v := range vs {
		for i, ok := v.NextSet(0); ok; i, ok = v.NextSet(i + 1) {
			out.Set(uint(off + i))
		}
		off += v.n
	}
	return BitVector{bits: out, n: total}
}

func (v BitVector) String() string {
	const limit = 64
	n := min(v.n, limit)
	buf := make([]byte, 0, n+8)
	for i := 0; i < n; i++ {
		buf = append(buf, '0'+v.Bit(i))
	}
	if v.n > limit {
		buf = append(buf, "..."...)
	}
	return string(buf)
}

// Builder accumulates bits for a single BitVector.
type Builder struct {
	bits *bitset.BitSet
	n    int
}

// NewBuilder returns a builder sized for about capacity bits.
func NewBuilder(capacity int) *Builder {
	if capacity < 0 {
		capacity = 0
	}
	return &Builder{bits: bitset.New(uint(capacity))}
}

// AppendByte appends the 8 bits of c, most significant first.
func (b *Builder) AppendByte(c byte) {
	for k := 7; k >= 0; k-- {
		if c&(1<<uint(k)) != 0 {
			b.bits.Set(uint(b.n))
		}
		b.n++
	}
}

// AppendBit appends a single bit.
func (b *Builder) AppendBit(one bool) {
	if one {
		b.bits.Set(uint(b.n))
	}
	b.n++
}

// Len returns the number of bits appended so far.
func (b *Builder) Len() int { return b.n }

// Build hands the accumulated bits to a new vector and resets the builder.
func (b *Builder) Build() BitVector {
	bits := b.bits
	if bits.Len() != uint(b.n) {
		// Trim or extend the backing set to exactly n bits so Complement
		// and Equal see the right length.
		trimmed := bitset.New(uint(b.n))
		for i, ok := bits.NextSet(0); ok && int(i) < b.n; i, ok = bits.NextSet(i + 1) {
			trimmed.Set(i)
		}
		bits = trimmed
	}
	v := BitVector{bits: bits, n: b.n}
	b.bits = bitset.New(0)
	b.n = 0
	return v
}
