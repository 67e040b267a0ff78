// Package vote turns per-bit weights into ternary reconstruction decisions
// and combines several decision vectors into one.
package vote

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/sramlab/pufrecon/internal/bitstream"
)

// Vote is the reconstructed state of one bit.
type Vote uint8

const (
	Zero Vote = iota
	One
	Ambiguous
)

func (v Vote) String() string {
	switch v {
	case Zero:
		return "ZERO"
	case One:
		return "ONE"
	case Ambiguous:
		return "AMBIGUOUS"
	}
	return fmt.Sprintf("Vote(%d)", uint8(v))
}

// Matches reports whether the vote decided the given bit. Ambiguous never
// matches.
func (v Vote) Matches(bit uint8) bool {
	switch v {
	case Zero:
		return bit == 0
	case One:
		return bit == 1
	}
	return false
}

// Vector is an ordered sequence of votes.
type Vector []Vote

// FromBits lifts a binary vector into votes with no ambiguity.
func FromBits(b bitstream.BitVector) Vector {
	out := make(Vector, b.Len())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out[i] = One
	}
	return out
}

// Concat joins vectors in order.
func Concat(vs ...Vector) Vector {
	n := 0
	for _, v := range vs {
		n += len(v)
	}
	out := make(Vector, 0, n)
	for _, v := range vs {
		out = append(out, v...)
	}
	return out
}

// Stats counts each outcome.
type Stats struct {
	Zeros     int
	Ones      int
	Ambiguous int
}

// Stats tallies the vector.
func (v Vector) Stats() Stats {
	var s Stats
	for _, x := range v {
		switch x {
		case Zero:
			s.Zeros++
		case One:
			s.Ones++
		default:
			s.Ambiguous++
		}
	}
	return s
}

// AmbiguousSet returns the positions left undecided.
func (v Vector) AmbiguousSet() *roaring.Bitmap {
	bm := roaring.New()
	for i, x := range v {
		if x == Ambiguous {
			bm.Add(uint32(i))
		}
	}
	return bm
}
