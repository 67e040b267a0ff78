// Package score measures how well a reconstruction matches a known
// reference pattern, one reference-length segment at a time.
package score

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/vote"
)

// Segment is the score of one reference-length slice of the candidate.
type Segment struct {
	Index   int     `json:"index"` // 1-based
	Matches int     `json:"matches"`
	Score   float64 `json:"score"`
}

// Report lists per-segment scores in candidate order.
type Report struct {
	SegmentBits int       `json:"segment_bits"`
	Segments    []Segment `json:"segments"`
}

// Mean returns the average score, or 0 for an empty report.
func (r Report) Mean() float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Segments {
		sum += s.Score
	}
	return sum / float64(len(r.Segments))
}

// Best returns the highest-scoring segment.
func (r Report) Best() (Segment, bool) {
	if len(r.Segments) == 0 {
		return Segment{}, false
	}
	best := r.Segments[0]
	for _, s := range r.Segments[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

func checkLengths(candidate int, ref bitstream.BitVector) error {
	if candidate == 0 || ref.Len() == 0 {
		return puferr.ErrEmptyInput
	}
	if candidate%ref.Len() != 0 {
		return &puferr.ReferenceError{CandidateBits: candidate, ReferenceBits: ref.Len()}
	}
	return nil
}

// Votes scores a ternary candidate. The candidate must be a whole number of
// reference lengths; each period is compared to the reference on its own.
// Ambiguous positions never count as matches.
func Votes(candidate vote.Vector, ref bitstream.BitVector) (Report, error) {
	if err := checkLengths(len(candidate), ref); err != nil {
		return Report{}, err
	}
	r := ref.Len()
	refBits := ref.Bits()
	rep := Report{SegmentBits: r, Segments: make([]Segment, 0, len(candidate)/r)}
	for seg := 0; seg < len(candidate)/r; seg++ {
		part := candidate[seg*r : (seg+1)*r]
		matches := 0
		for i, v := range part {
			if v.Matches(refBits[i]) {
				matches++
			}
		}
		rep.Segments = append(rep.Segments, Segment{
			Index:   seg + 1,
			Matches: matches,
			Score:   float64(matches) / float64(r),
		})
	}
	return rep, nil
}

// Bits scores a binary candidate, such as a single raw read.
func Bits(candidate bitstream.BitVector, ref bitstream.BitVector) (Report, error) {
	return Votes(vote.FromBits(candidate), ref)
}

// Mismatches returns every candidate position that does not match its
// reference bit, Ambiguous positions included.
func Mismatches(candidate vote.Vector, ref bitstream.BitVector) (*roaring.Bitmap, error) {
	if err := checkLengths(len(candidate), ref); err != nil {
		return nil, err
	}
	r := ref.Len()
	refBits := ref.Bits()
	bm := roaring.New()
	for i, v := range candidate {
		if !v.Matches(refBits[i%r]) {
			bm.Add(uint32(i))
		}
	}
	return bm, nil
}
