// Package aggregate reduces sets of same-length bit vectors into per-position
// one-counts.
//
// The reduction is a plain elementwise sum, so it is associative and
// commutative: samples may be summed in any order or in shards that are
// merged afterwards, and the result is the same.
package aggregate

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
)

// Condition labels what state the device was in when a sample set was
// captured.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionAged    Condition = "aged"
	ConditionGeneric Condition = "generic"
)

// SampleSet is a named, non-empty collection of equal-length captures of the
// same region.
type SampleSet struct {
	Name      string
	Region    string
	Condition Condition
	Samples   []bitstream.BitVector
}

// NewSampleSet validates samples and wraps them in a SampleSet.
func NewSampleSet(name, region string, cond Condition, samples []bitstream.BitVector) (SampleSet, error) {
	if err := checkSamples(samples); err != nil {
		return SampleSet{}, err
	}
	return SampleSet{Name: name, Region: region, Condition: cond, Samples: samples}, nil
}

// Count returns the number of samples.
func (s SampleSet) Count() int { return len(s.Samples) }

// Width returns the common sample length.
func (s SampleSet) Width() int {
	if len(s.Samples) == 0 {
		return 0
	}
	return s.Samples[0].Len()
}

// Weights sums the set across up to workers goroutines (see Concurrent).
func (s SampleSet) Weights(workers int) (WeightVector, error) {
	return Concurrent(s.Samples, workers)
}

// WeightVector holds, per bit position, how many samples read a one there.
// Samples is the denominator the counts were taken over.
type WeightVector struct {
	Counts  []int
	Samples int
}

// Len returns the number of positions.
func (w WeightVector) Len() int { return len(w.Counts) }

// Merge adds two partial sums of the same width.
func (w WeightVector) Merge(o WeightVector) (WeightVector, error) {
	if len(w.Counts) != len(o.Counts) {
		return WeightVector{}, puferr.Length("merge weights", len(w.Counts), len(o.Counts))
	}
	out := WeightVector{Counts: make([]int, len(w.Counts)), Samples: w.Samples + o.Samples}
	for i := range w.Counts {
		out.Counts[i] = w.Counts[i] + o.Counts[i]
	}
	return out, nil
}

func checkSamples(samples []bitstream.BitVector) error {
	if len(samples) == 0 {
		return puferr.ErrEmptySampleSet
	}
	width := samples[0].Len()
	for i, s := range samples[1:] {
		if s.Len() != width {
			return &puferr.LengthError{Op: "aggregate", Expected: width, Actual: s.Len(), Index: i + 1}
		}
	}
	return nil
}

// Sum counts the ones at each position across samples.
func Sum(samples []bitstream.BitVector) (WeightVector, error) {
	if err := checkSamples(samples); err != nil {
		return WeightVector{}, err
	}
	return sum(samples), nil
}

func sum(samples []bitstream.BitVector) WeightVector {
	w := WeightVector{Counts: make([]int, samples[0].Len()), Samples: len(samples)}
	for _, s := range samples {
		for i, ok := s.NextSet(0); ok; i, ok = s.NextSet(i + 1) {
			w.Counts[i]++
		}
	}
	return w
}

// Concurrent is Sum split across up to workers goroutines. Each shard is
// summed independently and the partial vectors are merged in shard order.
// workers <= 0 uses GOMAXPROCS.
func Concurrent(samples []bitstream.BitVector, workers int) (WeightVector, error) {
	if err := checkSamples(samples); err != nil {
		return WeightVector{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	shards := min(workers, len(samples))
	if shards <= 1 {
		return sum(samples), nil
	}

	partial := make([]WeightVector, shards)
	per := (len(samples) + shards - 1) / shards
	var g errgroup.Group
	for k := 0; k < shards; k++ {
		lo := k * per
		hi := min(lo+per, len(samples))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			partial[k] = sum(samples[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WeightVector{}, err
	}

	var out WeightVector
	for _, p := range partial {
		if p.Counts == nil {
			continue
		}
		if out.Counts == nil {
			out = p
			continue
		}
		merged, err := out.Merge(p)
		if err != nil {
			return WeightVector{}, err
		}
		out = merged
	}
	return out, nil
}
