package vote

import (
	"fmt"

	"github.com/sramlab/pufrecon/internal/aggregate"
	"github.com/sramlab/pufrecon/internal/puferr"
)

// Differential votes each bit from the sign of the change in its one-count
// between an aged and a fresh sample set:
//
//	aged-new < 0 → One, > 0 → Zero, == 0 → Ambiguous
//
// Both weight vectors must have the same width and sample count.
func Differential(aged, fresh aggregate.WeightVector) (Vector, error) {
	if aged.Len() != fresh.Len() {
		return nil, puferr.Length("differential vote", fresh.Len(), aged.Len())
	}
	if aged.Samples != fresh.Samples {
		return nil, puferr.ErrSampleCountMismatch
	}
	out := make(Vector, aged.Len())
	for i := range out {
		switch diff := aged.Counts[i] - fresh.Counts[i]; {
		case diff < 0:
			out[i] = One
		case diff > 0:
			out[i] = Zero
		default:
			out[i] = Ambiguous
		}
	}
	return out, nil
}

// zeroCounts returns n - weight per position: how many samples read zero.
func zeroCounts(w aggregate.WeightVector) ([]int, error) {
	if w.Samples <= 0 {
		return nil, puferr.ErrEmptySampleSet
	}
	out := make([]int, w.Len())
	for i, c := range w.Counts {
		if c < 0 || c > w.Samples {
			return nil, fmt.Errorf("weight %d at position %d outside [0,%d]", c, i, w.Samples)
		}
		out[i] = w.Samples - c
	}
	return out, nil
}

// Frequencies returns 1 - weight/n per position: the fraction of samples
// that read zero.
func Frequencies(w aggregate.WeightVector) ([]float64, error) {
	zeros, err := zeroCounts(w)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(zeros))
	n := float64(w.Samples)
	for i, z := range zeros {
		out[i] = float64(z) / n
	}
	return out, nil
}

// Intensities is Frequencies scaled to 0..255 and truncated, computed in
// integers so it is exactly 255 - ceil(weight*255/n). Cells that always read
// one are black and cells that never do are white.
func Intensities(w aggregate.WeightVector) ([]uint8, error) {
	zeros, err := zeroCounts(w)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, len(zeros))
	for i, z := range zeros {
		out[i] = uint8(z * 255 / w.Samples)
	}
	return out, nil
}
