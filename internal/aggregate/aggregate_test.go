package aggregate

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
)

func randomSamples(r *rand.Rand, n, width int) []bitstream.BitVector {
	out := make([]bitstream.BitVector, n)
	for i := range out {
		bits := make([]uint8, width)
		for j := range bits {
			bits[j] = uint8(r.Intn(2))
		}
		out[i] = bitstream.FromBits(bits)
	}
	return out
}

func TestSum_Counts(t *testing.T) {
	samples := []bitstream.BitVector{
		bitstream.FromBits([]uint8{1, 0, 1, 0}),
		bitstream.FromBits([]uint8{1, 1, 0, 0}),
		bitstream.FromBits([]uint8{1, 0, 0, 0}),
	}
	w, err := Sum(samples)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1, 0}, w.Counts)
	assert.Equal(t, 3, w.Samples)
}

func TestSum_Errors(t *testing.T) {
	_, err := Sum(nil)
	assert.True(t, errors.Is(err, puferr.ErrEmptySampleSet))

	_, err = Sum([]bitstream.BitVector{
		bitstream.FromBits([]uint8{1, 0}),
		bitstream.FromBits([]uint8{1, 0, 1}),
	})
	assert.True(t, errors.Is(err, puferr.ErrLengthMismatch))
	var le *puferr.LengthError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Index)
}

func TestSum_PermutationInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	samples := randomSamples(r, 9, 300)

	want, err := Sum(samples)
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		shuffled := append([]bitstream.BitVector(nil), samples...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Sum(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestConcurrent_MatchesSequential(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	samples := randomSamples(r, 13, 513)

	want, err := Sum(samples)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 3, 5, 13, 64} {
		got, err := Concurrent(samples, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	samples := randomSamples(r, 6, 64)

	a, _ := Sum(samples[:2])
	b, _ := Sum(samples[2:4])
	c, _ := Sum(samples[4:])

	ab, err := a.Merge(b)
	require.NoError(t, err)
	abc, err := ab.Merge(c)
	require.NoError(t, err)

	cb, _ := c.Merge(b)
	cba, _ := cb.Merge(a)

	assert.Equal(t, abc, cba)
	all, _ := Sum(samples)
	assert.Equal(t, all, abc)

	_, err = a.Merge(WeightVector{Counts: make([]int, 3)})
	assert.True(t, errors.Is(err, puferr.ErrLengthMismatch))
}

func TestNewSampleSet(t *testing.T) {
	s, err := NewSampleSet("fresh", "chip1", ConditionNew, []bitstream.BitVector{
		bitstream.FromBits([]uint8{0, 1}),
		bitstream.FromBits([]uint8{1, 1}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 2, s.Width())

	for _, workers := range []int{0, 1, 4} {
		w, err := s.Weights(workers)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, w.Counts)
		assert.Equal(t, 2, w.Samples)
	}

	_, err = NewSampleSet("empty", "chip1", ConditionAged, nil)
	assert.True(t, errors.Is(err, puferr.ErrEmptySampleSet))
}
