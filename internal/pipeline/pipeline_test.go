package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/vote"
)

type memSource struct {
	name  string
	words []string
	err   error
}

func (m memSource) Name() string { return m.name }

func (m memSource) Records(context.Context) ([]bitstream.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]bitstream.Record, len(m.words))
	for i, w := range m.words {
		out[i] = bitstream.Record{Address: i, Word: w}
	}
	return out, nil
}

// sources builds one capture per word; chip1 holds the word, chip2 is zero.
func sources(prefix string, words ...string) []Source {
	out := make([]Source, len(words))
	for i, w := range words {
		out[i] = memSource{name: fmt.Sprintf("%s_%d", prefix, i+1), words: []string{w, "00"}}
	}
	return out
}

func testGeometry() bitstream.Geometry {
	return bitstream.Geometry{RegionBits: 8, SegmentBits: 4, Regions: []string{"chip1", "chip2"}}
}

func TestRun_Differential(t *testing.T) {
	p := New(testGeometry(), WithWorkers(2))

	// chip1 bit 0: new reads one 3/3, aged 2/3 → One
	// chip1 bit 7: new reads one 0/3, aged 2/3 → Zero
	fresh := sources("new", "80", "80", "80")
	aged := sources("aged", "81", "01", "80")

	res, err := p.Run(context.Background(), Request{Mode: Differential, Region: "chip1", Fresh: fresh, Aged: aged})
	require.NoError(t, err)
	require.Len(t, res.Votes, 8)
	assert.Equal(t, vote.One, res.Votes[0])
	assert.Equal(t, vote.Zero, res.Votes[7])
	for i := 1; i < 7; i++ {
		assert.Equal(t, vote.Ambiguous, res.Votes[i])
	}
	assert.Equal(t, 3, res.Samples)
	assert.Zero(t, res.Padded)
}

func TestRun_DifferentialCountMismatch(t *testing.T) {
	p := New(testGeometry())
	_, err := p.Run(context.Background(), Request{
		Mode:   Differential,
		Region: "chip1",
		Fresh:  sources("new", "00", "00"),
		Aged:   sources("aged", "00"),
	})
	assert.True(t, errors.Is(err, puferr.ErrSampleCountMismatch))
}

func TestRun_Distribution(t *testing.T) {
	p := New(testGeometry())
	res, err := p.Run(context.Background(), Request{
		Mode:   Distribution,
		Region: "chip1",
		Fresh:  sources("s", "ff", "f0", "00", "00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Samples)
	assert.Equal(t, []uint8{127, 127, 127, 127, 191, 191, 191, 191}, res.Intensities)
}

func TestDecode_PaddingSurfaced(t *testing.T) {
	p := New(testGeometry())
	short := []Source{memSource{name: "short", words: []string{"ff"}}}

	res, err := p.Run(context.Background(), Request{Mode: Distribution, Region: "chip2", Fresh: short})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Padded)
}

func TestDecode_Failures(t *testing.T) {
	p := New(testGeometry())

	_, err := p.Decode(context.Background(), []Source{memSource{name: "bad", words: []string{"xx"}}})
	assert.True(t, errors.Is(err, puferr.ErrMalformedRecord))

	boom := errors.New("disk gone")
	_, err = p.Decode(context.Background(), []Source{memSource{name: "io", err: boom}})
	assert.True(t, errors.Is(err, boom))

	_, err = p.Aggregate(context.Background(), nil, "chip1", "")
	assert.True(t, errors.Is(err, puferr.ErrEmptySampleSet))

	_, err = p.Run(context.Background(), Request{Mode: Distribution, Region: "chip9", Fresh: sources("s", "00")})
	assert.Error(t, err)
}

func TestDecode_KeepsOrder(t *testing.T) {
	p := New(testGeometry(), WithWorkers(3))
	caps, err := p.Decode(context.Background(), sources("s", "01", "02", "03", "04", "05"))
	require.NoError(t, err)
	for i, c := range caps {
		assert.Equal(t, fmt.Sprintf("s_%d", i+1), c.Name)
	}
}

func TestConsensus_CombinesPairs(t *testing.T) {
	p := New(testGeometry())
	pairs := []Pair{
		{Label: "seg1", Region: WholeCapture, Fresh: sources("n1", "80"), Aged: sources("a1", "00")},
		{Label: "seg2", Region: WholeCapture, Fresh: sources("n2", "80"), Aged: sources("a2", "00")},
		{Label: "seg3", Region: WholeCapture, Fresh: sources("n3", "00"), Aged: sources("a3", "80")},
	}
	combined, per, err := p.Consensus(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, per, 3)
	assert.Len(t, combined, 16)
	assert.Equal(t, vote.One, combined[0])
	assert.Equal(t, vote.Ambiguous, combined[1])

	_, _, err = p.Consensus(context.Background(), nil)
	assert.True(t, errors.Is(err, puferr.ErrEmptyInput))
}

func TestComposite_Concatenates(t *testing.T) {
	p := New(testGeometry())
	pairs := []Pair{
		{Label: "chip1", Region: "chip1", Fresh: sources("n", "80"), Aged: sources("a", "00")},
		{Label: "chip2", Region: "chip2", Fresh: sources("n", "80"), Aged: sources("a", "00")},
	}
	votes, padded, err := p.Composite(context.Background(), pairs)
	require.NoError(t, err)
	assert.Len(t, votes, 16)
	assert.Zero(t, padded)
	assert.Equal(t, vote.One, votes[0])
	assert.Equal(t, vote.Ambiguous, votes[8])
}

func TestDistributions_DecodeOnce(t *testing.T) {
	p := New(testGeometry())
	res, err := p.Distributions(context.Background(), sources("s", "ff"), []string{"chip1", "chip2"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, uint8(0), res[0].Intensities[0])
	assert.Equal(t, uint8(255), res[1].Intensities[0])
}
