package bitstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramlab/pufrecon/internal/puferr"
)

func TestDecode_MSBFirstInRecordOrder(t *testing.T) {
	records := []Record{
		{Address: 1, Word: "80"},
		{Address: 0, Word: "0f"},
	}
	v, err := Decode(records)
	require.NoError(t, err)
	assert.Equal(t, []uint8{
		1, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 1, 1, 1,
	}, v.Bits())
}

func TestDecode_Words(t *testing.T) {
	tests := []struct {
		name string
		word string
		ok   bool
		want byte
	}{
		{"Lower", "ff", true, 0xff},
		{"Upper", "A5", true, 0xa5},
		{"SingleDigit", "7", true, 0x07},
		{"Padded", " 3c ", true, 0x3c},
		{"Empty", "", false, 0},
		{"TooLong", "100", false, 0},
		{"NotHex", "zz", false, 0},
		{"Sign", "-1", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseWord(tt.word)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecode_MalformedRecord(t *testing.T) {
	_, err := Decode([]Record{{Address: 0, Word: "00"}, {Address: 1, Word: "g1"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, puferr.ErrMalformedRecord))

	var re *puferr.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, "g1", re.Word)
}

func TestBitVector_SliceConcatComplement(t *testing.T) {
	v := FromBits([]uint8{1, 0, 1, 1, 0, 0, 1, 0, 1})
	assert.Equal(t, 9, v.Len())
	assert.Equal(t, 5, v.Count())
	assert.Equal(t, []uint8{1, 1, 0}, v.Slice(2, 5).Bits())

	joined := Concat(v.Slice(0, 4), v.Slice(4, 9))
	assert.True(t, joined.Equal(v))

	c := v.Complement()
	assert.Equal(t, 4, c.Count())
	for i := 0; i < v.Len(); i++ {
		assert.NotEqual(t, v.Bit(i), c.Bit(i))
	}
}

func TestBuilder_TrimsToLength(t *testing.T) {
	b := NewBuilder(64)
	b.AppendBit(true)
	b.AppendBit(false)
	v := b.Build()
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 1, v.Complement().Count())
	assert.Equal(t, 0, b.Len())
}

func TestSplitRegions_FullCapture(t *testing.T) {
	g := DefaultGeometry()
	g.RegionBits = 1_048_576

	bld := NewBuilder(2 * g.RegionBits)
	for i := 0; i < 2*g.RegionBits/8; i++ {
		bld.AppendByte(byte(i))
	}
	full := bld.Build()
	require.Equal(t, 2_097_152, full.Len())

	split, err := g.SplitRegions(full)
	require.NoError(t, err)
	require.Len(t, split.Regions, 2)

	c1, ok := split.Region("chip1")
	require.True(t, ok)
	c2, ok := split.Region("chip2")
	require.True(t, ok)

	assert.Equal(t, 0, c1.Offset)
	assert.Equal(t, 1_048_576, c2.Offset)
	assert.Equal(t, 1_048_576, c1.Bits.Len())
	assert.Equal(t, 1_048_576, c2.Bits.Len())
	assert.Zero(t, split.Padded)
	assert.Zero(t, split.Discarded)
	assert.True(t, c2.Bits.Equal(full.Slice(1_048_576, 2_097_152)))
}

func TestSplitRegions_PadsAndDiscards(t *testing.T) {
	g := Geometry{RegionBits: 8, SegmentBits: 4, Regions: []string{"chip1", "chip2"}}

	short := fromBytes([]byte{0xff, 0xf0})
	split, err := g.SplitRegions(short.Slice(0, 12))
	require.NoError(t, err)
	assert.Equal(t, 4, split.Padded)
	c2, _ := split.Region("chip2")
	assert.Equal(t, 4, c2.Padded)
	assert.Equal(t, []uint8{1, 1, 1, 1, 0, 0, 0, 0}, c2.Bits.Bits())

	long := fromBytes([]byte{0x01, 0x02, 0x03})
	split, err = g.SplitRegions(long)
	require.NoError(t, err)
	assert.Zero(t, split.Padded)
	assert.Equal(t, 8, split.Discarded)

	split, err = g.SplitRegions(BitVector{})
	require.NoError(t, err)
	assert.Equal(t, 16, split.Padded)
}

func TestSegments_Policy(t *testing.T) {
	region := FromBits([]uint8{1, 0, 1, 0, 1, 1, 1, 0, 0, 1})

	strict := Geometry{SegmentBits: 4, Policy: SegmentStrict}
	_, err := strict.Segments(region)
	assert.True(t, errors.Is(err, puferr.ErrSegmentSizeMismatch))

	loose := Geometry{SegmentBits: 4, Policy: SegmentAllowShortLast}
	segs, err := loose.Segments(region)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, 4, segs[0].Len())
	assert.Equal(t, 2, segs[2].Len())

	even := Geometry{SegmentBits: 5}
	segs, err = even.Segments(region)
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	_, err = even.Segments(BitVector{})
	assert.True(t, errors.Is(err, puferr.ErrEmptyInput))
}

func TestGeometry_Validate(t *testing.T) {
	assert.NoError(t, DefaultGeometry().Validate())
	assert.Equal(t, 16, DefaultGeometry().SegmentCount())

	g := DefaultGeometry()
	g.RegionBits = 131070 * 8
	assert.True(t, errors.Is(g.Validate(), puferr.ErrSegmentSizeMismatch))

	g.Policy = SegmentAllowShortLast
	assert.NoError(t, g.Validate())
	assert.Equal(t, 16, g.SegmentCount())

	g.Regions = []string{"chip1", "chip1"}
	assert.Error(t, g.Validate())
}

func TestChunk_ShortTail(t *testing.T) {
	v := fromBytes([]byte{0xaa, 0x55, 0x0f})
	parts := Chunk(v, 16, 3)
	require.Len(t, parts, 3)
	assert.Equal(t, 16, parts[0].Len())
	assert.Equal(t, 8, parts[1].Len())
	assert.Equal(t, 0, parts[2].Len())
}

func TestParseSegmentPolicy(t *testing.T) {
	p, err := ParseSegmentPolicy("allow-short-last")
	require.NoError(t, err)
	assert.Equal(t, SegmentAllowShortLast, p)
	assert.Equal(t, "allow-short-last", p.String())

	_, err = ParseSegmentPolicy("sometimes")
	assert.Error(t, err)
}

// fromBytes expands data into bits, most significant bit first.
func fromBytes(data []byte) BitVector {
	bld := NewBuilder(len(data) * 8)
	for _, c := range data {
		bld.AppendByte(c)
	}
	return bld.Build()
}
