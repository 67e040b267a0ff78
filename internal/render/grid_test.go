package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/vote"
)

func TestVotes_PaletteAndBackground(t *testing.T) {
	v := vote.Vector{vote.One, vote.Zero, vote.Ambiguous, vote.One, vote.Zero}
	g := Votes(v, 3, 2, RecoveryPalette)
	assert.Equal(t, []uint8{0, 255, 128, 0, 255, 255}, g.Pix)

	clipped := Votes(v, 2, 1, RecoveryPalette)
	assert.Equal(t, []uint8{0, 255}, clipped.Pix)
}

func TestBits_RowMajor(t *testing.T) {
	b := bitstream.FromBits([]uint8{1, 1, 0, 0})
	g := Bits(b, 2, 2, RecoveryPalette)
	assert.Equal(t, uint8(0), g.At(1, 0))
	assert.Equal(t, uint8(255), g.At(0, 1))
}

func TestIntensities_KeepsBackground(t *testing.T) {
	g := Intensities([]uint8{10, 20, 30}, 2, 2, 7)
	assert.Equal(t, []uint8{10, 20, 30, 7}, g.Pix)
}

func TestSquareSize(t *testing.T) {
	tests := []struct {
		n, w, h int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{16, 4, 4},
		{17, 4, 5},
		{65536, 256, 256},
		{65537, 256, 257},
	}
	for _, tt := range tests {
		w, h := SquareSize(tt.n)
		assert.Equal(t, tt.w, w, "n=%d", tt.n)
		assert.Equal(t, tt.h, h, "n=%d", tt.n)
	}
}

func TestMosaic_Placement(t *testing.T) {
	a := NewGrid(2, 2, 1)
	b := NewGrid(2, 2, 2)
	m, err := Mosaic(2, 2, 2, 2, 9, []Placement{
		{Row: 0, Col: 1, Tile: a},
		{Row: 1, Col: 0, Tile: b},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, m.Width)
	assert.Equal(t, 4, m.Height)
	assert.Equal(t, uint8(9), m.At(0, 0))
	assert.Equal(t, uint8(1), m.At(3, 1))
	assert.Equal(t, uint8(2), m.At(1, 3))
	assert.Equal(t, uint8(9), m.At(3, 3))

	_, err = Mosaic(1, 1, 2, 2, 0, []Placement{{Row: 1, Col: 0, Tile: a}})
	assert.True(t, errors.Is(err, ErrTileOutOfRange))

	_, err = Mosaic(1, 1, 3, 3, 0, []Placement{{Tile: a}})
	assert.True(t, errors.Is(err, puferr.ErrLengthMismatch))
}

func TestTile_RowMajor(t *testing.T) {
	tiles := []*Grid{NewGrid(1, 1, 1), NewGrid(1, 1, 2), NewGrid(1, 1, 3)}
	m, err := Tile(tiles, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 0}, m.Pix)

	_, err = Tile(nil, 2, 0)
	assert.True(t, errors.Is(err, puferr.ErrEmptyInput))
}

func TestBlend(t *testing.T) {
	a := &Grid{Width: 2, Height: 1, Pix: []uint8{0, 255}}
	b := &Grid{Width: 2, Height: 1, Pix: []uint8{255, 255}}
	out, err := Blend(a, b, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{128, 255}, out.Pix)

	_, err = Blend(a, NewGrid(1, 1, 0), 0.5)
	assert.True(t, errors.Is(err, puferr.ErrLengthMismatch))
}

func TestGrid_Image(t *testing.T) {
	g := &Grid{Width: 2, Height: 2, Pix: []uint8{1, 2, 3, 4}}
	img := g.Image()
	assert.Equal(t, uint8(4), img.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(2), img.GrayAt(1, 0).Y)
}
