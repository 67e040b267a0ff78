// Package render lays value arrays out as grayscale pixel grids and
// composes grids into mosaics. Writing a grid anywhere is left to a Sink.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/vote"
)

// ErrTileOutOfRange is returned when a mosaic placement falls outside the
// mosaic.
var ErrTileOutOfRange = errors.New("tile position out of range")

// Grid is a row-major 8-bit grayscale raster.
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrid returns a grid filled with background.
func NewGrid(width, height int, background uint8) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{Width: width, Height: height, Pix: make([]uint8, width*height)}
	if background != 0 {
		for i := range g.Pix {
			g.Pix[i] = background
		}
	}
	return g
}

// At returns the pixel at column x, row y.
func (g *Grid) At(x, y int) uint8 { return g.Pix[y*g.Width+x] }

// Set writes the pixel at column x, row y.
func (g *Grid) Set(x, y int, v uint8) { g.Pix[y*g.Width+x] = v }

// Image converts the grid to a standard library image sharing no memory.
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+g.Width], g.Pix[y*g.Width:(y+1)*g.Width])
	}
	return img
}

// Palette maps ternary values to gray levels.
type Palette struct {
	One        uint8
	Zero       uint8
	Ambiguous  uint8
	Background uint8
}

// RecoveryPalette draws ones black and zeros white on a white background,
// with undecided cells mid-gray.
var RecoveryPalette = Palette{One: 0, Zero: 255, Ambiguous: 128, Background: 255}

func (p Palette) vote(v vote.Vote) uint8 {
	switch v {
	case vote.One:
		return p.One
	case vote.Zero:
		return p.Zero
	}
	return p.Ambiguous
}

// Votes lays a vote vector out row by row. Values past width*height are
// dropped and pixels past the vector keep the background.
func Votes(v vote.Vector, width, height int, p Palette) *Grid {
	g := NewGrid(width, height, p.Background)
	n := min(len(v), len(g.Pix))
	for i := 0; i < n; i++ {
		g.Pix[i] = p.vote(v[i])
	}
	return g
}

// Bits lays a binary vector out row by row.
func Bits(b bitstream.BitVector, width, height int, p Palette) *Grid {
	g := NewGrid(width, height, p.Background)
	n := min(b.Len(), len(g.Pix))
	for i := 0; i < n; i++ {
		if b.Test(i) {
			g.Pix[i] = p.One
		} else {
			g.Pix[i] = p.Zero
		}
	}
	return g
}

// Intensities lays 0..255 values out row by row.
func Intensities(vals []uint8, width, height int, background uint8) *Grid {
	g := NewGrid(width, height, background)
	copy(g.Pix, vals)
	return g
}

// SquareSize picks a grid for n values: the width is floor(sqrt(n)) and the
// height is just enough rows to hold them all.
func SquareSize(n int) (width, height int) {
	if n <= 0 {
		return 0, 0
	}
	width = int(math.Sqrt(float64(n)))
	for width*width > n {
		width--
	}
	for (width+1)*(width+1) <= n {
		width++
	}
	height = (n + width - 1) / width
	return width, height
}

// Placement puts a tile at a (row, column) cell of a mosaic.
type Placement struct {
	Row  int
	Col  int
	Tile *Grid
}

// Mosaic composes equal-size tiles into a rows x cols mosaic. Cells with no
// placement keep the background.
func Mosaic(rows, cols, tileWidth, tileHeight int, background uint8, tiles []Placement) (*Grid, error) {
	out := NewGrid(cols*tileWidth, rows*tileHeight, background)
	for _, p := range tiles {
		if p.Row < 0 || p.Row >= rows || p.Col < 0 || p.Col >= cols {
			return nil, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrTileOutOfRange, p.Row, p.Col, rows, cols)
		}
		if p.Tile.Width != tileWidth || p.Tile.Height != tileHeight {
			return nil, fmt.Errorf("tile at (%d,%d) is %dx%d, want %dx%d: %w",
				p.Row, p.Col, p.Tile.Width, p.Tile.Height, tileWidth, tileHeight, puferr.ErrLengthMismatch)
		}
		x0, y0 := p.Col*tileWidth, p.Row*tileHeight
		for y := 0; y < tileHeight; y++ {
			dst := out.Pix[(y0+y)*out.Width+x0 : (y0+y)*out.Width+x0+tileWidth]
			copy(dst, p.Tile.Pix[y*tileWidth:(y+1)*tileWidth])
		}
	}
	return out, nil
}

// Tile places tiles row-major into a mosaic with cols columns.
func Tile(tiles []*Grid, cols int, background uint8) (*Grid, error) {
	if len(tiles) == 0 {
		return nil, puferr.ErrEmptyInput
	}
	if cols <= 0 {
		return nil, fmt.Errorf("mosaic needs at least one column, got %d", cols)
	}
	rows := (len(tiles) + cols - 1) / cols
	placements := make([]Placement, len(tiles))
	for i, t := range tiles {
		placements[i] = Placement{Row: i / cols, Col: i % cols, Tile: t}
	}
	return Mosaic(rows, cols, tiles[0].Width, tiles[0].Height, background, placements)
}

// Blend mixes two equal-size grids: a*(1-alpha) + b*alpha, rounded.
func Blend(a, b *Grid, alpha float64) (*Grid, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("blend %dx%d with %dx%d: %w", a.Width, a.Height, b.Width, b.Height, puferr.ErrLengthMismatch)
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("blend alpha %v outside [0,1]", alpha)
	}
	out := NewGrid(a.Width, a.Height, 0)
	for i := range out.Pix {
		v := float64(a.Pix[i])*(1-alpha) + float64(b.Pix[i])*alpha
		out.Pix[i] = uint8(math.Round(v))
	}
	return out, nil
}

// Sink receives finished grids. Implementations decide the encoding and
// where the bytes end up.
type Sink interface {
	Write(ctx context.Context, name string, g *Grid) error
}
