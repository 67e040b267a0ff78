package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/pipeline"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/render"
)

var (
	flagBitmapSamples string
	flagBitmapRegion  string
	flagBitmapRegions []string
	flagBitmapAlpha   float64
)

var bitmapCmd = &cobra.Command{
	Use:   "bitmap",
	Short: "Render captures as bitmaps",
	Long: `Render power-up captures for visual inspection.

  chip     one region, segments tiled into a mosaic
  overlay  two regions blended segment by segment
  image    any capture on a near-square grid

With a single sample, chip and overlay draw bits directly (1 black, 0 white).
With several samples they draw the zero frequency of every bit.`,
}

var bitmapChipCmd = &cobra.Command{
	Use:   "chip <folder>",
	Short: "Tile the segments of one region",
	Args:  cobra.ExactArgs(1),
	RunE:  runBitmapChip,
}

var bitmapOverlayCmd = &cobra.Command{
	Use:   "overlay <folder>",
	Short: "Blend two regions segment by segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runBitmapOverlay,
}

var bitmapImageCmd = &cobra.Command{
	Use:   "image <capture>",
	Short: "Render a whole capture on a near-square grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runBitmapImage,
}

func init() {
	for _, c := range []*cobra.Command{bitmapChipCmd, bitmapOverlayCmd} {
		c.Flags().StringVar(&flagBitmapSamples, "samples", "all", "Samples <folder>_<i>.csv to use: 'all', 'N' or 'N-M'")
	}
	bitmapChipCmd.Flags().StringVar(&flagBitmapRegion, "region", "", "Region to render (default: first configured region)")
	bitmapOverlayCmd.Flags().StringSliceVar(&flagBitmapRegions, "regions", nil, "The two regions to blend (default: first two configured)")
	bitmapOverlayCmd.Flags().Float64Var(&flagBitmapAlpha, "alpha", 0.5, "Weight of the second region")
	bitmapCmd.AddCommand(bitmapChipCmd, bitmapOverlayCmd, bitmapImageCmd)
	rootCmd.AddCommand(bitmapCmd)
}

func runBitmapChip(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	folder := args[0]
	region := flagBitmapRegion
	if region == "" {
		region = appCfg.Geometry.Regions[0]
	}

	paths, err := selectSamples(folder, flagBitmapSamples)
	if err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}

	printSection("Chip Bitmap")
	printInfo(region, fmt.Sprintf("%d sample(s) from %s", len(paths), folder))
	tiles, err := regionTiles(ctx, p, capture.Sources(paths), []string{region})
	if err != nil {
		return err
	}
	mosaic, err := render.Tile(tiles[0], appCfg.Render.GridCols, render.RecoveryPalette.Background)
	if err != nil {
		return err
	}
	return saveImage(ctx, fmt.Sprintf("%s_%s_bitmap", sampleBase(folder), region), mosaic)
}

func runBitmapOverlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	folder := args[0]
	regions := flagBitmapRegions
	if len(regions) == 0 {
		regions = appCfg.Geometry.Regions
	}
	if len(regions) < 2 {
		return fmt.Errorf("overlay needs two regions, have %v", regions)
	}
	regions = regions[:2]

	paths, err := selectSamples(folder, flagBitmapSamples)
	if err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}

	printSection("Overlay Bitmap")
	printInfo("", fmt.Sprintf("%d sample(s) from %s, %s over %s", len(paths), folder, regions[1], regions[0]))
	tiles, err := regionTiles(ctx, p, capture.Sources(paths), regions)
	if err != nil {
		return err
	}
	if len(tiles[0]) != len(tiles[1]) {
		return fmt.Errorf("regions have %d and %d segments: %w", len(tiles[0]), len(tiles[1]), puferr.ErrLengthMismatch)
	}
	blended := make([]*render.Grid, len(tiles[0]))
	for i := range blended {
		if blended[i], err = render.Blend(tiles[0][i], tiles[1][i], flagBitmapAlpha); err != nil {
			return err
		}
	}
	mosaic, err := render.Tile(blended, appCfg.Render.GridCols, render.RecoveryPalette.Background)
	if err != nil {
		return err
	}
	return saveImage(ctx, sampleBase(folder)+"_overlay_bitmap", mosaic)
}

func runBitmapImage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bits, err := capture.LoadBits(args[0])
	if err != nil {
		return err
	}
	w, h := render.SquareSize(bits.Len())
	if w == 0 {
		return fmt.Errorf("%s: %w", args[0], puferr.ErrEmptyInput)
	}
	printSection("Image Bitmap")
	printInfo("", fmt.Sprintf("%s bits on a %dx%d grid", formatCount(bits.Len()), w, h))
	grid := render.Bits(bits, w, h, render.RecoveryPalette)
	return saveImage(ctx, capture.StripExt(filepath.Base(args[0]))+"_image_bitmap", grid)
}

// regionTiles renders one tile per segment for each region. A single
// sample is drawn as bits; several samples as zero-frequency intensities.
func regionTiles(ctx context.Context, p *pipeline.Pipeline, sources []pipeline.Source, regions []string) ([][]*render.Grid, error) {
	geom := p.Geometry()
	tw, th := appCfg.Render.TileWidth, appCfg.Render.TileHeight
	out := make([][]*render.Grid, len(regions))

	if len(sources) == 1 {
		caps, err := p.Decode(ctx, sources)
		if err != nil {
			return nil, err
		}
		for i, region := range regions {
			bits, padded, err := caps[0].Bits(region)
			if err != nil {
				return nil, err
			}
			if padded > 0 {
				printWarn(region, fmt.Sprintf("%s bits zero-padded", formatCount(padded)))
			}
			segs, err := geom.Segments(bits)
			if err != nil {
				return nil, err
			}
			for _, seg := range segs {
				out[i] = append(out[i], render.Bits(seg, tw, th, render.RecoveryPalette))
			}
		}
		return out, nil
	}

	results, err := p.Distributions(ctx, sources, regions)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		if res.Padded > 0 {
			printWarn(res.Region, fmt.Sprintf("%s bits zero-padded", formatCount(res.Padded)))
		}
		bounds, err := segmentBounds(geom, len(res.Intensities))
		if err != nil {
			return nil, err
		}
		for _, b := range bounds {
			out[i] = append(out[i], render.Intensities(res.Intensities[b[0]:b[1]], tw, th, render.RecoveryPalette.Background))
		}
	}
	return out, nil
}

// segmentBounds returns [start, end) of each segment of an n-bit region,
// following the geometry's segment policy.
func segmentBounds(geom bitstream.Geometry, n int) ([][2]int, error) {
	if n == 0 {
		return nil, puferr.ErrEmptyInput
	}
	if n%geom.SegmentBits != 0 && geom.Policy == bitstream.SegmentStrict {
		return nil, &puferr.SegmentError{RegionBits: n, SegmentBits: geom.SegmentBits}
	}
	var out [][2]int
	for start := 0; start < n; start += geom.SegmentBits {
		out = append(out, [2]int{start, min(start+geom.SegmentBits, n)})
	}
	return out, nil
}

// selectSamples resolves "all", "N" or "N-M" to <folder>/<base>_<i>.csv
// paths, where base is the folder's own name.
func selectSamples(folder, spec string) ([]string, error) {
	base := sampleBase(folder)
	if spec == "" || spec == "all" {
		paths, err := capture.DiscoverPrefixed(folder, base)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no %s_*.csv captures in %s", base, folder)
		}
		return paths, nil
	}
	start, end, err := capture.ParseRange(spec)
	if err != nil {
		return nil, err
	}
	return capture.SelectRange(folder, base, start, end)
}

func sampleBase(folder string) string {
	return filepath.Base(filepath.Clean(folder))
}
