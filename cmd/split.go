package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/capture"
)

var (
	flagSplitSegments int
	flagSplitOutDir   string
)

var splitCmd = &cobra.Command{
	Use:   "split <sample-folder>",
	Short: "Export every capture in a folder as per-segment CSV files",
	Long: `Cut each capture into consecutive segments of the configured segment size
and write <sample>_Segment<i>.csv files into <sample-folder>_SEGMENTS.

Segments past the end of a capture are written short (or empty) with a
warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().IntVar(&flagSplitSegments, "segments", 0, "Segments per capture (default from config)")
	splitCmd.Flags().StringVar(&flagSplitOutDir, "out-dir", "", "Output folder (default <sample-folder>_SEGMENTS)")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	folder := filepath.Clean(args[0])

	count := flagSplitSegments
	if count <= 0 {
		count = appCfg.Segments
	}
	outDir := flagSplitOutDir
	if outDir == "" {
		outDir = folder + capture.SegmentDirSuffix
	}

	files, err := capture.DiscoverSamples(folder)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no capture files found in %s", folder)
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	size := p.Geometry().SegmentBits

	printSection("Split")
	printOK("", fmt.Sprintf("Found %d sample files in %s", len(files), folder))
	caps, err := p.Decode(ctx, capture.Sources(files))
	if err != nil {
		return err
	}

	written := 0
	for _, c := range caps {
		stem := capture.StripExt(c.Name)
		for i, seg := range bitstream.Chunk(c.Full, size, count) {
			if seg.Len() != size {
				printWarn(stem, fmt.Sprintf("segment %d has %s bits, expected %s",
					i+1, formatCount(seg.Len()), formatCount(size)))
			}
			path := filepath.Join(outDir, capture.SegmentName(stem, i+1))
			if err := capture.WriteSegmentFile(path, seg); err != nil {
				printErr(stem, err.Error())
				return err
			}
			written++
		}
	}
	printOK("", fmt.Sprintf("%d segment files saved to %s", written, outDir))
	return nil
}
