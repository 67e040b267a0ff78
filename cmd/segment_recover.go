package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/pipeline"
	"github.com/sramlab/pufrecon/internal/render"
)

var (
	flagSegRecSegments string
	flagSegRecRef      string
	flagSegRecName     string
	flagSegRecReport   string
)

var segmentRecoverCmd = &cobra.Command{
	Use:   "segment-recover <new-base> <aged-base>",
	Short: "Recover one segment by majority over per-segment differential votes",
	Long: `Vote each selected segment of the exported captures in <new-base>_SEGMENTS
and <aged-base>_SEGMENTS (see 'pufrecon split'), then combine the segment
votes by majority. The consensus is scored against a single-segment
reference and rendered as one tile.

Segments are chosen with --segments, e.g. "2,4,7" or "all".`,
	Args: cobra.ExactArgs(2),
	RunE: runSegmentRecover,
}

func init() {
	f := segmentRecoverCmd.Flags()
	f.StringVar(&flagSegRecSegments, "segments", "all", "Segments to combine: comma-separated numbers or 'all'")
	f.StringVar(&flagSegRecRef, "reference", "", "Reference capture to score against (default from config)")
	f.StringVar(&flagSegRecName, "name", "segment_consensus", "Image name")
	f.StringVar(&flagSegRecReport, "report", "", "Write a JSON report to this file")
	rootCmd.AddCommand(segmentRecoverCmd)
}

func runSegmentRecover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	newDir := args[0] + capture.SegmentDirSuffix
	agedDir := args[1] + capture.SegmentDirSuffix
	for _, d := range []string{newDir, agedDir} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			return fmt.Errorf("folder %s does not exist", d)
		}
	}

	selected, err := parseSegmentList(flagSegRecSegments, appCfg.Segments)
	if err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}

	printSection("Segment Recovery")
	rep := newRunReport("segment-recover")
	var pairs []pipeline.Pair
	for _, n := range selected {
		label := fmt.Sprintf("segment %d", n)
		fresh, err := capture.SegmentFiles(newDir, n)
		if err != nil {
			return err
		}
		aged, err := capture.SegmentFiles(agedDir, n)
		if err != nil {
			return err
		}
		if len(fresh) == 0 || len(aged) == 0 {
			printWarn(label, "missing files in the new or aged folder, skipped")
			continue
		}
		pairs = append(pairs, pipeline.Pair{
			Label:  label,
			Region: pipeline.WholeCapture,
			Fresh:  capture.Sources(fresh),
			Aged:   capture.Sources(aged),
		})
		rep.Segments = append(rep.Segments, n)
		rep.Samples += len(fresh)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no segment data found in %s and %s", newDir, agedDir)
	}

	combined, per, err := p.Consensus(ctx, pairs)
	if err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Combined %d segment votes by majority", len(per)))
	printVoteStats("", combined)
	rep.setVotes(combined)

	ref, ok, err := loadReference(referencePath(cmd, flagSegRecRef), cmd.Flags().Changed("reference"))
	if err != nil {
		return err
	}
	if ok {
		printSection("Recovery Accuracy")
		if err := rep.scoreAgainst(combined, ref); err != nil {
			return err
		}
	}

	grid := render.Votes(combined, appCfg.Render.TileWidth, appCfg.Render.TileHeight, render.RecoveryPalette)
	if err := saveImage(ctx, flagSegRecName, grid); err != nil {
		return err
	}
	return rep.write(flagSegRecReport)
}

// parseSegmentList parses "all" or a comma-separated list of 1-based
// segment numbers. Duplicates are dropped and the result is sorted.
func parseSegmentList(s string, total int) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	seen := map[int]bool{}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid segment %q", part)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no segments selected")
	}
	sort.Ints(out)
	return out, nil
}
