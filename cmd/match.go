package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/pipeline"
	"github.com/sramlab/pufrecon/internal/vote"
)

var (
	flagMatchRegion string
	flagMatchRef    string
	flagMatchReport string
)

var matchCmd = &cobra.Command{
	Use:   "match <read-capture>",
	Short: "Compare a single read-back capture with the written pattern",
	Long: `Score one region of a read-back capture against the pattern that was
written, period by period. No voting is involved.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&flagMatchRegion, "region", "", "Region to evaluate (default: first configured region)")
	f.StringVar(&flagMatchRef, "reference", "", "Written pattern (default from config)")
	f.StringVar(&flagMatchReport, "report", "", "Write a JSON report to this file")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	region := flagMatchRegion
	if region == "" {
		region = appCfg.Geometry.Regions[0]
	}

	// A reference is required here, so a missing file always fails.
	ref, ok, err := loadReference(referencePath(cmd, flagMatchRef), true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no reference configured: pass --reference")
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	caps, err := p.Decode(ctx, []pipeline.Source{capture.FileSource{Path: args[0]}})
	if err != nil {
		return err
	}
	bits, padded, err := caps[0].Bits(region)
	if err != nil {
		return err
	}
	if padded > 0 {
		printWarn(region, fmt.Sprintf("%s bits zero-padded", formatCount(padded)))
	}

	printSection(fmt.Sprintf("Segment-wise Similarity (read vs written), %s", region))
	rep := newRunReport("match")
	rep.Regions = []string{region}
	rep.Samples = 1
	rep.Padded = padded
	read := vote.FromBits(bits)
	rep.setVotes(read)
	if err := rep.scoreAgainst(read, ref); err != nil {
		return err
	}
	return rep.write(flagMatchReport)
}
