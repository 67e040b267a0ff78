package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/pipeline"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <capture>",
	Short: "Show the size and bit balance of a capture",
	Long: `Decode one capture and print how it maps onto the configured geometry:
total bits, padding or discarded bits, and the fraction of ones in each
region and segment.

Example:
  pufrecon inspect NEW/NEW_1.csv
  pufrecon inspect run7.csv.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	geom := p.Geometry()
	caps, err := p.Decode(cmd.Context(), []pipeline.Source{capture.FileSource{Path: args[0]}})
	if err != nil {
		return err
	}
	c := caps[0]
	split, err := c.Split()
	if err != nil {
		return err
	}

	printSection(c.Name)
	printInfo("", fmt.Sprintf("%s bits decoded, geometry expects %s", formatCount(c.Full.Len()), formatCount(geom.TotalBits())))
	if split.Padded > 0 {
		printWarn("", fmt.Sprintf("%s bits missing, regions would be zero-padded", formatCount(split.Padded)))
	}
	if split.Discarded > 0 {
		printWarn("", fmt.Sprintf("%s trailing bits fall outside every region", formatCount(split.Discarded)))
	}

	for _, r := range split.Regions {
		fmt.Println()
		printOK(r.Name, fmt.Sprintf("offset %s, %.4f ones", formatCount(r.Offset), onesFraction(r.Bits.Count(), r.Bits.Len())))
		segs, err := geom.Segments(r.Bits)
		if err != nil {
			printWarn(r.Name, err.Error())
			continue
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  SEGMENT\tBITS\tONES")
		for i, s := range segs {
			fmt.Fprintf(tw, "  %02d\t%s\t%.4f\n", i+1, formatCount(s.Len()), onesFraction(s.Count(), s.Len()))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func onesFraction(ones, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(ones) / float64(n)
}
