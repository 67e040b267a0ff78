package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/pipeline"
	"github.com/sramlab/pufrecon/internal/render"
)

var (
	flagRecoverNew     string
	flagRecoverAged    string
	flagRecoverRegions []string
	flagRecoverPairs   []string
	flagRecoverRef     string
	flagRecoverName    string
	flagRecoverReport  string
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Recover imprinted data by differential voting of new vs aged captures",
	Long: `Sum the new and aged power-up captures bit by bit and vote on the sign of
the change: a bit that powers up as 1 less often after aging was written as 1.

Several regions, possibly from different capture folders, are recovered in
order and joined into one composite before scoring and rendering:

  pufrecon recover --new NEW --aged AGED --region chip1 --region chip2
  pufrecon recover --pair NEW_A,AGED_A,chip1 --pair NEW_B,AGED_B,chip2

The composite is scored against the reference period by period and saved
as <name>recovered.png.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() {
	f := recoverCmd.Flags()
	f.StringVar(&flagRecoverNew, "new", "", "Folder of new (pre-aging) captures")
	f.StringVar(&flagRecoverAged, "aged", "", "Folder of aged captures")
	f.StringSliceVar(&flagRecoverRegions, "region", nil, "Region(s) to recover from --new/--aged (default: first configured region)")
	f.StringArrayVar(&flagRecoverPairs, "pair", nil, "NEW_DIR,AGED_DIR,REGION; repeat to build a composite")
	f.StringVar(&flagRecoverRef, "reference", "", "Reference capture to score against (default from config)")
	f.StringVar(&flagRecoverName, "name", "", "Image name prefix, saved as <name>recovered.png")
	f.StringVar(&flagRecoverReport, "report", "", "Write a JSON report to this file")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	pairs, err := recoverPairs()
	if err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}

	printSection("Recover")
	rep := newRunReport("recover")
	for _, pr := range pairs {
		printInfo(pr.Label, fmt.Sprintf("%d new / %d aged captures", len(pr.Fresh), len(pr.Aged)))
		rep.Regions = append(rep.Regions, pr.Region)
		rep.Samples += len(pr.Fresh)
	}

	votes, padded, err := p.Composite(ctx, pairs)
	if err != nil {
		return err
	}
	printVoteStats("", votes)
	if padded > 0 {
		printWarn("", fmt.Sprintf("%s bits zero-padded: captures are shorter than the configured geometry", formatCount(padded)))
	}
	rep.Padded = padded
	rep.setVotes(votes)

	ref, ok, err := loadReference(referencePath(cmd, flagRecoverRef), cmd.Flags().Changed("reference"))
	if err != nil {
		return err
	}
	if ok {
		printSection("Segment-wise Recovery Rates")
		if err := rep.scoreAgainst(votes, ref); err != nil {
			return err
		}
	}

	grid := render.Votes(votes, appCfg.Render.Width, appCfg.Render.Height, render.RecoveryPalette)
	if err := saveImage(ctx, flagRecoverName+"recovered", grid); err != nil {
		return err
	}
	return rep.write(flagRecoverReport)
}

// recoverPairs turns --pair and --new/--aged/--region into pipeline pairs,
// in the order given.
func recoverPairs() ([]pipeline.Pair, error) {
	var pairs []pipeline.Pair
	for _, pair := range flagRecoverPairs {
		parts := strings.Split(pair, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --pair %q (want NEW_DIR,AGED_DIR,REGION)", pair)
		}
		pr, err := folderPair(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pr)
	}

	if flagRecoverNew != "" || flagRecoverAged != "" {
		if flagRecoverNew == "" || flagRecoverAged == "" {
			return nil, fmt.Errorf("--new and --aged must be given together")
		}
		regions := flagRecoverRegions
		if len(regions) == 0 {
			regions = appCfg.Geometry.Regions[:1]
		}
		for _, region := range regions {
			pr, err := folderPair(flagRecoverNew, flagRecoverAged, region)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pr)
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("nothing to recover: pass --new/--aged or --pair")
	}
	return pairs, nil
}

func folderPair(newDir, agedDir, region string) (pipeline.Pair, error) {
	fresh, err := capture.DiscoverSamples(newDir)
	if err != nil {
		return pipeline.Pair{}, err
	}
	if len(fresh) == 0 {
		return pipeline.Pair{}, fmt.Errorf("no capture files found in %s", newDir)
	}
	aged, err := capture.DiscoverSamples(agedDir)
	if err != nil {
		return pipeline.Pair{}, err
	}
	if len(aged) == 0 {
		return pipeline.Pair{}, fmt.Errorf("no capture files found in %s", agedDir)
	}
	return pipeline.Pair{
		Label:  region,
		Region: region,
		Fresh:  capture.Sources(fresh),
		Aged:   capture.Sources(aged),
	}, nil
}

// referencePath returns the flag value when set, otherwise the configured
// reference.
func referencePath(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("reference") {
		return flagValue
	}
	return appCfg.Reference
}
