package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that pufrecon's config, output location and reference pattern are
usable. Run this command when something seems wrong, or before a long run.

Persistent flags such as --out and --sink are applied before checking, so
doctor sees the same settings the next command would.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("pufrecon doctor")
	fmt.Println()

	// ── Check 1: config file ──────────────────────────────────────────────────
	fmt.Println("[ pufrecon.yaml ]")
	cfgPath := flagConfigPath
	if cfgPath == "" {
		var err error
		if cfgPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		printWarn("", fmt.Sprintf("%s not found, using defaults (run 'pufrecon init')", cfgPath))
	} else {
		printOK("", fmt.Sprintf("found: %s", cfgPath))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		failD("invalid config: %v", err)
		fmt.Println()
		return fmt.Errorf("doctor found issues")
	}
	printOK("", "config is valid")
	fmt.Println()

	// ── Check 2: geometry ─────────────────────────────────────────────────────
	fmt.Println("[ Geometry ]")
	geom, err := cfg.Bitstream()
	if err != nil {
		failD("%v", err)
	} else {
		printOK("", fmt.Sprintf("%d region(s) %v of %s bits, %d segment(s) of %s bits (%s)",
			len(geom.Regions), geom.Regions, formatCount(geom.RegionBits),
			geom.SegmentCount(), formatCount(geom.SegmentBits), geom.Policy))
		if tiles := cfg.Render.TileWidth * cfg.Render.TileHeight; tiles != geom.SegmentBits {
			printWarn("", fmt.Sprintf("tile %dx%d holds %s pixels, segments have %s bits",
				cfg.Render.TileWidth, cfg.Render.TileHeight, formatCount(tiles), formatCount(geom.SegmentBits)))
		}
	}
	fmt.Println()

	// ── Check 3: output ───────────────────────────────────────────────────────
	fmt.Println("[ Output ]")
	switch cfg.Output.Sink {
	case "file":
		if err := checkWritableDir(cfg.Output.Dir); err != nil {
			failD("output dir %s is not writable: %v", cfg.Output.Dir, err)
		} else {
			printOK("", fmt.Sprintf("writable: %s", cfg.Output.Dir))
		}
	case "s3":
		printInfo("", fmt.Sprintf("s3://%s (credentials from the AWS default chain)", filepath.ToSlash(filepath.Join(cfg.Output.Bucket, cfg.Output.Prefix))))
	case "minio":
		printInfo("", fmt.Sprintf("minio %s bucket %s", cfg.Output.Endpoint, cfg.Output.Bucket))
		for _, k := range []string{config.EnvMinioAccessKey, config.EnvMinioSecretKey} {
			v, err := config.GetConfigValue(k)
			switch {
			case err != nil:
				failD("cannot read %s: %v", k, err)
			case v == "":
				failD("%s is not set (environment or ~/.pufrecon/.env)", k)
			default:
				printOK("", fmt.Sprintf("%s is set", k))
			}
		}
	}
	fmt.Println()

	// ── Check 4: reference pattern ────────────────────────────────────────────
	fmt.Println("[ Reference ]")
	switch {
	case cfg.Reference == "":
		printSkip("", "no reference configured")
	default:
		ref, err := capture.LoadBits(cfg.Reference)
		switch {
		case errors.Is(err, os.ErrNotExist):
			printWarn("", fmt.Sprintf("%s not found, scoring will be skipped", cfg.Reference))
		case err != nil:
			failD("cannot load %s: %v", cfg.Reference, err)
		case ref.Len() == 0:
			failD("%s is empty", cfg.Reference)
		default:
			printOK("", fmt.Sprintf("%s: %s bits", cfg.Reference, formatCount(ref.Len())))
			if geom.RegionBits > 0 && geom.RegionBits%ref.Len() != 0 {
				failD("region size %s is not a multiple of the %s-bit reference", formatCount(geom.RegionBits), formatCount(ref.Len()))
			}
		}
	}
	fmt.Println()

	if !allOK {
		return fmt.Errorf("doctor found issues")
	}
	printOK("", "all checks passed")
	return nil
}

// checkWritableDir creates dir if needed and probes it with a temp file.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
