package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and dotenv template",
	Long: `Create ~/.pufrecon/ with a default pufrecon.yaml and a .env template.

Existing files are left untouched; pass --force to rewrite pufrecon.yaml
with the defaults.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runInit,
}

var flagInitForce bool

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "Overwrite an existing pufrecon.yaml with defaults")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.pufrecon directory ──────────────────────────────────────
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	printOK("", fmt.Sprintf("pufrecon directory ready: %s", dir))

	// ── 2. Write pufrecon.yaml if missing ─────────────────────────────────────
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || flagInitForce {
		if err := config.Save(config.DefaultConfig()); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 3. Dotenv template ────────────────────────────────────────────────────
	envPath, err := config.DotEnvPath()
	if err != nil {
		return err
	}
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Dotenv ready: %s", envPath))

	// ── 4. Sanity-check what was written ──────────────────────────────────────
	if _, err := config.Load(); err != nil {
		return err
	}
	return nil
}
