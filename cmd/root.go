package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sramlab/pufrecon/internal/config"
	"github.com/sramlab/pufrecon/internal/logging"
	"github.com/sramlab/pufrecon/internal/pipeline"
)

// skipConfig marks commands that must run without a loaded config.
const skipConfig = "skip-config"

var (
	flagConfigPath string
	flagLogLevel   string
	flagLogFormat  string
	flagWorkers    int
	flagOutDir     string
	flagSinkKind   string
)

// Effective runtime state, set by setupRuntime before any command runs.
var (
	appCfg = config.DefaultConfig()
	appLog = logging.Noop()
)

var rootCmd = &cobra.Command{
	Use:          "pufrecon",
	Short:        "pufrecon: recover data imprinted in SRAM power-up states",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `pufrecon reconstructs data written into SRAM by aging, using repeated
power-up captures taken before (new) and after (aged) the imprint.

Captures are Address,Word CSV files, optionally .zst or .lz4 compressed.
Settings live in ~/.pufrecon/pufrecon.yaml; run 'pufrecon init' to write one.`,
	PersistentPreRunE: setupRuntime,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "Config file (default ~/.pufrecon/pufrecon.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	pf.IntVar(&flagWorkers, "workers", 0, "Concurrent decodes and aggregation shards (0 = all CPUs)")
	pf.StringVar(&flagOutDir, "out", "", "Output directory for images (file sink)")
	pf.StringVar(&flagSinkKind, "sink", "", "Image sink: file, s3 or minio")
}

// setupRuntime loads the config, applies flag overrides and builds the
// logger.
func setupRuntime(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] != "" {
		return nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'pufrecon init' to write a default config.", err)
	}

	l, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	appCfg, appLog = cfg, l
	return nil
}

// loadConfig reads the config file (or defaults) and applies the persistent
// flag overrides that were set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfigPath != "" {
		cfg, err = config.LoadFile(flagConfigPath)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if f.Changed("out") {
		cfg.Output.Dir = flagOutDir
	}
	if f.Changed("sink") {
		cfg.Output.Sink = flagSinkKind
	}
	if f.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline builds a pipeline from the effective config.
func newPipeline() (*pipeline.Pipeline, error) {
	geom, err := appCfg.Bitstream()
	if err != nil {
		return nil, err
	}
	return pipeline.New(geom,
		pipeline.WithWorkers(appCfg.Workers),
		pipeline.WithLogger(appLog),
	), nil
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
