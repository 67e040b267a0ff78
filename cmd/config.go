package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sramlab/pufrecon/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after ~/.pufrecon/.env, environment and flag
overrides have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var flagConfigShowPath bool

func init() {
	configCmd.Flags().BoolVar(&flagConfigShowPath, "path", false, "Print the config file path only")
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	if flagConfigShowPath {
		p := flagConfigPath
		if p == "" {
			var err error
			if p, err = config.ConfigPath(); err != nil {
				return err
			}
		}
		fmt.Println(p)
		return nil
	}
	data, err := yaml.Marshal(appCfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
