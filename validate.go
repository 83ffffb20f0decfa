package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wildstyl3r/comptsplit/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file without running it",
	Long: `Load the configuration, convert it to internal units, apply defaults and
report every problem found.

Examples:
  comptsplit validate --config phantom.toml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	out := cmd.OutOrStdout()
	var verr config.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(out, "%s: %d problem(s)\n", cfgFile, len(verr.Errors))
		for _, fe := range verr.Errors {
			fmt.Fprintf(out, "  %s\n", fe.Error())
		}
		return fmt.Errorf("invalid configuration %s", cfgFile)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: valid\n", cfgFile)
	fmt.Fprintf(out, "  volumes:   %d\n", len(cfg.Volumes))
	fmt.Fprintf(out, "  runs:      %d x %d events on %d threads\n", cfg.Runs, cfg.Events, cfg.Threads)
	fmt.Fprintf(out, "  splitting: factor %d in %q, max theta %.4g rad, roulette %v\n",
		cfg.Splitting.SplittingFactor, cfg.Splitting.Mother, cfg.Splitting.MaxTheta, cfg.Splitting.RussianRoulette)
	if cfg.Hits.Volume != "" {
		fmt.Fprintf(out, "  hits:      %v in %q as %s\n", cfg.Hits.Attributes, cfg.Hits.Volume, cfg.Hits.Format)
	}
	return nil
}
