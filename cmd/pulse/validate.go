package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/presentation/tui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the template library for consistency",
	Long: `Loads every template of the library and reports closed templates that
cannot be bound, templates with zero duration and channel values without a
closed-form integral.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, closer, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer()

		report, err := engine.Validate()
		if err != nil {
			return err
		}
		tui.PrintReport(os.Stdout, report)
		if n := len(report.Errors()); n > 0 {
			return fmt.Errorf("validation failed: %d invalid templates", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
