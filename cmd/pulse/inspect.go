package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/presentation/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Show the symbolic summary of a template",
	Long: `Prints the channels, symbolic duration, per-channel integral and free
parameters of a template without sampling it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, closer, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer()

		in, err := engine.Inspect(args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(in)
		}

		md := tui.InspectionMarkdown(in)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		fmt.Print(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print the inspection as JSON")
}
