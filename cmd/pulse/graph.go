package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Export the composition tree of a template",
	Long:  `Outputs a Mermaid diagram (graph TD) of the template and the templates it is composed of.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, closer, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer()

		root, err := engine.Loader().GetTemplate(args[0])
		if err != nil {
			return err
		}
		highlight, _ := cmd.Flags().GetStringSlice("highlight")
		fmt.Print(graph.GenerateMermaid(root, &graph.GraphOverlay{Highlight: highlight}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSlice("highlight", nil, "Template IDs to highlight")
}
