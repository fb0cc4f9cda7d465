package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/presentation/tui"
	"github.com/aretw0/pulse/internal/runtime"
	"github.com/aretw0/pulse/pkg/expr"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <id>",
	Short: "Sample a template into a waveform",
	Long: `Binds the template with the given parameters and samples every channel on
a uniform time grid. Parameters are name=value pairs; values may be constant
expressions such as 1/3 or sqrt(2).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cfg, logger, closer, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer closer()

		rate, err := cfg.Rate()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("rate") {
			raw, _ := cmd.Flags().GetString("rate")
			if rate, err = expr.ParseNumber(raw); err != nil {
				return err
			}
		}
		pairs, _ := cmd.Flags().GetStringArray("param")
		params, err := runtime.ParseBindings(pairs)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		watch, _ := cmd.Flags().GetBool("watch")

		render := func(ctx context.Context) error {
			w, err := engine.Render(ctx, args[0], rate, params)
			if err != nil {
				return err
			}
			return tui.WriteWaveform(os.Stdout, w, format)
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		if !watch {
			return render(ctx)
		}
		cli.PrintSystemMessage("watching %s, press Ctrl+C to stop", cfg.Dir)
		return cli.RunWatch(ctx, engine, logger, render)
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringP("rate", "r", "", "Sample rate in samples per time unit (default from config)")
	sampleCmd.Flags().StringArrayP("param", "p", nil, "Parameter value as name=value (repeatable)")
	sampleCmd.Flags().StringP("format", "f", tui.FormatTable, "Output format: table, csv or json")
	sampleCmd.Flags().BoolP("watch", "w", false, "Sample again whenever the library changes")
}
