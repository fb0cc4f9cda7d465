package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse samples symbolic pulse templates into waveforms",
	Long: `Pulse loads a library of pulse templates from YAML or JSON files and turns
them into sampled waveforms. Durations and channel values are symbolic
expressions, bound to parameters at sampling time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the template library")
	rootCmd.PersistentFlags().String("source", "", "Template source: file (definition files) or loam (document repository)")
	rootCmd.PersistentFlags().String("config", "", "Path to a pulse.yaml configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("cache", "", "Waveform cache backend: none, memory, file or redis")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the redis cache backend")
}

// loadConfig reads the configuration file, if any, and applies the flags the
// user set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("source") {
		cfg.Source, _ = flags.GetString("source")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("cache") {
		cfg.Cache.Backend, _ = flags.GetString("cache")
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr, _ = flags.GetString("redis-addr")
	}
	return cfg, cfg.Validate()
}

// setup loads the configuration and opens the engine. The caller must call
// the returned closer.
func setup(cmd *cobra.Command, opts cli.EngineOptions) (*pulse.Engine, config.Config, *slog.Logger, cli.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, nil, nil, err
	}
	logger, err := cli.CreateLogger(cfg.Log)
	if err != nil {
		return nil, cfg, nil, nil, err
	}
	opts.Logger = logger
	engine, closer, err := cli.CreateEngine(cfg, opts)
	if err != nil {
		return nil, cfg, nil, nil, err
	}
	return engine, cfg, logger, closer, nil
}
