package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/internal/cli"
	"github.com/aretw0/pulse/internal/presentation/tui"
	httpAdapter "github.com/aretw0/pulse/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes the template library as a JSON API over HTTP, with Prometheus metrics on /metrics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		logger, err := cli.CreateLogger(cfg.Log)
		if err != nil {
			return err
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		engineOpts := cli.EngineOptions{Logger: logger}
		if cfg.HTTP.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			engineOpts.Registry = reg
			opts = append(opts, httpAdapter.WithMetrics(reg))
		}

		engine, closer, err := cli.CreateEngine(cfg, engineOpts)
		if err != nil {
			return err
		}
		defer closer()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			changes, err := engine.Watch(ctx)
			if err != nil {
				return err
			}
			go func() {
				for range changes {
				}
			}()
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           httpAdapter.NewHandler(engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			tui.PrintBanner(cmd.ErrOrStderr(), pulse.Version)
			logger.Info("starting pulse server", "address", srv.Addr, "dir", cfg.Dir)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("pulse server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the library and drop cached waveforms when files change")
}
