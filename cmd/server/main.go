package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"

	"github.com/tahcohcat/xpboard/config"
	"github.com/tahcohcat/xpboard/internal/logger"
)

type rootOptions struct {
	configDirs []string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "xpboard",
		Short:         "Achievement progress and real-time notification server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.configDirs, "config-dir", []string{".", "./config"}, "directories searched for config.yaml")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	return cmd
}

// load reads config and configures the process logger.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.configDirs...)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.LogLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, sockets and weekly stats scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(ctx); err != nil {
				return err
			}

			log := logger.Named("supervisor")
			sup := suture.New("xpboard", suture.Spec{
				EventHook: func(e suture.Event) {
					log.With("event", e.String()).Warn("supervisor event")
				},
				Timeout: cfg.Server.ShutdownTimeout + 5*time.Second,
			})
			sup.Add(a.server)
			sup.Add(a.hub)
			sup.Add(a.scheduler)

			log.With("port", cfg.Server.Port).With("database", cfg.Database.Driver).Info("xpboard starting")
			if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("xpboard stopped")
			return nil
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the default achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready, achievements seeded")
			return nil
		},
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Weekly stats operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Generate and send the weekly stats digest now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.scheduler.RunNow(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	})
	return cmd
}
