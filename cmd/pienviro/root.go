package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rubiojr/go-pienviro/beacon"
	"github.com/rubiojr/go-pienviro/internal/app"
	"github.com/rubiojr/go-pienviro/internal/config"
	"github.com/rubiojr/go-pienviro/internal/logging"
)

type globals struct {
	verbose bool
	noColor bool
	cfg     config.Config
	log     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   appName,
		Short: "Raspberry Pi environment monitor",
		Long: `pienviro polls temperature, humidity and pressure from a Sense HAT (or a
BME280), scrolls them across the LED matrix and optionally forwards them to
InfluxDB or MQTT.

Behaviour is configured through environment variables such as
SENSOR_BACKEND, DISPLAY_BACKEND, HTTP_ADDR, INFLUXDB_CONFIG and MQTT_BROKER.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.noColor {
				color.NoColor = true
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if g.verbose {
				cfg.LogLevel = zerolog.DebugLevel
			}
			g.cfg = cfg
			g.log = logging.New(cfg, version, appName)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newBeaconCmd(g),
		newProbeCmd(g),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll sensors and drive the display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(app.Options{})
		},
	}
}

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and serve readings over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(app.Options{Serve: true})
		},
	}
}

func (g *globals) run(opts app.Options) error {
	g.log.Info().
		Str("version", version).
		Str("env", g.cfg.AppEnv).
		Str("log_level", g.cfg.LogLevel.String()).
		Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, g.cfg, g.log, opts); err != nil && !errors.Is(err, context.Canceled) {
		g.log.Error().Err(err).Msg("run failed")
		return err
	}
	g.log.Info().Msg("shutting down")
	return nil
}

func newBeaconCmd(g *globals) *cobra.Command {
	var (
		adapter  string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Scan for nearby iBeacons and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := beacon.NewScanner(beacon.Options{Adapter: adapter, Duration: duration}, g.log)
			found, err := s.Scan(ctx)
			if err != nil {
				return err
			}
			beacon.Print(cmd.OutOrStdout(), found)
			return nil
		},
	}
	cmd.Flags().StringVar(&adapter, "adapter", beacon.DefaultAdapter, "bluetooth adapter")
	cmd.Flags().DurationVar(&duration, "duration", beacon.DefaultDuration, "scan duration")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
}
