package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/go-pienviro/api"
	"github.com/rubiojr/go-pienviro/enviro"
	"github.com/rubiojr/go-pienviro/internal/config"
	"github.com/rubiojr/go-pienviro/screen"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	// Serve enables the HTTP facade.
	Serve bool
}

// Run opens the configured devices and runs the monitor until ctx is
// cancelled.
func Run(ctx context.Context, cfg config.Config, log zerolog.Logger, opts Options) error {
	log.Info().
		Str("sensor", cfg.SensorBackend).
		Str("display", cfg.DisplayBackend).
		Bool("calibration", cfg.TempCalibration).
		Msg("initializing")

	dev, err := OpenDevices(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("closing devices")
		}
	}()
	return RunWith(ctx, cfg, log, dev, opts)
}

// RunWith runs the monitor against already opened devices.
func RunWith(ctx context.Context, cfg config.Config, log zerolog.Logger, dev *Devices, opts Options) error {
	mon := enviro.NewMonitor(enviro.NewReader(dev.Sensor, dev.CPU), enviro.Intervals{
		Temperature: cfg.TempInterval,
		Humidity:    cfg.HumidInterval,
		Pressure:    cfg.PressInterval,
	}, log)

	if err := mon.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("initial read incomplete, values stay unset until the next poll")
	}

	style := screen.NewStyle()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return mon.Run(ctx) })
	g.Go(func() error { return screen.NewController(dev.Screen, style, mon.Snapshot, log).Run(ctx) })
	if dev.Stick != nil {
		g.Go(optional(ctx, log, "joystick", screen.NewInput(dev.Stick, style, dev.Screen, log).Run))
	}
	for _, a := range dev.Aux {
		g.Go(optional(ctx, log, a.Name(), a.Run))
	}
	if pub := newPublisher(ctx, cfg, log, mon, dev.Aux); pub != nil {
		g.Go(func() error { return pub.Run(ctx) })
	}
	if opts.Serve {
		aux := make([]api.FieldSource, len(dev.Aux))
		for i, a := range dev.Aux {
			aux[i] = a
		}
		srv := api.NewServer(cfg.HTTPAddr, api.NewMux(mon, log, aux...), log)
		g.Go(func() error { return serve(ctx, srv, log) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// optional wraps a task whose failure must not stop the others.
func optional(ctx context.Context, log zerolog.Logger, name string, run func(context.Context) error) func() error {
	return func() error {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("task", name).Msg("stopped")
		}
		return nil
	}
}

func serve(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return ctx.Err()
}
