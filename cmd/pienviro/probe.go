package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rubiojr/go-pienviro/enviro"
	"github.com/rubiojr/go-pienviro/internal/app"
	"github.com/rubiojr/go-pienviro/internal/config"
)

var (
	colorKey   = color.New(color.FgHiCyan)
	colorValue = color.New(color.FgHiYellow)
	colorError = color.New(color.FgHiRed)
)

func newProbeCmd(g *globals) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Read every configured sensor once and print the values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			cfg.DisplayBackend = config.DisplayNone

			dev, err := app.OpenDevices(cfg, g.log)
			if err != nil {
				return err
			}
			defer dev.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			probe(ctx, cmd.OutOrStdout(), enviro.NewReader(dev.Sensor, dev.CPU), dev.Aux)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "how long to wait for add-on sensors")
	return cmd
}

func probe(ctx context.Context, w io.Writer, r *enviro.Reader, aux []enviro.AuxSensor) {
	for _, q := range enviro.Quantities {
		v, err := r.Read(ctx, q)
		if err != nil {
			printErr(w, q.String(), err)
			continue
		}
		printKV(w, q.String(), enviro.FormatValue(q, v)+" "+q.Unit())
	}
	if len(aux) == 0 {
		return
	}

	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer stop()
	for _, a := range aux {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Run(runCtx)
		}()
	}
	waitForFields(ctx, aux)

	for _, a := range aux {
		fields, _, err := a.Fields()
		if err != nil {
			printErr(w, a.Name(), err)
			continue
		}
		for _, f := range fields {
			printKV(w, a.Name()+"."+f.Key, enviro.FormatPlain(f.Value))
		}
	}
}

// waitForFields returns once every sensor has reported or ctx is done.
func waitForFields(ctx context.Context, aux []enviro.AuxSensor) {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		ready := true
		for _, a := range aux {
			if _, _, err := a.Fields(); err != nil {
				ready = false
				break
			}
		}
		if ready {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func printKV(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s %s\n", colorKey.Sprintf("%-18s", key+":"), colorValue.Sprint(value))
}

func printErr(w io.Writer, key string, err error) {
	fmt.Fprintf(w, "%s %s\n", colorKey.Sprintf("%-18s", key+":"), colorError.Sprint(err))
}
