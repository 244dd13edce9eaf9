package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/enviro"
	"github.com/rubiojr/go-pienviro/internal/config"
	"github.com/rubiojr/go-pienviro/telemetry"
)

// newPublisher wires the configured sinks. It returns nil when no sink is
// enabled. A bad InfluxDB config only disables that sink.
func newPublisher(ctx context.Context, cfg config.Config, log zerolog.Logger, mon *enviro.Monitor, aux []enviro.AuxSensor) *telemetry.Publisher {
	var sinks []telemetry.Sink

	if cfg.InfluxDBConfig != "" {
		icfg, err := telemetry.LoadConfig(cfg.InfluxDBConfig)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.InfluxDBConfig).Msg("InfluxDB telemetry disabled")
		} else {
			log.Info().Str("url", icfg.URL).Str("db", icfg.DB).Msg("InfluxDB telemetry enabled")
			sinks = append(sinks, telemetry.NewInfluxSink(icfg, nil))
		}
	}

	if cfg.MQTTBroker != "" {
		sink := telemetry.NewMQTTSink(telemetry.MQTTConfig{
			Broker:    cfg.MQTTBroker,
			Port:      cfg.MQTTPort,
			ClientID:  cfg.MQTTClientID,
			StationID: cfg.StationID,
		}, log)
		go func() {
			if err := sink.Connect(ctx); err != nil {
				log.Error().Err(err).Msg("mqtt connect failed")
				return
			}
			<-ctx.Done()
			sink.Close()
		}()
		sinks = append(sinks, sink)
	}

	if len(sinks) == 0 {
		return nil
	}

	ip := telemetry.NewIPResolver(cfg.WiredIface, cfg.WirelessIface)
	pub := telemetry.NewPublisher(mon.Snapshot, ip.Resolve, cfg.PostInterval, log, sinks...)
	if len(aux) > 0 {
		pub.Extra = func() []telemetry.Field {
			var extra []telemetry.Field
			for _, a := range aux {
				if fields, _, err := a.Fields(); err == nil {
					extra = append(extra, fields...)
				}
			}
			return extra
		}
	}
	return pub
}
