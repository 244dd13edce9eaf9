// Package telemetry periodically forwards the latest environment readings
// to remote sinks: an InfluxDB HTTP write endpoint and, optionally, an MQTT
// broker.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/enviro"
)

const DefaultInterval = 60 * time.Second

// Sink receives one sample per publishing cycle.
type Sink interface {
	Name() string
	Send(ctx context.Context, s Sample) error
}

// Publisher collects a Sample every interval and hands it to each sink.
// A failed send is logged and retried on the next cycle.
type Publisher struct {
	Snapshot func() enviro.Snapshot
	IP       func() string
	// Extra returns additional fields appended to every sample.
	Extra    func() []Field
	Interval time.Duration

	sinks []Sink
	log   zerolog.Logger
	now   func() time.Time
}

func NewPublisher(snapshot func() enviro.Snapshot, ip func() string, interval time.Duration, log zerolog.Logger, sinks ...Sink) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ip == nil {
		ip = func() string { return "" }
	}
	return &Publisher{
		Snapshot: snapshot,
		IP:       ip,
		Interval: interval,
		sinks:    sinks,
		log:      log.With().Str("component", "telemetry").Logger(),
		now:      time.Now,
	}
}

// Sample assembles the data for one cycle.
func (p *Publisher) Sample() Sample {
	s := Sample{
		Time:     p.now(),
		IP:       p.IP(),
		Snapshot: p.Snapshot(),
	}
	if p.Extra != nil {
		s.Extra = p.Extra()
	}
	return s
}

// Publish sends the current sample to every sink and returns the joined
// errors of the sinks that failed.
func (p *Publisher) Publish(ctx context.Context) error {
	s := p.Sample()
	if len(s.Fields()) == 0 {
		p.log.Debug().Msg("no readings yet, skipping publish")
		return nil
	}
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Send(ctx, s); err != nil {
			p.log.Error().Err(err).Str("sink", sink.Name()).Time("at", s.Time).Msg("Failed to post update to env_data series")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		p.log.Debug().Str("sink", sink.Name()).Msg("published sample")
	}
	return errors.Join(errs...)
}

// Run waits one interval, publishes, and repeats until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = p.Publish(ctx)
		}
	}
}
