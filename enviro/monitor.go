// Package enviro keeps the latest temperature, humidity and pressure
// readings up to date by polling a sensor backend.
package enviro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Intervals configures the wait between reads per quantity.
type Intervals struct {
	Temperature time.Duration
	Humidity    time.Duration
	Pressure    time.Duration
}

var DefaultIntervals = Intervals{
	Temperature: DefaultInterval,
	Humidity:    DefaultInterval,
	Pressure:    DefaultInterval,
}

func (i Intervals) of(q Quantity) time.Duration {
	switch q {
	case Temperature:
		return i.Temperature
	case Humidity:
		return i.Humidity
	case Pressure:
		return i.Pressure
	}
	return DefaultInterval
}

// Monitor owns the Store and one Poller per quantity.
type Monitor struct {
	store   *Store
	pollers map[Quantity]*Poller
	log     zerolog.Logger
}

func NewMonitor(reader *Reader, intervals Intervals, log zerolog.Logger) *Monitor {
	m := &Monitor{
		store:   NewStore(),
		pollers: make(map[Quantity]*Poller, len(Quantities)),
		log:     log,
	}
	for _, q := range Quantities {
		m.pollers[q] = NewPoller(q, reader, m.store, intervals.of(q), log)
	}
	return m
}

// Init reads every quantity once, synchronously. Quantities that fail are
// left unset and the joined error is returned.
func (m *Monitor) Init(ctx context.Context) error {
	var errs []error
	for _, q := range Quantities {
		if _, err := m.pollers[q].Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("initial %s read: %w", q, err))
		}
	}
	return errors.Join(errs...)
}

// Run polls every quantity until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, q := range Quantities {
		p := m.pollers[q]
		g.Go(func() error { return p.Run(ctx) })
	}
	m.log.Info().Int("pollers", len(m.pollers)).Msg("polling started")
	return g.Wait()
}

func (m *Monitor) Store() *Store {
	return m.store
}

func (m *Monitor) Snapshot() Snapshot {
	return m.store.Snapshot()
}

// Latest returns the stored reading of q.
func (m *Monitor) Latest(q Quantity) (Reading, error) {
	return m.store.Get(q)
}

// Refresh forces a synchronous read of q before returning it.
func (m *Monitor) Refresh(ctx context.Context, q Quantity) (Reading, error) {
	p, ok := m.pollers[q]
	if !ok {
		return Reading{}, fmt.Errorf("unknown quantity %d", int(q))
	}
	return p.Update(ctx)
}
