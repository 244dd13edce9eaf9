package enviro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field is one named value reported by an add-on sensor.
type Field struct {
	Key   string
	Value float64
}

// AuxSensor is an optional add-on sensor (particulates, gas, light) that
// keeps its own latest values. Name is a short path-friendly identifier.
type AuxSensor interface {
	Name() string
	Run(ctx context.Context) error
	Fields() ([]Field, time.Time, error)
}

// AuxPoller turns a blocking read function into an AuxSensor polled every
// interval.
type AuxPoller struct {
	name     string
	read     func(ctx context.Context) ([]Field, error)
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	fields []Field
	at     time.Time
}

func NewAuxPoller(name string, interval time.Duration, read func(ctx context.Context) ([]Field, error), log zerolog.Logger) *AuxPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &AuxPoller{
		name:     name,
		read:     read,
		interval: interval,
		log:      log.With().Str("sensor", name).Logger(),
		now:      time.Now,
	}
}

func (p *AuxPoller) Name() string { return p.name }

func (p *AuxPoller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			fields, err := p.read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.log.Error().Err(err).Msg("read failed, keeping last value")
				}
			} else {
				p.mu.Lock()
				p.fields, p.at = fields, p.now()
				p.mu.Unlock()
			}
			timer.Reset(p.interval)
		}
	}
}

// Fields returns a copy of the last successful read.
func (p *AuxPoller) Fields() ([]Field, time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.at.IsZero() {
		return nil, time.Time{}, fmt.Errorf("%s: %w", p.name, ErrNoReading)
	}
	return append([]Field(nil), p.fields...), p.at, nil
}
