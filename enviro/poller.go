package enviro

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the wait between two reads of the same quantity.
const DefaultInterval = 15 * time.Second

// Poller repeatedly reads one quantity into the Store.
type Poller struct {
	quantity Quantity
	reader   *Reader
	store    *Store
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	// serializes forced refreshes with the loop's own reads
	mu sync.Mutex
}

func NewPoller(q Quantity, reader *Reader, store *Store, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		quantity: q,
		reader:   reader,
		store:    store,
		interval: interval,
		log:      log.With().Str("quantity", q.String()).Logger(),
		now:      time.Now,
	}
}

// Update performs one read and stores it. On failure the previous value
// is kept.
func (p *Poller) Update(ctx context.Context) (Reading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.reader.Read(ctx, p.quantity)
	if err != nil {
		return Reading{}, err
	}
	at := p.now()
	p.store.Set(p.quantity, v, at)
	p.log.Info().
		Str("value", FormatValue(p.quantity, v)).
		Str("unit", p.quantity.Unit()).
		Msgf("Updated current %s", p.quantity)
	return Reading{Value: v, UpdatedAt: at}, nil
}

// Run reads, waits one interval and repeats until ctx is done. Read errors
// are logged and the loop keeps going.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if _, err := p.Update(ctx); err != nil && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("read failed, keeping last value")
			}
			timer.Reset(p.interval)
		}
	}
}
