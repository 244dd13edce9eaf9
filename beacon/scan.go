package beacon

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

const (
	DefaultAdapter  = "hci0"
	DefaultDuration = 2 * time.Second
)

type Options struct {
	Adapter  string
	Duration time.Duration
}

// Scanner runs a bounded BlueZ scan and collects the iBeacons it sees.
type Scanner struct {
	adapter *bluetooth.Adapter
	opts    Options
	log     zerolog.Logger
}

func NewScanner(opts Options, log zerolog.Logger) *Scanner {
	if opts.Adapter == "" {
		opts.Adapter = DefaultAdapter
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	return &Scanner{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		log:     log.With().Str("adapter", opts.Adapter).Logger(),
	}
}

// Scan listens for the configured duration, or until ctx is cancelled, and
// returns the beacons seen ordered by address. A beacon seen more than once
// is reported with its latest advertisement.
func (s *Scanner) Scan(ctx context.Context) ([]Beacon, error) {
	if err := s.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble enable (%s): %w", s.opts.Adapter, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Duration)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = s.adapter.StopScan()
	}()

	c := newCollector()
	s.log.Debug().Dur("duration", s.opts.Duration).Msg("ble: scanning started")
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		for _, md := range r.ManufacturerData() {
			c.observe(r.Address.String(), r.RSSI, md.CompanyID, md.Data)
		}
	})
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble scan: %w", err)
	}
	s.log.Debug().Int("beacons", c.len()).Msg("ble: scanning stopped")
	return c.beacons(), nil
}

type collector struct {
	mu   sync.Mutex
	seen map[string]Beacon
}

func newCollector() *collector {
	return &collector{seen: make(map[string]Beacon)}
}

func (c *collector) observe(addr string, rssi int16, companyID uint16, data []byte) {
	b, ok := ParseIBeacon(companyID, data)
	if !ok {
		return
	}
	b.Address = addr
	b.RSSI = rssi
	c.mu.Lock()
	c.seen[addr] = b
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *collector) beacons() []Beacon {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Beacon, 0, len(c.seen))
	for _, b := range c.seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
