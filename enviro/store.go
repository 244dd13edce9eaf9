package enviro

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoReading is returned for a quantity that has never been read
// successfully.
var ErrNoReading = errors.New("no reading yet")

// Quantity is one of the physical quantities the monitor polls.
type Quantity int

const (
	Temperature Quantity = iota
	Humidity
	Pressure
)

// Quantities lists every polled quantity in display order.
var Quantities = []Quantity{Temperature, Humidity, Pressure}

func (q Quantity) String() string {
	switch q {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Pressure:
		return "pressure"
	}
	return fmt.Sprintf("quantity(%d)", int(q))
}

// Unit is the display unit of the stored value.
func (q Quantity) Unit() string {
	switch q {
	case Temperature:
		return "degF"
	case Humidity:
		return "%"
	case Pressure:
		return "inHg"
	}
	return ""
}

// Reading is the latest value of a quantity. A zero UpdatedAt means no
// reading has been stored yet.
type Reading struct {
	Value     float64
	UpdatedAt time.Time
}

func (r Reading) Valid() bool {
	return !r.UpdatedAt.IsZero()
}

// Snapshot holds the latest readings in display units: degF, percent and
// inHg. Fields are sampled independently and may be seconds apart.
type Snapshot struct {
	Temperature Reading
	Humidity    Reading
	Pressure    Reading
}

// Get returns the reading for q.
func (s Snapshot) Get(q Quantity) Reading {
	switch q {
	case Temperature:
		return s.Temperature
	case Humidity:
		return s.Humidity
	case Pressure:
		return s.Pressure
	}
	return Reading{}
}

// Complete reports whether every quantity has been read at least once.
func (s Snapshot) Complete() bool {
	return s.Temperature.Valid() && s.Humidity.Valid() && s.Pressure.Valid()
}

// Store publishes whole snapshots: a writer replaces one field of a copy
// and swaps it in, so readers never observe a half-written value.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Set(q Quantity, value float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	r := Reading{Value: value, UpdatedAt: at}
	switch q {
	case Temperature:
		next.Temperature = r
	case Humidity:
		next.Humidity = r
	case Pressure:
		next.Pressure = r
	default:
		return
	}
	s.snap = next
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Get returns the latest reading of q or ErrNoReading.
func (s *Store) Get(q Quantity) (Reading, error) {
	r := s.Snapshot().Get(q)
	if !r.Valid() {
		return r, fmt.Errorf("%s: %w", q, ErrNoReading)
	}
	return r, nil
}
