package telemetry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/go-pienviro/enviro"
)

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fullSnapshot() enviro.Snapshot {
	return enviro.Snapshot{
		Temperature: enviro.Reading{Value: 72.5, UpdatedAt: at},
		Humidity:    enviro.Reading{Value: 40, UpdatedAt: at},
		Pressure:    enviro.Reading{Value: 29.92, UpdatedAt: at},
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("url: http://influx:8086/\ndb: env\nusername: pi\npassword: s3cret\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://influx:8086/", cfg.URL)
	assert.Equal(t, "http://influx:8086/write?db=env&u=pi&p=s3cret", cfg.WriteURL())
}

func TestParseConfigMissingKey(t *testing.T) {
	_, err := ParseConfig([]byte("url: http://influx:8086\n"))
	require.ErrorIs(t, err, ErrConfigMissingKey)
	assert.Contains(t, err.Error(), "db")

	_, err = ParseConfig([]byte("db: env\n"))
	require.ErrorIs(t, err, ErrConfigMissingKey)
}

func TestParseConfigMalformed(t *testing.T) {
	_, err := ParseConfig([]byte("url: [unclosed\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigMissingKey)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx.yml")
	require.NoError(t, os.WriteFile(path, []byte("url: http://localhost:8086\ndb: env\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086/write?db=env", cfg.WriteURL())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteURLNeedsBothCredentials(t *testing.T) {
	cfg := Config{URL: "http://influx:8086", DB: "env", Username: "pi"}
	assert.Equal(t, "http://influx:8086/write?db=env", cfg.WriteURL())
	cfg = Config{URL: "http://influx:8086", DB: "env", Password: "x"}
	assert.Equal(t, "http://influx:8086/write?db=env", cfg.WriteURL())
}

func TestRecord(t *testing.T) {
	s := Sample{IP: "192.168.1.20", Snapshot: fullSnapshot()}
	assert.Equal(t, "env_data[192.168.1.20] temp=72.5,humidity=40.0,press=29.92", Record(s))

	s.Extra = []Field{{Key: "pm25", Value: 7}}
	assert.Equal(t, "env_data[192.168.1.20] temp=72.5,humidity=40.0,press=29.92,pm25=7.0", Record(s))
}

func TestRecordSkipsUnsetReadings(t *testing.T) {
	snap := fullSnapshot()
	snap.Humidity = enviro.Reading{}
	assert.Equal(t, "env_data[] temp=72.5,press=29.92", Record(Sample{Snapshot: snap}))
	assert.Equal(t, "", Record(Sample{}))
}

func TestIPResolver(t *testing.T) {
	addrs := map[string][]net.Addr{
		"eth0":  {&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}},
		"wlan0": {&net.IPNet{IP: net.ParseIP("10.0.0.7"), Mask: net.CIDRMask(24, 32)}},
	}
	r := &IPResolver{Wired: "eth0", Wireless: "wlan0", Addrs: func(name string) ([]net.Addr, error) {
		a, ok := addrs[name]
		if !ok {
			return nil, errors.New("no such interface")
		}
		return a, nil
	}}
	// eth0 only has a link-local IPv6 address
	assert.Equal(t, "10.0.0.7", r.Resolve())

	addrs["eth0"] = append(addrs["eth0"], &net.IPAddr{IP: net.ParseIP("192.168.1.20")})
	assert.Equal(t, "192.168.1.20", r.Resolve())

	delete(addrs, "eth0")
	delete(addrs, "wlan0")
	assert.Equal(t, "", r.Resolve())
}

func TestInfluxSink(t *testing.T) {
	var (
		mu    sync.Mutex
		query string
		body  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		query = r.URL.RawQuery
		body = string(b)
		mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/write", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(Config{URL: srv.URL, DB: "env", Username: "u", Password: "p"}, srv.Client())
	err := sink.Send(context.Background(), Sample{IP: "10.0.0.7", Snapshot: fullSnapshot()})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "db=env&u=u&p=p", query)
	assert.Equal(t, "env_data[10.0.0.7] temp=72.5,humidity=40.0,press=29.92", body)
}

func TestInfluxSinkErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database not found", http.StatusNotFound)
	}))
	defer srv.Close()

	sink := NewInfluxSink(Config{URL: srv.URL, DB: "env"}, srv.Client())
	err := sink.Send(context.Background(), Sample{Snapshot: fullSnapshot()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "database not found")
}

type recordingSink struct {
	mu      sync.Mutex
	samples []Sample
	err     error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Send(_ context.Context, s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestPublisherPublish(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("unreachable")}
	p := NewPublisher(fullSnapshot, func() string { return "10.0.0.7" }, time.Minute, zerolog.Nop(), bad, ok)
	p.Extra = func() []Field { return []Field{{Key: "pm25", Value: 3}} }
	p.now = func() time.Time { return at }

	err := p.Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording: unreachable")

	// a failing sink does not stop the others
	require.Equal(t, 1, ok.count())
	s := ok.samples[0]
	assert.Equal(t, at, s.Time)
	assert.Equal(t, "10.0.0.7", s.IP)
	assert.Equal(t, []Field{{Key: "pm25", Value: 3}}, s.Extra)
}

func TestPublisherSkipsEmptySnapshot(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(func() enviro.Snapshot { return enviro.Snapshot{} }, nil, time.Minute, zerolog.Nop(), sink)
	require.NoError(t, p.Publish(context.Background()))
	assert.Zero(t, sink.count())
}

func TestPublisherRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("down")}
	p := NewPublisher(fullSnapshot, nil, 5*time.Millisecond, zerolog.Nop(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// failures are retried on every tick
	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}
