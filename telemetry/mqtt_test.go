package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	connected bool
	err       error
	topic     string
	payload   []byte
}

func (f *fakeClient) Connect() mqtt.Token {
	f.connected = f.err == nil
	return doneToken{err: f.err}
}

func (f *fakeClient) IsConnected() bool { return f.connected }

func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.payload = payload.([]byte)
	return doneToken{}
}

func (f *fakeClient) Disconnect(uint) { f.connected = false }

func newTestSink(c *fakeClient) *MQTTSink {
	return &MQTTSink{client: c, stationID: "pi-1", log: zerolog.Nop()}
}

func TestMQTTSinkNotConnected(t *testing.T) {
	s := newTestSink(&fakeClient{})
	err := s.Send(context.Background(), Sample{Snapshot: fullSnapshot()})
	require.ErrorIs(t, err, errNotConnected)
}

func TestMQTTSinkSend(t *testing.T) {
	c := &fakeClient{}
	s := newTestSink(c)
	require.NoError(t, s.Connect(context.Background()))

	snap := fullSnapshot()
	snap.Pressure.UpdatedAt = time.Time{}
	err := s.Send(context.Background(), Sample{Time: at, IP: "10.0.0.7", Snapshot: snap, Extra: []Field{{Key: "pm25", Value: 4}}})
	require.NoError(t, err)
	assert.Equal(t, "stations/pi-1/telemetry", c.topic)

	var m Message
	require.NoError(t, json.Unmarshal(c.payload, &m))
	assert.Equal(t, "pi-1", m.StationID)
	assert.Equal(t, "10.0.0.7", m.IP)
	require.NotNil(t, m.Temperature)
	assert.InDelta(t, 72.5, *m.Temperature, 1e-9)
	assert.Nil(t, m.Pressure)
	assert.Equal(t, map[string]float64{"pm25": 4}, m.Extra)

	s.Close()
	assert.False(t, s.IsConnected())
}

func TestMQTTSinkConnectError(t *testing.T) {
	s := newTestSink(&fakeClient{err: errors.New("refused")})
	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.False(t, s.IsConnected())
}
