package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

var errNotConnected = errors.New("mqtt client not connected")

// MQTTConfig addresses the broker and names the station.
type MQTTConfig struct {
	Broker    string
	Port      int
	ClientID  string
	StationID string
}

// Message is the JSON document published for every sample.
type Message struct {
	StationID   string             `json:"station_id"`
	Timestamp   time.Time          `json:"timestamp"`
	IP          string             `json:"ip,omitempty"`
	Temperature *float64           `json:"temperature_f,omitempty"`
	Humidity    *float64           `json:"humidity_pct,omitempty"`
	Pressure    *float64           `json:"pressure_inhg,omitempty"`
	Extra       map[string]float64 `json:"extra,omitempty"`
}

// mqttClient is the subset of mqtt.Client the sink uses.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes samples as JSON on stations/<id>/telemetry.
type MQTTSink struct {
	client    mqttClient
	stationID string
	log       zerolog.Logger

	mu        sync.RWMutex
	connected bool
}

func NewMQTTSink(cfg MQTTConfig, log zerolog.Logger) *MQTTSink {
	s := &MQTTSink{
		stationID: cfg.StationID,
		log:       log.With().Str("component", "mqtt").Logger(),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		s.log.Info().Str("broker", cfg.Broker).Int("port", cfg.Port).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.log.Warn().Err(err).Msg("mqtt connection lost")
	})

	s.client = mqtt.NewClient(opts)
	return s
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic() string {
	return fmt.Sprintf("stations/%s/telemetry", s.stationID)
}

// Connect waits for the first broker connection or ctx cancellation.
func (s *MQTTSink) Connect(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	token := s.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			s.setConnected(true)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (s *MQTTSink) Send(ctx context.Context, sample Sample) error {
	if !s.IsConnected() {
		return errNotConnected
	}
	data, err := json.Marshal(s.message(sample))
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	token := s.client.Publish(s.Topic(), 1, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", s.Topic())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	return nil
}

func (s *MQTTSink) message(sample Sample) Message {
	m := Message{
		StationID: s.stationID,
		Timestamp: sample.Time.UTC(),
		IP:        sample.IP,
	}
	if r := sample.Snapshot.Temperature; r.Valid() {
		m.Temperature = &r.Value
	}
	if r := sample.Snapshot.Humidity; r.Valid() {
		m.Humidity = &r.Value
	}
	if r := sample.Snapshot.Pressure; r.Valid() {
		m.Pressure = &r.Value
	}
	if len(sample.Extra) > 0 {
		m.Extra = make(map[string]float64, len(sample.Extra))
		for _, f := range sample.Extra {
			m.Extra[f.Key] = f.Value
		}
	}
	return m
}

func (s *MQTTSink) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
	s.setConnected(false)
	s.log.Info().Msg("mqtt disconnected")
}

func (s *MQTTSink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
