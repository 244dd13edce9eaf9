package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InfluxSink posts samples to an InfluxDB 1.x /write endpoint.
type InfluxSink struct {
	url    string
	client *http.Client
}

func NewInfluxSink(cfg Config, client *http.Client) *InfluxSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &InfluxSink{url: cfg.WriteURL(), client: client}
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Send(ctx context.Context, sample Sample) error {
	body := Record(sample)
	if body == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
