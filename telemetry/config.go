package telemetry

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigMissingKey is returned when a required key is absent.
var ErrConfigMissingKey = errors.New("missing required key")

// Config locates the InfluxDB database readings are written to. It is
// read from a YAML document:
//
//	url: http://influx.local:8086
//	db: environment
//	username: pi      # optional
//	password: secret  # optional
type Config struct {
	URL      string `yaml:"url"`
	DB       string `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadConfig reads and validates the YAML file at path.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read telemetry config: %w", err)
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse telemetry config: %w", err)
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.DB = strings.TrimSpace(cfg.DB)
	if cfg.URL == "" {
		return Config{}, fmt.Errorf("telemetry config: %w: url", ErrConfigMissingKey)
	}
	if cfg.DB == "" {
		return Config{}, fmt.Errorf("telemetry config: %w: db", ErrConfigMissingKey)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return Config{}, fmt.Errorf("telemetry config: url: %w", err)
	}
	return cfg, nil
}

// WriteURL builds <url>/write?db=<db>, adding &u=<user>&p=<pass> only when
// both credentials are set.
func (c Config) WriteURL() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.URL, "/"))
	b.WriteString("/write?db=")
	b.WriteString(url.QueryEscape(c.DB))
	if c.Username != "" && c.Password != "" {
		b.WriteString("&u=")
		b.WriteString(url.QueryEscape(c.Username))
		b.WriteString("&p=")
		b.WriteString(url.QueryEscape(c.Password))
	}
	return b.String()
}
