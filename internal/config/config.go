package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	SensorSenseHat = "sensehat"
	SensorBME280   = "bme280"

	DisplaySenseHat = "sensehat"
	DisplayLCD      = "lcd"
	DisplayNone     = "none"
)

type Config struct {
	AppEnv   string
	LogLevel zerolog.Level
	HTTPAddr string

	SensorBackend   string
	BME280Address   uint16
	TempInterval    time.Duration
	HumidInterval   time.Duration
	PressInterval   time.Duration
	TempCalibration bool
	CPUTempCommand  string

	DisplayBackend string
	ScreenRotation int
	LowLight       bool

	InfluxDBConfig string
	PostInterval   time.Duration
	WiredIface     string
	WirelessIface  string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	StationID    string

	PMS5003Port string
	GasSensor   bool
	LightSensor bool
	AuxInterval time.Duration
}

func LoadFromEnv() (Config, error) {
	var cfg Config
	var err error

	cfg.AppEnv = env("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	if cfg.LogLevel, err = parseLogLevel(env("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}

	cfg.HTTPAddr = env("HTTP_ADDR", ":5000")

	cfg.SensorBackend = strings.ToLower(env("SENSOR_BACKEND", SensorSenseHat))
	switch cfg.SensorBackend {
	case SensorSenseHat, SensorBME280:
	default:
		return Config{}, fmt.Errorf("invalid SENSOR_BACKEND %q (allowed: sensehat, bme280)", cfg.SensorBackend)
	}

	addr := env("BME280_ADDRESS", "0x76")
	bme280Address, err := strconv.ParseUint(addr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", addr, err)
	}
	cfg.BME280Address = uint16(bme280Address)

	if cfg.TempInterval, err = envInterval("TEMP_INTERVAL", "15s"); err != nil {
		return Config{}, err
	}
	if cfg.HumidInterval, err = envInterval("HUMIDITY_INTERVAL", "15s"); err != nil {
		return Config{}, err
	}
	if cfg.PressInterval, err = envInterval("PRESS_INTERVAL", "15s"); err != nil {
		return Config{}, err
	}
	if cfg.TempCalibration, err = envBool("TEMP_CALIBRATION", "false"); err != nil {
		return Config{}, err
	}
	cfg.CPUTempCommand = env("CPU_TEMP_COMMAND", "vcgencmd measure_temp")

	cfg.DisplayBackend = strings.ToLower(env("DISPLAY_BACKEND", DisplaySenseHat))
	switch cfg.DisplayBackend {
	case DisplaySenseHat, DisplayLCD, DisplayNone:
	default:
		return Config{}, fmt.Errorf("invalid DISPLAY_BACKEND %q (allowed: sensehat, lcd, none)", cfg.DisplayBackend)
	}

	rot := env("SCREEN_ROTATION", "270")
	if cfg.ScreenRotation, err = strconv.Atoi(rot); err != nil {
		return Config{}, fmt.Errorf("invalid SCREEN_ROTATION %q: %w", rot, err)
	}
	switch cfg.ScreenRotation {
	case 0, 90, 180, 270:
	default:
		return Config{}, fmt.Errorf("invalid SCREEN_ROTATION %d (allowed: 0, 90, 180, 270)", cfg.ScreenRotation)
	}
	if cfg.LowLight, err = envBool("LOW_LIGHT", "true"); err != nil {
		return Config{}, err
	}

	cfg.InfluxDBConfig = env("INFLUXDB_CONFIG", "")
	if cfg.PostInterval, err = envInterval("POST_INTERVAL", "60s"); err != nil {
		return Config{}, err
	}
	cfg.WiredIface = env("WIRED_IFACE", "eth0")
	cfg.WirelessIface = env("WIRELESS_IFACE", "wlan0")

	cfg.MQTTBroker = env("MQTT_BROKER", "")
	port := env("MQTT_PORT", "1883")
	if cfg.MQTTPort, err = strconv.Atoi(port); err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", port, err)
	}
	cfg.MQTTClientID = env("MQTT_CLIENT_ID", "pienviro")
	cfg.StationID = env("STATION_ID", defaultStationID())

	cfg.PMS5003Port = env("PMS5003_PORT", "")
	if cfg.GasSensor, err = envBool("GAS_SENSOR", "false"); err != nil {
		return Config{}, err
	}
	if cfg.LightSensor, err = envBool("LIGHT_SENSOR", "false"); err != nil {
		return Config{}, err
	}
	if cfg.AuxInterval, err = envInterval("AUX_INTERVAL", "1s"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Intervals returns the per-quantity poll periods in temperature, humidity,
// pressure order.
func (c Config) Intervals() (temp, humid, press time.Duration) {
	return c.TempInterval, c.HumidInterval, c.PressInterval
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInterval(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func envBool(key, def string) (bool, error) {
	s := env(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func defaultStationID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "pienviro"
}

func parseLogLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
