package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/bme280"
	"github.com/rubiojr/go-pienviro/display"
	"github.com/rubiojr/go-pienviro/enviro"
	"github.com/rubiojr/go-pienviro/internal/config"
	"github.com/rubiojr/go-pienviro/ltr559"
	"github.com/rubiojr/go-pienviro/mics6814"
	"github.com/rubiojr/go-pienviro/pms5003"
	"github.com/rubiojr/go-pienviro/screen"
	"github.com/rubiojr/go-pienviro/sensehat"
)

// Devices is the hardware the monitor runs against. Screen is required;
// Stick may be nil.
type Devices struct {
	Sensor enviro.Sensor
	CPU    enviro.CPUSensor
	Screen screen.Screen
	Stick  screen.Joystick
	// Aux are the optional add-on sensors.
	Aux []enviro.AuxSensor

	closers []io.Closer
}

func (d *Devices) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	return errors.Join(errs...)
}

// OpenDevices brings up the backends selected in cfg. The sensor and the
// screen are mandatory; joystick and add-on sensor failures are logged and
// the monitor runs without them.
func OpenDevices(cfg config.Config, log zerolog.Logger) (*Devices, error) {
	d := &Devices{}
	if err := d.openSensor(cfg, log); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.openScreen(cfg, log); err != nil {
		d.Close()
		return nil, err
	}

	d.openAux(cfg, log)
	return d, nil
}

func (d *Devices) openAux(cfg config.Config, log zerolog.Logger) {
	if cfg.PMS5003Port != "" {
		pm, err := pms5003.New(cfg.PMS5003Port, log)
		if err != nil {
			log.Warn().Err(err).Str("port", cfg.PMS5003Port).Msg("particulate sensor unavailable")
		} else {
			d.Aux = append(d.Aux, pm)
		}
	}
	if cfg.GasSensor {
		gas, err := mics6814.New()
		if err != nil {
			log.Warn().Err(err).Msg("gas sensor unavailable")
		} else {
			d.closers = append(d.closers, gas)
			d.Aux = append(d.Aux, enviro.NewAuxPoller("gas", cfg.AuxInterval, gas.ReadFields, log))
		}
	}
	if cfg.LightSensor {
		light, err := ltr559.New()
		if err != nil {
			log.Warn().Err(err).Msg("light sensor unavailable")
		} else {
			d.closers = append(d.closers, light)
			d.Aux = append(d.Aux, enviro.NewAuxPoller("light", cfg.AuxInterval, light.ReadFields, log))
		}
	}
}

func (d *Devices) openSensor(cfg config.Config, log zerolog.Logger) error {
	switch cfg.SensorBackend {
	case config.SensorBME280:
		s, err := bme280.New(cfg.BME280Address)
		if err != nil {
			return fmt.Errorf("open bme280 at %#x: %w", cfg.BME280Address, err)
		}
		d.Sensor = s
		d.closers = append(d.closers, s)
	default:
		s, err := sensehat.Open()
		if err != nil {
			return fmt.Errorf("open sense hat sensors: %w", err)
		}
		d.Sensor = s
		d.closers = append(d.closers, s)
	}

	if cfg.TempCalibration {
		cpu, err := enviro.NewCPUThermometer(cfg.CPUTempCommand)
		if err != nil {
			return err
		}
		d.CPU = cpu
		log.Info().Str("command", cfg.CPUTempCommand).Msg("temperature calibration enabled")
	}
	return nil
}

func (d *Devices) openScreen(cfg config.Config, log zerolog.Logger) error {
	switch cfg.DisplayBackend {
	case config.DisplayNone:
		d.Screen = screen.NewLogScreen(log)
	case config.DisplayLCD:
		lcd, err := display.Init()
		if err != nil {
			return fmt.Errorf("open lcd: %w", err)
		}
		if err := lcd.PowerOn(); err != nil {
			log.Warn().Err(err).Msg("lcd backlight")
		}
		d.Screen = lcd
		d.closers = append(d.closers, lcd)
	default:
		m, err := sensehat.OpenLEDMatrix()
		if err != nil {
			return fmt.Errorf("open led matrix: %w", err)
		}
		d.closers = append(d.closers, m)
		if err := m.SetRotation(cfg.ScreenRotation); err != nil {
			return err
		}
		if err := m.SetLowLight(cfg.LowLight); err != nil {
			log.Warn().Err(err).Msg("low light mode")
		}
		d.Screen = screen.NewMatrix(m)

		stick, err := sensehat.OpenStick()
		if err != nil {
			log.Warn().Err(err).Msg("joystick unavailable, style is fixed")
			return nil
		}
		d.Stick = stick
		d.closers = append(d.closers, stick)
	}
	return nil
}
