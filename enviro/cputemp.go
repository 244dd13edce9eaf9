package enviro

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

const (
	DefaultCPUTempCommand = "vcgencmd measure_temp"
	cpuThermalZone        = "/sys/class/thermal/thermal_zone0/temp"
)

// ErrCPUTempFormat is returned when the CPU temperature source produces
// output that can not be parsed.
var ErrCPUTempFormat = errors.New("unexpected cpu temperature format")

// CPUThermometer samples the SoC temperature, used to correct the HAT
// sensor for heat coming off the board.
type CPUThermometer struct {
	argv    []string
	zone    string
	command func(ctx context.Context, argv []string) ([]byte, error)
}

// NewCPUThermometer runs command (e.g. "vcgencmd measure_temp") and falls
// back to the kernel thermal zone when the command is empty or missing.
func NewCPUThermometer(command string) (*CPUThermometer, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("cpu temperature command %q: %w", command, err)
	}
	return &CPUThermometer{argv: argv, zone: cpuThermalZone, command: runCommand}, nil
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
}

// Celsius returns the CPU temperature in degC.
func (c *CPUThermometer) Celsius(ctx context.Context) (float64, error) {
	if len(c.argv) > 0 {
		out, err := c.command(ctx, c.argv)
		if err == nil {
			return parseMeasureTemp(string(out))
		}
		if !errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", c.argv[0], err)
		}
	}
	b, err := os.ReadFile(c.zone)
	if err != nil {
		return 0, err
	}
	return parseMillidegrees(string(b))
}

// parseMeasureTemp parses vcgencmd output of the form "temp=41.7'C".
func parseMeasureTemp(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if !strings.HasPrefix(s, "temp=") || !strings.HasSuffix(s, "'C") {
		return 0, fmt.Errorf("%w: %q", ErrCPUTempFormat, s)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(s, "temp="), "'C"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCPUTempFormat, s)
	}
	return v, nil
}

func parseMillidegrees(out string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCPUTempFormat, out)
	}
	return v / 1000, nil
}
