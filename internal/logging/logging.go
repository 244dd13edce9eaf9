package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/internal/config"
)

// New builds the root logger: a human readable console writer in dev and
// JSON lines in prod.
func New(cfg config.Config, version string, appName string) zerolog.Logger {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(w io.Writer, cfg config.Config, version, appName string) zerolog.Logger {
	if cfg.AppEnv != "prod" {
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(cw).Level(cfg.LogLevel).With().Timestamp().Str("app", appName).Logger()
	}

	return zerolog.New(w).Level(cfg.LogLevel).With().
		Timestamp().
		Str("app", appName).
		Str("version", version).
		Str("env", cfg.AppEnv).
		Logger()
}
