package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger and installs it as the zerolog global,
// so anything logging through zerolog/log lands in the same sink.
func NewLogger(cfg LoggingConfig, environment string) zerolog.Logger {
	return newLogger(cfg, environment, os.Stdout)
}

func newLogger(cfg LoggingConfig, environment string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := out
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	fields := zerolog.New(output).Level(parseLevel(cfg.Level)).With().Timestamp().Str("service", "serendipity")
	if environment != "" {
		fields = fields.Str("env", environment)
	}
	logger := fields.Logger()
	log.Logger = logger
	return logger
}

// parseLevel accepts zerolog level names plus "warning"; anything else is info.
func parseLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "warning" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(value)
	if err != nil || value == "" {
		return zerolog.InfoLevel
	}
	return level
}
