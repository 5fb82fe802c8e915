// Package logger builds the zerolog loggers used by the command line tools.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// FieldComponent is the field key that tags log lines with their origin.
const FieldComponent = "component"

// New creates a logger for the given component. Invalid levels fall back to
// info.
func New(cfg Config, component string) zerolog.Logger {
	cfg.ApplyDefaults()
	return NewWithWriter(cfg, component, outputWriter(cfg.Output))
}

// NewWithWriter is like New but writes to w instead of the configured
// output.
func NewWithWriter(cfg Config, component string, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
			FormatLevel: func(i interface{}) string {
				return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprintf("%.3s", i)))
			},
		})
	} else {
		zl = zerolog.New(w)
	}

	zl = zl.Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if component != "" {
		zl = zl.With().Str(FieldComponent, component).Logger()
	}

	return zl
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}
