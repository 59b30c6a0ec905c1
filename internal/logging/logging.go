// Package logging builds the application logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options selects where and how much to log.
type Options struct {
	// File receives the log. Empty disables logging, since the terminal
	// belongs to the UI.
	File  string
	Level string
}

// New returns a logger for opts and a function that closes its output.
func New(opts Options) (zerolog.Logger, func() error, error) {
	if opts.File == "" {
		return zerolog.Nop(), func() error { return nil }, nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrap(err, "open log file")
	}

	return NewWithWriter(f, level), f.Close, nil
}

// NewWithWriter returns a console-formatted logger writing to w.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "log level %q", s)
	}
	return level, nil
}
