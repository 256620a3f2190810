// Package logging builds the logrus logger shared by the coordinator and
// its workers from the log.* command line settings.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// Config is the logging part of the launcher configuration.
type Config struct {
	// Format is text or json.
	Format string
	// Verbosity runs from 0 (fatal) to 5 (trace).
	Verbosity int
	Color     bool
	// SentryDSN, when set, ships error level entries to Sentry.
	SentryDSN string
}

// DefaultConfig logs info and above as uncolored text.
func DefaultConfig() Config {
	return Config{Format: "text", Verbosity: 3}
}

// Level maps a verbosity to a logrus level.
func Level(verbosity int) (logrus.Level, error) {
	if verbosity < 0 || verbosity > 5 {
		return 0, fmt.Errorf("log verbosity %d out of range [0, 5]", verbosity)
	}
	// logrus counts panic as 0, we start at fatal.
	return logrus.Level(verbosity + 1), nil
}

// New builds a logger writing to out.
func New(cfg Config, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	level, err := Level(cfg.Verbosity)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			ForceColors:      cfg.Color,
			DisableColors:    !cfg.Color,
			QuoteEmptyFields: true,
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		log.AddHook(hook)
	}
	return log, nil
}

// Stderr is New writing to standard error.
func Stderr(cfg Config) (*logrus.Logger, error) {
	return New(cfg, os.Stderr)
}
