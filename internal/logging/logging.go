// Package logging builds the shared diagnostic logger. Log output goes
// to stderr; user-facing command output stays on stdout.
package logging

import (
	"github.com/sirupsen/logrus"
)

// New returns a logger configured from the textual level and format
// settings. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetLevel(parseLevel(level))
	return logger
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
