// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Components take entries derived from it.
var Log = logrus.New()

// IsProduction reports whether env names a deployed environment. Deployed
// environments log JSON and run gin in release mode.
func IsProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return true
	}
	return false
}

// Init sets level and format. Deployed environments log JSON; anything else
// logs human-readable text.
func Init(env, level string) *logrus.Logger {
	configure(Log, os.Stdout, env, level)
	return Log
}

func configure(l *logrus.Logger, out io.Writer, env, level string) {
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.Warnf("invalid log level %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if IsProduction(env) {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
