package logger

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StructuredLogger writes through logrus, for runs whose output is collected
// by a log pipeline rather than read in a terminal.
type StructuredLogger struct {
	entry *logrus.Entry
	sql   bool
}

var _ Logger = (*StructuredLogger)(nil)

func NewStructuredLogger(l *logrus.Logger, sql, debug bool) *StructuredLogger {
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}

	return &StructuredLogger{
		entry: l.WithField("component", prefix),
		sql:   sql,
	}
}

// NewLogrus builds a logrus logger with the given formatter name: "json" or "text".
func NewLogrus(format string) (*logrus.Logger, error) {
	l := logrus.New()

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format [%s]", format)
	}

	return l, nil
}

func (sl *StructuredLogger) Successf(format string, args ...interface{}) {
	sl.entry.Infof(format, args...)
}

func (sl *StructuredLogger) Debugf(format string, args ...interface{}) {
	sl.entry.Debugf(format, args...)
}

func (sl *StructuredLogger) Error(err error) {
	sl.entry.WithError(err).Error("migration failed")
}

func (sl *StructuredLogger) SQL(query string, args ...interface{}) {
	if !sl.sql {
		return
	}

	fields := logrus.Fields{"sql": query}
	if len(args) > 0 {
		fields["args"] = args
	}

	sl.entry.WithFields(fields).Info("running sql")
}
