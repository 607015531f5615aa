package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// logrusAdapter satisfies Logger with the promoted *logrus.Entry methods;
// only the chaining methods need rewrapping.
type logrusAdapter struct {
	*logrus.Entry
}

func newDefault() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &logrusAdapter{logrus.NewEntry(l)}
}

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{l.Entry.WithField(field, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{l.Entry.WithFields(fields)}
}

func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{l.Entry.WithError(err)}
}

func (l *logrusAdapter) IsTraceEnabled() bool { return l.Logger.IsLevelEnabled(logrus.TraceLevel) }
func (l *logrusAdapter) IsDebugEnabled() bool { return l.Logger.IsLevelEnabled(logrus.DebugLevel) }
func (l *logrusAdapter) IsInfoEnabled() bool  { return l.Logger.IsLevelEnabled(logrus.InfoLevel) }
