// Package log provides the process-wide logger. It wraps logrus behind a
// small interface so call sites do not import logrus directly.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"firestige.xyz/wfw/internal/config"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu      sync.RWMutex
	logger  Logger = newDefault()
	outputs *MultiWriter

	// stdout is swapped in tests.
	stdout io.Writer = os.Stdout
)

// GetLogger returns the process logger. Before Init it logs at info level
// to stderr.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. Output goes to stdout
// and, when enabled, to a rotated file.
func Init(cfg config.LogConfig) error {
	out := NewMultiWriter().Add(stdout)
	if cfg.File.Enabled {
		out.AddFileAppender(FileAppenderOpt{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}

	l, err := New(cfg, out)
	if err != nil {
		return err
	}

	mu.Lock()
	logger = l
	prev := outputs
	outputs = out
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Close flushes and closes file output opened by Init.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if outputs == nil {
		return nil
	}
	err := outputs.Close()
	outputs = nil
	return err
}

// New builds a standalone logger writing to w.
func New(cfg config.LogConfig, w io.Writer) (Logger, error) {
	l := logrus.New()
	l.SetFormatter(&formatter{
		pattern: cfg.Pattern,
		time:    cfg.Time,
	})
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(level)
	l.SetReportCaller(usesCaller(cfg.Pattern))
	l.SetOutput(w)

	return &logrusAdapter{logrus.NewEntry(l)}, nil
}
