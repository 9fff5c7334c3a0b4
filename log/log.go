// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log gives every component in clrforge the same narrow logging
// surface the loader uses to degrade gracefully on malformed or merely
// unusual images: a leveled Debugf/Infof/Warnf/Errorf call that never
// panics and never blocks on a missing logger. It is a thin adapter over
// logrus rather than a hand-rolled writer, so components get structured
// fields (mvid=, token=, table=) for free.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus' severity levels under names the rest of the module
// refers to.
type Level uint32

// Severity levels, most to least verbose at the call site.
const (
	LevelDebug Level = Level(logrus.DebugLevel)
	LevelInfo  Level = Level(logrus.InfoLevel)
	LevelWarn  Level = Level(logrus.WarnLevel)
	LevelError Level = Level(logrus.ErrorLevel)
)

// Logger is the narrow interface every component depends on. NewStdLogger
// and NewFilter both produce one; a caller may also supply their own.
type Logger interface {
	Log(level Level, keyvals ...interface{})
}

// Helper wraps a Logger with the Printf-style convenience methods the
// loader, resolver, registry, and rewriter call at their degrade points.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger. A nil logger is replaced by a default, so callers
// never need a nil check before logging.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewFilter(NewStdLogger(os.Stderr), FilterLevel(LevelInfo))
	}
	return &Helper{logger: logger}
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) { h.logf(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) { h.logf(LevelInfo, format, args...) }

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) { h.logf(LevelWarn, format, args...) }

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) { h.logf(LevelError, format, args...) }

// Warn logs a single message at LevelWarn, no formatting.
func (h *Helper) Warn(args ...interface{}) { h.logger.Log(LevelWarn, "msg", fmt.Sprint(args...)) }

func (h *Helper) logf(level Level, format string, args ...interface{}) {
	h.logger.Log(level, "msg", fmt.Sprintf(format, args...))
}

// stdLogger is a Logger backed directly by a logrus.Logger writing to w.
type stdLogger struct {
	entry *logrus.Logger
}

// NewStdLogger builds a Logger that writes structured lines to w.
func NewStdLogger(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &stdLogger{entry: l}
}

func (s *stdLogger) Log(level Level, keyvals ...interface{}) {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields[key] = keyvals[i+1]
	}
	s.entry.WithFields(fields).Log(logrus.Level(level))
}

// filter wraps a Logger and drops any record below its configured level.
type filter struct {
	next  Logger
	level Level
}

// FilterOption configures a filter produced by NewFilter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level a filter lets through.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.level = level }
}

// NewFilter wraps next, dropping records below the configured level
// (LevelInfo if unset).
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, level: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) {
	if level > f.level {
		return
	}
	f.next.Log(level, keyvals...)
}
