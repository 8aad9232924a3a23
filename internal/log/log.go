// Package log provides the daemon's structured logger, backed by zap.
package log

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

var log = zap.NewNop().Sugar()

// Init replaces the package logger. Debug selects the human-readable
// development encoder; otherwise JSON production output is used.
func Init(debug bool) error {
	var (
		z   *zap.Logger
		err error
	)
	if debug {
		z, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		z, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("init zap logger: %w", err)
	}
	log = z.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = log.Sync()
}

// Writer returns an io.Writer that logs each line at info level, for
// libraries that expect a plain writer.
func Writer() io.Writer {
	return zap.NewStdLog(log.Desugar()).Writer()
}

func Debugf(template string, args ...interface{}) { log.Debugf(template, args...) }

func Debugw(msg string, keysAndValues ...interface{}) { log.Debugw(msg, keysAndValues...) }

func Infof(template string, args ...interface{}) { log.Infof(template, args...) }

func Infow(msg string, keysAndValues ...interface{}) { log.Infow(msg, keysAndValues...) }

func Warnf(template string, args ...interface{}) { log.Warnf(template, args...) }

func Warnw(msg string, keysAndValues ...interface{}) { log.Warnw(msg, keysAndValues...) }

func Errorf(template string, args ...interface{}) { log.Errorf(template, args...) }

func Errorw(msg string, keysAndValues ...interface{}) { log.Errorw(msg, keysAndValues...) }

func Fatalf(template string, args ...interface{}) { log.Fatalf(template, args...) }
