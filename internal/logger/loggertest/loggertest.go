// Package loggertest records log entries for tests that assert on them.
package loggertest

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/utakatalp/krach-ranker/internal/logger"
)

// Observed returns a logger recording entries at level and above in memory.
func Observed(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}
