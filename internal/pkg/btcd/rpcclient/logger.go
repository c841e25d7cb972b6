package rpcclient

import (
	"sync/atomic"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"go.uber.org/zap"
)

// UseLogger routes btcd rpcclient logs into logger at the given btclog level.
func UseLogger(logger *zap.Logger, level btclog.Level) {
	rpcclient.UseLogger(NewLogger(logger, level))
}

// Logger adapts a zap logger to btclog.Logger. Trace messages are written at debug level
// and critical messages at error level.
type Logger struct {
	sugar *zap.SugaredLogger
	level atomic.Uint32
}

var _ btclog.Logger = (*Logger)(nil)

func NewLogger(logger *zap.Logger, level btclog.Level) *Logger {
	l := &Logger{sugar: logger.Named("btcd").Sugar()}
	l.SetLevel(level)
	return l
}

func (l *Logger) enabled(level btclog.Level) bool {
	return level >= l.Level()
}

func (l *Logger) Tracef(format string, params ...interface{}) {
	if l.enabled(btclog.LevelTrace) {
		l.sugar.Debugf(format, params...)
	}
}

func (l *Logger) Debugf(format string, params ...interface{}) {
	if l.enabled(btclog.LevelDebug) {
		l.sugar.Debugf(format, params...)
	}
}

func (l *Logger) Infof(format string, params ...interface{}) {
	if l.enabled(btclog.LevelInfo) {
		l.sugar.Infof(format, params...)
	}
}

func (l *Logger) Warnf(format string, params ...interface{}) {
	if l.enabled(btclog.LevelWarn) {
		l.sugar.Warnf(format, params...)
	}
}

func (l *Logger) Errorf(format string, params ...interface{}) {
	if l.enabled(btclog.LevelError) {
		l.sugar.Errorf(format, params...)
	}
}

func (l *Logger) Criticalf(format string, params ...interface{}) {
	if l.enabled(btclog.LevelCritical) {
		l.sugar.Errorf(format, params...)
	}
}

func (l *Logger) Trace(v ...interface{}) {
	if l.enabled(btclog.LevelTrace) {
		l.sugar.Debug(v...)
	}
}

func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(btclog.LevelDebug) {
		l.sugar.Debug(v...)
	}
}

func (l *Logger) Info(v ...interface{}) {
	if l.enabled(btclog.LevelInfo) {
		l.sugar.Info(v...)
	}
}

func (l *Logger) Warn(v ...interface{}) {
	if l.enabled(btclog.LevelWarn) {
		l.sugar.Warn(v...)
	}
}

func (l *Logger) Error(v ...interface{}) {
	if l.enabled(btclog.LevelError) {
		l.sugar.Error(v...)
	}
}

func (l *Logger) Critical(v ...interface{}) {
	if l.enabled(btclog.LevelCritical) {
		l.sugar.Error(v...)
	}
}

func (l *Logger) Level() btclog.Level {
	return btclog.Level(l.level.Load())
}

func (l *Logger) SetLevel(level btclog.Level) {
	l.level.Store(uint32(level))
}
