// Package logger wraps zap's SugaredLogger with the small surface the
// rest of ccore depends on, so call sites never import zap directly.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a Logger for the given mode ("prod"/"production" or anything
// else, which is treated as development). Development config is more
// verbose and human-readable; production emits structured JSON.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a Logger that discards everything; useful as a safe default
// in constructors that accept a possibly-nil *Logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log().Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log().Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log().Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log().Errorw(msg, kv...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.log().With(kv...)}
}

func (l *Logger) log() *zap.SugaredLogger {
	if l == nil || l.SugaredLogger == nil {
		return Nop().SugaredLogger
	}
	return l.SugaredLogger
}
