// Package logger is the process-wide logging facade. All packages log
// through the free functions here so the zap core can be swapped or
// silenced (tests) in one place.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log *zap.SugaredLogger
)

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		base, err := cfg.Build(zap.WithCaller(false))
		if err != nil {
			base = zap.NewNop()
		}
		log = base.Sugar()
	}
	return log
}

// SetVerbose switches to the human-oriented development encoder with
// debug output enabled.
func SetVerbose() {
	base, err := zap.NewDevelopment(zap.WithCaller(false))
	if err != nil {
		return
	}
	mu.Lock()
	log = base.Sugar()
	mu.Unlock()
}

func Info(msg string) {
	get().Info(msg)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Debug(msg string) {
	get().Debug(msg)
}

func Error(err error) {
	get().Error(err)
}

func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}
