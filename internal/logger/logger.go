package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger. Development mode uses the colored console
// encoder; production mode emits JSON without stacktraces, which keeps
// per-bar simulator logging readable.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = true
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}

// ForRun returns a child logger tagged with the run id and symbol, so
// every line of a backtest can be attributed to its run.
func ForRun(log *zap.Logger, runID, symbol string) *zap.Logger {
	return log.With(zap.String("run_id", runID), zap.String("symbol", symbol))
}
