package monitoring

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// LogLevel lets the log level be changed while the service runs.
type LogLevel struct {
	level zap.AtomicLevel
}

// Set parses and applies a level name such as "debug" or "warn".
func (l *LogLevel) Set(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

// String returns the current level name.
func (l *LogLevel) String() string {
	return l.level.Level().String()
}

// NewZapLogger builds the service logger from configuration.
// An unknown level falls back to info; format "console" selects the human-readable encoder.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, *LogLevel) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atomic := zap.NewAtomicLevelAt(level)

	encoderConfig := logger.EncoderConfig()
	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), atomic)
	z := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.New(z), &LogLevel{level: atomic}
}

//Personal.AI order the ending
