// ABOUTME: Root package glue: environment loading and logger construction
// ABOUTME: shared by the CLI and the example programs.
package aigo

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Setup loads a .env file when one is present and builds a stderr logger at
// the level named by AIGO_LOG, defaulting to info. Both provider clients
// accept the returned logger via SetLogger.
func Setup() *zap.Logger {
	_ = godotenv.Load()
	level := zapcore.InfoLevel
	if raw := os.Getenv("AIGO_LOG"); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	return NewLogger(os.Stderr, level)
}

// NewLogger builds a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}
