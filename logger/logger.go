// Package logger provides the rotating file logger used for best-effort
// failures that must not surface in the UI (thread-list refreshes,
// recommendation saves).
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	logger *zap.Logger
}

// New creates a logger writing JSON lines to logFilePath with rotation.
// The TUI owns the terminal, so nothing is written to stdout.
func New(logFilePath string) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // Megabytes
		MaxBackups: 3,
		MaxAge:     30, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zap.InfoLevel,
	)

	return &Logger{
		logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
	}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{logger: zap.NewNop()}
}

func (l *Logger) Info(module, message string, fields ...zap.Field) {
	l.logger.Info(message, append([]zap.Field{zap.String("module", module)}, fields...)...)
}

func (l *Logger) Warn(module, message string, fields ...zap.Field) {
	l.logger.Warn(message, append([]zap.Field{zap.String("module", module)}, fields...)...)
}

func (l *Logger) Error(module, message string, fields ...zap.Field) {
	l.logger.Error(message, append([]zap.Field{zap.String("module", module)}, fields...)...)
}

func (l *Logger) Sync() error {
	return l.logger.Sync()
}
