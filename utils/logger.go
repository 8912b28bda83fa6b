package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides logging functionality
type Logger struct {
	file  *os.File
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger writing to stderr and to logPath. Debug
// messages are dropped unless debug is set.
func NewLogger(logPath string, debug bool) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(encoder, zapcore.AddSync(file), level),
	)

	return newLogger(file, zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))), nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return newLogger(nil, zap.NewNop())
}

func newLogger(file *os.File, z *zap.Logger) *Logger {
	return &Logger{
		file:  file,
		zap:   z,
		sugar: z.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

// Zap returns the structured logger handed to the other packages.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Close flushes and closes the logger
func (l *Logger) Close() error {
	_ = l.zap.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// GetLogPath returns today's log file in dir, or under the XDG state
// directory when dir is empty
func GetLogPath(dir string) string {
	if dir == "" {
		dir = filepath.Join(xdg.StateHome, AppName, "logs")
	}
	return filepath.Join(dir, fmt.Sprintf("app-%s.log", time.Now().Format("2006-01-02")))
}
