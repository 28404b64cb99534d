package logger

import (
	"strings"
	"sync"

	"metrics-broker/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

var (
	baseMu sync.Mutex
	bases  = make(map[string]*zap.Logger)
)

// levelSource is satisfied by config wrappers exposing the configured level.
type levelSource interface {
	Level() string
}

// -----------------------------------------------------------------------------

// Logger provides printf-style logging scoped to a component name
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance.
// config may be *models.MConfig, a value exposing Level(), a level string, or nil (INFO).
func NewLogger(config interface{}, name string) *Logger {
	level := "INFO"
	switch c := config.(type) {
	case *models.MConfig:
		if c != nil && c.LogLevel != "" {
			level = c.LogLevel
		}
	case levelSource:
		if lv := c.Level(); lv != "" {
			level = lv
		}
	case string:
		if c != "" {
			level = c
		}
	}

	return &Logger{
		name:  name,
		sugar: baseLogger(level).Named(name).Sugar(),
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger discards everything, used by tests
func NewNopLogger() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

// -----------------------------------------------------------------------------

func baseLogger(level string) *zap.Logger {
	key := strings.ToUpper(strings.TrimSpace(level))

	baseMu.Lock()
	defer baseMu.Unlock()

	if l, ok := bases[key]; ok {
		return l
	}

	cfg := zap.NewProductionConfig()
	if key == "DEBUG" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(key))
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	bases[key] = l
	return l
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zapcore.Level {
	switch level {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR", "CRITICAL":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

// Named derives a child logger, e.g. "Broker.Liveness"
func (l *Logger) Named(sub string) *Logger {
	return &Logger{name: l.name + "." + sub, sugar: l.sugar.Named(sub)}
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
