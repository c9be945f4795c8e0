package telemetry

import (
	"github.com/sirupsen/logrus"

	"ballfield/server/logging"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
	Warnf(format string, args ...any)
}

// LoggerFunc adapts a printf style function into the Logger interface.
// Warnings are forwarded to the same function.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// Warnf implements Logger for LoggerFunc.
func (f LoggerFunc) Warnf(format string, args ...any) {
	f.Printf(format, args...)
}

// WrapLogrus adapts a logrus logger or entry to the Logger interface.
func WrapLogrus(logger logrus.FieldLogger) Logger {
	return &loggerAdapter{logger: logger}
}

// NopLogger discards everything.
func NopLogger() Logger {
	return LoggerFunc(nil)
}

type loggerAdapter struct {
	logger logrus.FieldLogger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Infof(format, args...)
}

func (l *loggerAdapter) Warnf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Warnf(format, args...)
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the logging metrics registry into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}
