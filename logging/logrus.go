package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogrus builds a logrus logger honouring the console format and level.
// Unknown levels fall back to info.
func NewLogrus(cfg ConsoleConfig, w io.Writer) *logrus.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := logrus.New()
	logger.SetOutput(w)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.UseColor,
			DisableColors: !cfg.UseColor,
		})
	}
	return logger
}

// LogrusLevel maps an event severity onto the matching logrus level.
func LogrusLevel(sev Severity) logrus.Level {
	switch sev {
	case SeverityDebug:
		return logrus.DebugLevel
	case SeverityWarn:
		return logrus.WarnLevel
	case SeverityError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
