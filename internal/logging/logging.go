package logging

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

// Logger is the leveled logging surface the pipeline needs. Both
// *log.Logger from gommon and echo.Logger satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

const header = `${time_rfc3339} ${level} ${prefix}`

func New(prefix, level string) *log.Logger {
	logger := log.New(prefix)
	logger.SetHeader(header)
	SetLevel(logger, level)
	return logger
}

// Discard returns a logger that writes nowhere. Used in tests.
func Discard() *log.Logger {
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	return logger
}

type levelSetter interface {
	SetLevel(v log.Lvl)
	Warnf(format string, args ...interface{})
}

// SetLevel accepts debug|info|warn|error|off. Unknown names fall back to warn.
func SetLevel(l levelSetter, level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "info":
		l.SetLevel(log.INFO)
	case "warn", "":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	case "off":
		l.SetLevel(log.OFF)
	default:
		l.SetLevel(log.WARN)
		l.Warnf("unknown loglevel: %s . fall-backed to warn", level)
	}
}
