package logging

import (
	"testing"

	"github.com/labstack/gommon/log"
)

func TestSetLevel(t *testing.T) {
	cases := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"INFO":    log.INFO,
		"warn":    log.WARN,
		"":        log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"verbose": log.WARN,
	}
	for name, want := range cases {
		logger := Discard()
		SetLevel(logger, name)
		if got := logger.Level(); got != want {
			t.Fatalf("SetLevel(%q) level = %v, want %v", name, got, want)
		}
	}
}

func TestNewSatisfiesLogger(t *testing.T) {
	var _ Logger = New("etl", "info")
	var _ Logger = Discard()
}
