package logger_test

import (
	"errors"

	"github.com/wonny/pricecast/pkg/config"
	"github.com/wonny/pricecast/pkg/logger"
)

// Example_withFields demonstrates structured logging around a maintenance pass
func Example_withFields() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"date":        "2026-10-18",
		"daily_added": 24,
	}).Info("Daily price batch written")

	log.WithError(errors.New("history file unreadable")).Warn("Treating history as empty")
}
