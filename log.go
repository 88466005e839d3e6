package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog discards logs unless HUM_LOGFILE routes them to a file. The
// --debug flag can still raise the level and point logs at stderr later.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile := os.Getenv("HUM_LOGFILE")
	if logFile == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("error setting up logging: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetTimeFormat(time.Kitchen)
	return f.Close, nil
}
