package testevents

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/irontrials/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "replay_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission) //nolint:gosec // operator supplied
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Iron Trials Session Replay
==========================

Replays a generated play session against a running tracker daemon and checks
that the recorded achievement events match what the script should produce.
Run it against a freshly started daemon with a group id configured.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the tracker daemon (default "http://localhost:7070")
  -skills int
        Number of skills to level from 1 to 99 (default 23)
  -chat int
        Number of chat lines to generate (default 200)
  -workers int
        Number of concurrent submission lanes (default CPU cores)
  -seed int
        Script generator seed (default 1)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Wait between submission and verification (default 2s)
  -output string
        Output file for the generated script (default: replay_script_TIMESTAMP.json)
  -log string
        Log file for replay output (default: replay_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Replay with default settings
  go run ./cmd/test-events

  # Short replay that fits in the recent events feed
  go run ./cmd/test-events -skills 1 -chat 20

  # Different script against another daemon
  go run ./cmd/test-events -seed 42 -url http://localhost:8090
`)
}
