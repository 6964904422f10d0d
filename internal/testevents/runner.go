package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete session replay.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime:      time.Now(),
		ExpectedByKind: make(map[model.EventKind]int),
		ObservedByKind: make(map[model.EventKind]int),
	}

	logger.Get().Info(ctx, "starting iron trials session replay",
		logger.String("baseURL", config.BaseURL),
		logger.Int("skills", config.Skills),
		logger.Int("chatLines", config.ChatLines),
		logger.Int("workers", config.Workers),
		logger.Int64("seed", config.Seed),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Fetch the taxonomy the daemon classifies against
	tax, err := fetchTaxonomy(ctx, config)
	if err != nil {
		return fmt.Errorf("taxonomy fetch failed: %w", err)
	}

	// Step 3: Generate the script
	steps, err := generateScript(ctx, config, tax, stats)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}

	// Step 4: Remember what was recorded before the replay
	before, err := fetchEvents(ctx, config, "/v1/events/recent")
	if err != nil {
		return fmt.Errorf("recent events fetch failed: %w", err)
	}

	// Step 5: Submit the script
	if err := submitSteps(ctx, config, steps, stats); err != nil {
		return fmt.Errorf("script submission failed: %w", err)
	}

	// Step 6: Wait for the session to drain its control queue
	settle := config.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	logger.Get().Info(ctx, "waiting for events to be processed", logger.String("delay", settle.String()))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}

	// Step 7: Verify results
	verifyErr := verifyResults(ctx, config, eventIDs(before.Events), stats)

	// Step 8: Save the script to file
	if err := saveScriptToFile(ctx, config, steps); err != nil {
		logger.Get().Warn(ctx, "failed to save script to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if verifyErr != nil {
		return fmt.Errorf("result verification failed: %w", verifyErr)
	}
	logger.Get().Info(ctx, "replay completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := newHTTPClient(config.BaseURL, config.Timeout).Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveScriptToFile saves the replay script as indented JSON.
func saveScriptToFile(ctx context.Context, config *Config, steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("no steps to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "replay_script_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename) //nolint:gosec // path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(steps); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}

	logger.Get().Info(ctx, "script saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final replay statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, stepsPerSecond float64

	if stats.StepsSubmitted > 0 {
		acceptRate = float64(stats.StepsAccepted) / float64(stats.StepsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		stepsPerSecond = float64(stats.StepsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("stepsGenerated", stats.StepsGenerated),
		logger.Int("stepsSubmitted", stats.StepsSubmitted),
		logger.Int("stepsAccepted", stats.StepsAccepted),
		logger.Int("stepsFailed", stats.StepsFailed),
		logger.Int("eventsExpected", stats.EventsExpected),
		logger.Int("eventsObserved", stats.EventsObserved),
		logger.Any("expectedByKind", stats.ExpectedByKind),
		logger.Any("observedByKind", stats.ObservedByKind),
		logger.String("duration", stats.Duration.String()),
		logger.Any("acceptRate", acceptRate),
		logger.Any("stepsPerSecond", stepsPerSecond))
}
