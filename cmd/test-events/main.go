package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/irontrials/internal/testevents"
)

// Default configuration constants.
const (
	defaultSkills      = 23
	defaultChatLines   = 200
	defaultSeed        = 1
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:7070", "Base URL of the tracker daemon")
		skills     = flag.Int("skills", defaultSkills, "Number of skills to level from 1 to 99")
		chatLines  = flag.Int("chat", defaultChatLines, "Number of chat lines to generate")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submission lanes")
		seed       = flag.Int64("seed", defaultSeed, "Script generator seed")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", testevents.DefaultSettleDelay, "Wait between submission and verification")
		outputFile = flag.String("output", "", "Output file for the generated script (default: replay_script_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for replay output (default: replay_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:     *baseURL,
		Skills:      *skills,
		ChatLines:   *chatLines,
		Workers:     *workers,
		Seed:        *seed,
		Timeout:     *timeout,
		SettleDelay: *settle,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
