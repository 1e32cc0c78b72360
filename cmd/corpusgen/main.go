package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/audio"
	"github.com/speechkit/corpusgen/internal/cli"
	"github.com/speechkit/corpusgen/internal/fetch"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "corpusgen",
		Short:   "Assemble speech-recognition training datasets",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.SortCmd(env))
	rootCmd.AddCommand(cli.StatsCmd(env))
	rootCmd.AddCommand(cli.BucketsCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3): missing tools, broken downloads.
	if errors.Is(err, audio.ErrSoxNotFound) ||
		errors.Is(err, fetch.ErrDownloadFailed) ||
		errors.Is(err, fetch.ErrChecksumMismatch) ||
		errors.Is(err, fetch.ErrUnsafeArchivePath) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4): bad inputs and preconditions.
	if errors.Is(err, manifest.ErrManifestNotFound) ||
		errors.Is(err, manifest.ErrInvalidSplit) ||
		errors.Is(err, manifest.ErrNotSorted) ||
		errors.Is(err, manifest.ErrBucketCount) ||
		errors.Is(err, manifest.ErrWindowStep) ||
		errors.Is(err, manifest.ErrTooFewExamples) ||
		errors.Is(err, cli.ErrUnknownCorpus) ||
		errors.Is(err, cli.ErrNoCorpora) {
		return ExitValidation
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach. These patterns are stable across Cobra
// versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",          // Missing required flag
	"unknown flag",           // Flag doesn't exist
	"unknown shorthand",      // Short flag doesn't exist
	"flag needs an argument", // Flag provided without value
	"invalid argument",       // Invalid flag value type
	"unknown command",        // Subcommand doesn't exist
	"accepts ",               // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",      // Too few arguments
	"requires at most",       // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
