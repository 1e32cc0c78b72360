// Package audio drives the external sox tool to normalize corpus audio
// (arbitrary input formats to 16 kHz mono WAV) and probes WAV durations.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// convertVolume is the fixed volume factor applied during conversion; slightly
// below unity to avoid clipping when remixing stereo sources to mono.
const convertVolume = 0.95

// Resolve finds the sox binary on PATH.
func Resolve() (string, error) {
	path, err := exec.LookPath("sox")
	if err != nil {
		return "", fmt.Errorf("%w: install sox and ensure it is on PATH", ErrSoxNotFound)
	}
	return path, nil
}

// Args builds the sox argument list converting input into a WAV file at
// target: verbosity errors-only, volume 0.95, resampled to sampleRate,
// remixed to one channel.
func Args(input, target string, sampleRate int) []string {
	return []string{
		"-V1",
		"--volume", strconv.FormatFloat(convertVolume, 'f', 2, 64),
		input,
		"--rate", strconv.Itoa(sampleRate),
		target,
		"remix", "1",
	}
}

// runFn runs an external command and returns its stderr output.
// Replaceable in tests to avoid requiring a sox install.
type runFn func(ctx context.Context, path string, args []string) (string, error)

// Converter converts audio files through sox.
type Converter struct {
	soxPath    string
	sampleRate int
	run        runFn
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRun sets a custom command runner (for testing).
func WithRun(fn runFn) ConverterOption {
	return func(c *Converter) {
		c.run = fn
	}
}

// NewConverter creates a Converter using the sox binary at soxPath.
func NewConverter(soxPath string, sampleRate int, opts ...ConverterOption) (*Converter, error) {
	if soxPath == "" {
		return nil, fmt.Errorf("empty sox path: %w", ErrSoxNotFound)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	c := &Converter{
		soxPath:    soxPath,
		sampleRate: sampleRate,
		run:        runImpl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert transcodes inputPath into a normalized WAV file at targetPath,
// creating parent directories as needed. A sox failure or a missing output
// file is reported as ErrConvertFailed with sox's stderr attached.
func (c *Converter) Convert(ctx context.Context, inputPath, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	stderr, err := c.run(ctx, c.soxPath, Args(inputPath, targetPath, c.sampleRate))
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrConvertFailed, inputPath, err, stderr)
	}

	if _, err := os.Stat(targetPath); err != nil {
		return fmt.Errorf("%w: %s: sox produced no output file", ErrConvertFailed, inputPath)
	}
	return nil
}

// runImpl executes the command and captures stderr, where sox writes its
// diagnostics.
func runImpl(ctx context.Context, path string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}
