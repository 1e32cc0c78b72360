package manifest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Assertion helpers
// =============================================================================

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertError(t *testing.T, err, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func assertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// assertClose checks float equality within the manifest round-trip tolerance.
func assertClose(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("got %v, want %v (tolerance 1e-6)", got, want)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func assertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be absent: %s", path)
	}
}

// =============================================================================
// Fixture helpers
// =============================================================================

// newTestStore creates a Store over a fresh temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), DefaultDelimiter)
}

// writeManifest writes examples as a manifest file and returns its path.
func writeManifest(t *testing.T, s *Store, name string, examples []Example) string {
	t.Helper()
	path := filepath.Join(s.Dir(), name)
	assertNoError(t, s.Write(path, examples))
	return path
}

// examplesWithLengths builds records whose only interesting field is Length.
func examplesWithLengths(lengths ...float64) []Example {
	examples := make([]Example, len(lengths))
	for i, l := range lengths {
		examples[i] = Example{
			Path:   "clip.wav",
			Label:  "some label",
			Length: l,
		}
	}
	return examples
}

// lengthsOf extracts the Length column.
func lengthsOf(examples []Example) []float64 {
	lengths := make([]float64, len(examples))
	for i, ex := range examples {
		lengths[i] = ex.Length
	}
	return lengths
}

// rawLines reads a manifest file as raw text lines.
func rawLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	assertNoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
