package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/speechkit/corpusgen/internal/manifest"
)

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// fakeConverter records conversion calls and can fail selected inputs. It is
// safe for concurrent use, matching the worker pool it is driven by.
type fakeConverter struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeConverter) Convert(_ context.Context, inputPath, targetPath string) error {
	f.mu.Lock()
	f.calls++
	shouldFail := f.fail[filepath.Base(inputPath)]
	f.mu.Unlock()

	if shouldFail {
		return errors.New("conversion failed")
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(targetPath, []byte("wav"), 0o644)
}

// probeByBase returns durations keyed by the file's base name, with a fallback
// default for unlisted files.
func probeByBase(durations map[string]float64, fallback float64) ProbeFn {
	return func(path string) (float64, error) {
		if d, ok := durations[filepath.Base(path)]; ok {
			return d, nil
		}
		return fallback, nil
	}
}

// testDeps builds conversion Deps over a fresh cache and corpus directory.
func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Convert:    &fakeConverter{},
		Probe:      probeByBase(nil, 2.0),
		CacheDir:   t.TempDir(),
		CorpusDir:  t.TempDir(),
		MinSeconds: 0.7,
		MaxSeconds: 17.0,
		Workers:    4,
	}
}

// cacheRecords places source files under the cache directory and returns raw
// records pointing at them.
func cacheRecords(t *testing.T, cacheDir string, names ...string) []RawRecord {
	t.Helper()
	records := make([]RawRecord, len(names))
	for i, name := range names {
		path := filepath.Join(cacheDir, "src", name)
		assertNoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		assertNoError(t, os.WriteFile(path, []byte("audio"), 0o644))
		records[i] = RawRecord{Path: path, Label: "label for " + name}
	}
	return records
}

func sortedPaths(examples []manifest.Example) []string {
	paths := make([]string, len(examples))
	for i, ex := range examples {
		paths[i] = filepath.ToSlash(ex.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestConvertAllConvertsEveryRecord(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	records := cacheRecords(t, deps.CacheDir, "a.flac", "b.flac", "c.flac")

	examples, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 3)
	assertEqual(t, stats.Rejected, 0)

	want := []string{"src/a.wav", "src/b.wav", "src/c.wav"}
	got := sortedPaths(examples)
	for i := range want {
		assertEqual(t, got[i], want[i])
	}
}

func TestConvertAllRejectsFailedConversions(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	deps.Convert = &fakeConverter{fail: map[string]bool{"b.flac": true}}
	records := cacheRecords(t, deps.CacheDir, "a.flac", "b.flac")

	examples, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 1)
	assertEqual(t, stats.Rejected, 1)
	assertEqual(t, filepath.ToSlash(examples[0].Path), "src/a.wav")
}

func TestConvertAllRejectsOutOfBoundsDurations(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	deps.Probe = probeByBase(map[string]float64{
		"short.wav": 0.3,
		"long.wav":  42.0,
	}, 5.0)
	records := cacheRecords(t, deps.CacheDir, "short.flac", "long.flac", "ok.flac")

	examples, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 1)
	assertEqual(t, stats.Rejected, 2)
	assertEqual(t, examples[0].Length, 5.0)
}

func TestConvertAllRejectsUnreadableAudio(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	deps.Probe = func(path string) (float64, error) {
		if strings.Contains(path, "bad") {
			return 0, errors.New("not a wav file")
		}
		return 3.0, nil
	}
	records := cacheRecords(t, deps.CacheDir, "bad.flac", "good.flac")

	_, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 1)
	assertEqual(t, stats.Rejected, 1)
}

func TestConvertAllProbeOnlyKeepsSourcePaths(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	deps.Convert = nil

	// Probe-only records point inside the corpus directory already.
	path := filepath.Join(deps.CorpusDir, "TIMIT", "train", "SI648.WAV")
	assertNoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assertNoError(t, os.WriteFile(path, []byte("wav"), 0o644))
	records := []RawRecord{{Path: path, Label: "hello"}}

	examples, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 1)
	assertEqual(t, filepath.ToSlash(examples[0].Path), "TIMIT/train/SI648.WAV")
	assertEqual(t, examples[0].Label, "hello")
}

func TestConvertAllHonorsCancellation(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	records := cacheRecords(t, deps.CacheDir, "a.flac", "b.flac")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := convertAll(ctx, deps, "test", records)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvertAllDefaultsToSingleWorker(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)
	deps.Workers = 0
	records := cacheRecords(t, deps.CacheDir, "a.flac")

	_, stats, err := convertAll(context.Background(), deps, "test", records)
	assertNoError(t, err)
	assertEqual(t, stats.Converted, 1)
}

func TestTargetWavPathMirrorsCacheLayout(t *testing.T) {
	t.Parallel()

	got, err := targetWavPath("/cache", "/corpus", "/cache/LibriSpeech/19/198/19-198-0000.flac")
	assertNoError(t, err)
	assertEqual(t, filepath.ToSlash(got), "/corpus/LibriSpeech/19/198/19-198-0000.wav")
}
