package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/loader"
	"github.com/speechkit/corpusgen/internal/manifest"
)

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeConfigLoader struct {
	cfg *config.Config
	err error
}

func (f *fakeConfigLoader) Load(string) (*config.Config, error) {
	return f.cfg, f.err
}

type fakeSoxResolver struct {
	path string
	err  error
}

func (f *fakeSoxResolver) Resolve() (string, error) {
	return f.path, f.err
}

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, _, targetPath string) error {
	return os.WriteFile(targetPath, []byte("wav"), 0o644)
}

type fakeConverterFactory struct{}

func (fakeConverterFactory) NewConverter(string, int) (loader.Converter, error) {
	return fakeConverter{}, nil
}

type fakeFetcherFactory struct{}

func (fakeFetcherFactory) NewFetcher(*slog.Logger, string, bool) loader.FetchFn {
	return func(context.Context, string, string) error { return nil }
}

func (fakeFetcherFactory) NewFileFetcher(*slog.Logger) loader.FileFetchFn {
	return func(context.Context, string, string) error { return nil }
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// testConfig builds a config pointing at fresh temp directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.CacheDir = t.TempDir()
	cfg.CorpusDir = t.TempDir()
	cfg.Workers = 2
	return cfg
}

// testEnv builds an Env whose collaborators are all fakes, capturing stdout.
func testEnv(cfg *config.Config) (*Env, *bytes.Buffer) {
	var stdout bytes.Buffer
	env := NewEnv(
		WithStdout(&stdout),
		WithStderr(&bytes.Buffer{}),
		WithConfigLoader(&fakeConfigLoader{cfg: cfg}),
		WithSoxResolver(&fakeSoxResolver{path: "/usr/bin/sox"}),
		WithConverterFactory(fakeConverterFactory{}),
		WithFetcherFactory(fakeFetcherFactory{}),
	)
	return env, &stdout
}

// execute runs a command with the given arguments.
func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// writeStoreManifest writes examples into the config's data directory under
// the given name and returns the file path.
func writeStoreManifest(t *testing.T, cfg *config.Config, name string, examples []manifest.Example) string {
	t.Helper()
	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())
	path := filepath.Join(cfg.DataDir, name)
	assertNoError(t, store.Write(path, examples))
	return path
}

func readLengths(t *testing.T, cfg *config.Config, path string) []float64 {
	t.Helper()
	store := manifest.NewStore(cfg.DataDir, cfg.Delimiter())
	examples, err := store.Read(path)
	assertNoError(t, err)
	lengths := make([]float64, len(examples))
	for i, ex := range examples {
		lengths[i] = ex.Length
	}
	return lengths
}

func ex(path, label string, length float64) manifest.Example {
	return manifest.Example{Path: path, Label: label, Length: length}
}

// writeWAV writes a 16-bit mono PCM WAV file with the given duration.
func writeWAV(t *testing.T, path string, sampleRate int, seconds float64) {
	t.Helper()
	assertNoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	frames := int(seconds * float64(sampleRate))
	dataLen := frames * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	assertNoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
