package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/speechkit/corpusgen/internal/audio"
	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/fetch"
	"github.com/speechkit/corpusgen/internal/loader"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options or by building a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Factories for domain objects
	ConfigLoader     ConfigLoader
	SoxResolver      SoxResolver
	ConverterFactory ConverterFactory
	FetcherFactory   FetcherFactory
}

// ConfigLoader loads the pipeline configuration; an empty path uses the
// defaults.
type ConfigLoader interface {
	Load(path string) (*config.Config, error)
}

// SoxResolver locates the sox binary.
type SoxResolver interface {
	Resolve() (string, error)
}

// ConverterFactory builds the audio converter the loaders share.
type ConverterFactory interface {
	NewConverter(soxPath string, sampleRate int) (loader.Converter, error)
}

// FetcherFactory builds the archive and support-file download functions.
type FetcherFactory interface {
	NewFetcher(logger *slog.Logger, cacheDir string, keepArchives bool) loader.FetchFn
	NewFileFetcher(logger *slog.Logger) loader.FileFetchFn
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithSoxResolver sets the sox resolver.
func WithSoxResolver(r SoxResolver) EnvOption {
	return func(e *Env) { e.SoxResolver = r }
}

// WithConverterFactory sets the converter factory.
func WithConverterFactory(f ConverterFactory) EnvOption {
	return func(e *Env) { e.ConverterFactory = f }
}

// WithFetcherFactory sets the fetcher factory.
func WithFetcherFactory(f FetcherFactory) EnvOption {
	return func(e *Env) { e.FetcherFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		ConfigLoader:     &defaultConfigLoader{},
		SoxResolver:      &defaultSoxResolver{},
		ConverterFactory: &defaultConverterFactory{},
		FetcherFactory:   &defaultFetcherFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(path string) (*config.Config, error) {
	return config.Load(path)
}

type defaultSoxResolver struct{}

func (defaultSoxResolver) Resolve() (string, error) {
	return audio.Resolve()
}

type defaultConverterFactory struct{}

func (defaultConverterFactory) NewConverter(soxPath string, sampleRate int) (loader.Converter, error) {
	return audio.NewConverter(soxPath, sampleRate)
}

type defaultFetcherFactory struct{}

func (defaultFetcherFactory) NewFetcher(logger *slog.Logger, cacheDir string, keepArchives bool) loader.FetchFn {
	client := fetch.NewClient(fetch.WithLogger(logger))
	return func(ctx context.Context, url, md5 string) error {
		_, err := client.Fetch(ctx, url, md5, cacheDir, keepArchives)
		return err
	}
}

func (defaultFetcherFactory) NewFileFetcher(logger *slog.Logger) loader.FileFetchFn {
	client := fetch.NewClient(fetch.WithLogger(logger))
	return client.FetchFile
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ SoxResolver      = (*defaultSoxResolver)(nil)
	_ ConverterFactory = (*defaultConverterFactory)(nil)
	_ FetcherFactory   = (*defaultFetcherFactory)(nil)
)
