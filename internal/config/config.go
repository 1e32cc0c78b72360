// Package config holds the pipeline configuration: directory layout, manifest
// format, filtering thresholds, and the archive lists of the supported
// corpora. Configuration is read from a YAML file merged over built-in
// defaults, with a few environment-variable overrides for the paths.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides. These take precedence over the config file
// so CI and one-off runs can redirect output without editing YAML.
const (
	EnvDataDir  = "CORPUSGEN_DATA_DIR"
	EnvCacheDir = "CORPUSGEN_CACHE_DIR"
	EnvWorkers  = "CORPUSGEN_WORKERS"
)

// Archive identifies one downloadable corpus archive.
type Archive struct {
	URL string `yaml:"url"`
	MD5 string `yaml:"md5"`
}

// Config is the explicit configuration passed to every pipeline component.
type Config struct {
	// DataDir receives the generated CSV manifests and corpus.json.
	DataDir string `yaml:"data_dir"`
	// CacheDir receives downloaded archives and their extracted trees.
	CacheDir string `yaml:"cache_dir"`
	// CorpusDir receives the converted WAV files; manifest paths are
	// relative to it.
	CorpusDir string `yaml:"corpus_dir"`

	// CSVDelimiter separates manifest columns. Must be a single character.
	CSVDelimiter string `yaml:"csv_delimiter"`

	// SampleRate is the target sampling rate for converted audio, in Hz.
	SampleRate int `yaml:"sample_rate"`
	// WinStep is the feature analysis window step in seconds; bucket
	// boundaries are expressed in multiples of it.
	WinStep float64 `yaml:"win_step"`

	// MinExampleSeconds and MaxExampleSeconds bound example durations at
	// ingestion time; out-of-range examples are rejected per record.
	MinExampleSeconds float64 `yaml:"min_example_seconds"`
	MaxExampleSeconds float64 `yaml:"max_example_seconds"`

	// MaxTrainSeconds is the ceiling applied when length-sorting the train
	// manifest. Zero or negative disables the filter.
	MaxTrainSeconds float64 `yaml:"max_train_seconds"`

	// NumBuckets is the maximum number of length buckets to compute.
	NumBuckets int `yaml:"num_buckets"`

	// Workers is the conversion worker pool size.
	Workers int `yaml:"workers"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Corpora maps a corpus name to its downloadable archives.
	Corpora map[string][]Archive `yaml:"corpora"`
}

// Default returns the built-in configuration: 16 kHz mono audio, ';'-delimited
// manifests under ./data, and the standard public corpus archives.
func Default() *Config {
	return &Config{
		DataDir:           "data",
		CacheDir:          "data/cache",
		CorpusDir:         "data/corpus",
		CSVDelimiter:      ";",
		SampleRate:        16000,
		WinStep:           0.01,
		MinExampleSeconds: 0.7,
		MaxExampleSeconds: 17.0,
		MaxTrainSeconds:   17.0,
		NumBuckets:        64,
		Workers:           runtime.NumCPU(),
		LogLevel:          "info",
		Corpora: map[string][]Archive{
			"librispeech": {
				{URL: "http://www.openslr.org/resources/12/dev-clean.tar.gz", MD5: "42e2234ba48799c1f50f24a7926300a1"},
				{URL: "http://www.openslr.org/resources/12/test-clean.tar.gz", MD5: "32fa31d27d2e1cad72775fee3f4849a9"},
				{URL: "http://www.openslr.org/resources/12/train-clean-100.tar.gz", MD5: "2a93770f6d5c6c964bc36631d331a522"},
				{URL: "http://www.openslr.org/resources/12/train-clean-360.tar.gz", MD5: "c0e676e450a7ff2f54aeade5171606fa"},
			},
			"commonvoice": {
				{URL: "https://voice-prod-bundler-ee1969a6ce8178826482b88e843c335139bd3fb4.s3.amazonaws.com/cv-corpus-1/en.tar.gz", MD5: "a639b0e22b969d76abe1c40beb0d3439"},
			},
			"tatoeba": {
				{URL: "https://downloads.tatoeba.org/audio/tatoeba_audio_eng.zip", MD5: "d76252fd704734fc3d8bf5b44e029809"},
			},
			"tedlium": {
				{URL: "http://www.openslr.org/resources/19/TEDLIUM_release2.tar.gz", MD5: "7ffb54fa30189df794dcc5445d013368"},
			},
		},
	}
}

// Load reads the YAML config at path over the defaults and applies
// environment overrides. A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.DataDir = getenv(EnvDataDir, cfg.DataDir)
	cfg.CacheDir = getenv(EnvCacheDir, cfg.CacheDir)
	cfg.Workers = getenvInt(EnvWorkers, cfg.Workers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("csv_delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.WinStep <= 0 {
		return fmt.Errorf("win_step must be positive, got %v", c.WinStep)
	}
	if c.MinExampleSeconds < 0 || c.MaxExampleSeconds < c.MinExampleSeconds {
		return fmt.Errorf("invalid example length bounds [%v, %v]",
			c.MinExampleSeconds, c.MaxExampleSeconds)
	}
	if c.NumBuckets < 1 {
		return fmt.Errorf("num_buckets must be at least 1, got %d", c.NumBuckets)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Delimiter returns the manifest delimiter as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
