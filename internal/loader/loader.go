// Package loader turns raw corpus trees into manifest examples: it scans each
// corpus layout for (audio, transcript) pairs, converts the audio to the
// normalized WAV format through a worker pool, probes durations, and rejects
// out-of-policy examples per record.
package loader

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/speechkit/corpusgen/internal/manifest"
)

// RawRecord is one (audio file, raw transcript) pair produced by a corpus
// scanner, before conversion and filtering.
type RawRecord struct {
	// Path to the source audio file, absolute or relative to the working
	// directory.
	Path string
	// Label is the raw transcript; normalization happens at manifest
	// generation time.
	Label string
}

// Converter transcodes one audio file into the normalized WAV format.
// *audio.Converter satisfies it.
type Converter interface {
	Convert(ctx context.Context, inputPath, targetPath string) error
}

// ProbeFn returns the duration in seconds of a WAV file.
type ProbeFn func(path string) (float64, error)

// FetchFn downloads and extracts one corpus archive into the cache.
type FetchFn func(ctx context.Context, url, md5 string) error

// FileFetchFn downloads one support file (no extraction, no checksum) to
// destPath.
type FileFetchFn func(ctx context.Context, url, destPath string) error

// Deps bundles the collaborators every corpus loader shares.
type Deps struct {
	// Fetch downloads archives. Nil disables downloading; the corpus tree
	// must already be in place.
	Fetch FetchFn
	// FetchFile downloads plain support files a corpus needs alongside its
	// archives. Nil disables downloading, like Fetch.
	FetchFile FileFetchFn
	// Convert transcodes audio. Nil means the corpus is already in the
	// normalized format and is only probed.
	Convert Converter
	// Probe measures converted audio duration.
	Probe ProbeFn

	// CacheDir holds extracted archives; CorpusDir receives converted WAVs.
	CacheDir  string
	CorpusDir string

	// MinSeconds and MaxSeconds bound example durations; out-of-range
	// examples are rejected.
	MinSeconds float64
	MaxSeconds float64

	// Workers is the conversion pool size.
	Workers int

	// Progress receives the conversion progress bar; nil disables it.
	Progress io.Writer

	Logger *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Stats summarizes one conversion run.
type Stats struct {
	Converted int
	Rejected  int
}

// convertAll runs the conversion worker pool over records: each worker
// transcodes one file into the corpus directory, probes its duration, and
// rejects examples outside the configured length bounds. Conversion and probe
// failures are per-record rejections, not fatal errors. Appends to the shared
// output slice are serialized by a mutex.
//
// Result order follows completion order, not input order; the manifest is
// length-sorted later anyway.
func convertAll(ctx context.Context, deps Deps, name string, records []RawRecord) ([]manifest.Example, Stats, error) {
	// A bar with total zero never completes, which would hang p.Wait.
	if len(records) == 0 {
		deps.logger().Info("corpus converted", "corpus", name, "examples", 0, "rejected", 0)
		return nil, Stats{}, nil
	}

	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}

	out := deps.Progress
	if out == nil {
		out = io.Discard
	}
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(64))
	bar := p.New(int64(len(records)),
		mpb.BarStyle(),
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var (
		mu       sync.Mutex
		examples []manifest.Example
		rejected int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, rec := range records {
		g.Go(func() error {
			defer bar.Increment()

			if err := ctx.Err(); err != nil {
				return err
			}

			ex, ok := convertOne(ctx, deps, rec)

			mu.Lock()
			defer mu.Unlock()
			if !ok {
				rejected++
				return nil
			}
			examples = append(examples, ex)
			return nil
		})
	}

	err := g.Wait()
	p.Wait()
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Converted: len(examples), Rejected: rejected}
	deps.logger().Info("corpus converted",
		"corpus", name, "examples", stats.Converted, "rejected", stats.Rejected)
	return examples, stats, nil
}

// convertOne processes a single record; ok=false means rejection.
func convertOne(ctx context.Context, deps Deps, rec RawRecord) (manifest.Example, bool) {
	log := deps.logger()

	wavPath := rec.Path
	if deps.Convert != nil {
		target, err := targetWavPath(deps.CacheDir, deps.CorpusDir, rec.Path)
		if err != nil {
			log.Debug("record rejected", "path", rec.Path, "reason", err)
			return manifest.Example{}, false
		}
		if err := deps.Convert.Convert(ctx, rec.Path, target); err != nil {
			log.Debug("record rejected", "path", rec.Path, "reason", err)
			return manifest.Example{}, false
		}
		wavPath = target
	}

	seconds, err := deps.Probe(wavPath)
	if err != nil {
		log.Debug("record rejected", "path", wavPath, "reason", err)
		return manifest.Example{}, false
	}
	if seconds < deps.MinSeconds || seconds > deps.MaxSeconds {
		log.Debug("record rejected", "path", wavPath, "seconds", seconds,
			"reason", "duration out of bounds")
		return manifest.Example{}, false
	}

	rel, err := filepath.Rel(deps.CorpusDir, wavPath)
	if err != nil {
		log.Debug("record rejected", "path", wavPath, "reason", err)
		return manifest.Example{}, false
	}

	return manifest.Example{Path: rel, Label: rec.Label, Length: seconds}, true
}

// targetWavPath mirrors the source file's position under the cache into the
// corpus directory, with a .wav extension.
func targetWavPath(cacheDir, corpusDir, sourcePath string) (string, error) {
	rel, err := filepath.Rel(cacheDir, sourcePath)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(rel)
	return filepath.Join(corpusDir, strings.TrimSuffix(rel, ext)+".wav"), nil
}
