// Package pipeline orchestrates dataset assembly: it runs every corpus
// loader, generates per-corpus manifests, merges them into the unified
// train/test/dev manifests, length-sorts the train manifest for curriculum
// training, and writes the corpus.json summary.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// MetadataFile is the summary file name, written into the data directory.
const MetadataFile = "corpus.json"

// Loader produces examples for one corpus, keyed by dataset split. A corpus
// that has no data for a split omits the key.
type Loader interface {
	Name() string
	Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error)
}

// Metadata summarizes the assembled dataset.
type Metadata struct {
	TrainSize   int     `json:"train_size"`
	TestSize    int     `json:"test_size"`
	DevSize     int     `json:"dev_size"`
	TrainLength float64 `json:"train_length"`
}

// Pipeline wires the manifest store and configuration into one assembly run.
type Pipeline struct {
	cfg    *config.Config
	store  *manifest.Store
	logger *slog.Logger
}

// New creates a pipeline. A nil logger falls back to slog.Default.
func New(cfg *config.Config, store *manifest.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger}
}

// splitOrder fixes the processing order so merged manifests are reproducible
// run to run.
var splitOrder = []manifest.Split{manifest.SplitTrain, manifest.SplitTest, manifest.SplitDev}

// Run executes the full assembly over the given loaders and returns the
// dataset summary it wrote to corpus.json.
func (p *Pipeline) Run(ctx context.Context, loaders []Loader) (Metadata, error) {
	perSplit := make(map[manifest.Split][]string, len(splitOrder))

	for _, loader := range loaders {
		if err := ctx.Err(); err != nil {
			return Metadata{}, err
		}

		p.logger.Info("loading corpus", "corpus", loader.Name())
		splits, err := loader.Load(ctx)
		if err != nil {
			return Metadata{}, fmt.Errorf("load %s: %w", loader.Name(), err)
		}

		for _, split := range splitOrder {
			examples, ok := splits[split]
			if !ok {
				continue
			}
			path, dropped, err := p.store.Generate(loader.Name(), split, examples)
			if err != nil {
				return Metadata{}, fmt.Errorf("generate %s %s: %w", loader.Name(), split, err)
			}
			if dropped > 0 {
				p.logger.Info("dropped examples with too-short labels",
					"corpus", loader.Name(), "split", split, "dropped", dropped)
			}
			perSplit[split] = append(perSplit[split], path)
		}
	}

	handles := make(map[manifest.Split]*manifest.Handle, len(splitOrder))
	for _, split := range splitOrder {
		h, err := p.store.Merge(perSplit[split], split)
		if err != nil {
			return Metadata{}, fmt.Errorf("merge %s: %w", split, err)
		}
		handles[split] = h
	}

	removed, err := p.store.SortByLength(handles[manifest.SplitTrain], p.cfg.MaxTrainSeconds)
	if err != nil {
		return Metadata{}, fmt.Errorf("sort train: %w", err)
	}
	if removed > 0 {
		p.logger.Info("removed too-long training examples",
			"removed", removed, "max_seconds", p.cfg.MaxTrainSeconds)
	}

	md, err := p.summarize(handles)
	if err != nil {
		return Metadata{}, err
	}
	if err := WriteMetadata(filepath.Join(p.cfg.DataDir, MetadataFile), md); err != nil {
		return Metadata{}, err
	}

	p.logger.Info("dataset assembled",
		"train", md.TrainSize, "test", md.TestSize, "dev", md.DevSize,
		"train_seconds", md.TrainLength)
	return md, nil
}

func (p *Pipeline) summarize(handles map[manifest.Split]*manifest.Handle) (Metadata, error) {
	var md Metadata

	for _, split := range splitOrder {
		size, length, err := p.store.Length(handles[split].Path())
		if err != nil {
			return Metadata{}, fmt.Errorf("measure %s: %w", split, err)
		}
		switch split {
		case manifest.SplitTrain:
			md.TrainSize, md.TrainLength = size, length
		case manifest.SplitTest:
			md.TestSize = size
		case manifest.SplitDev:
			md.DevSize = size
		}
	}
	return md, nil
}

// WriteMetadata writes the summary as indented JSON, replacing any existing
// file.
func WriteMetadata(path string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads a previously written summary.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return md, nil
}
