package loader

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// libriSpeechFolders maps each split to the LibriSpeech subsets it is built
// from.
var libriSpeechFolders = map[manifest.Split][]string{
	manifest.SplitTrain: {"train-clean-100", "train-clean-360"},
	manifest.SplitTest:  {"test-clean"},
	manifest.SplitDev:   {"dev-clean"},
}

// LibriSpeech loads the LibriSpeech ASR corpus (openslr.org/12): FLAC audio
// grouped in chapter directories, each with a *.trans.txt transcript file of
// "ID transcript" lines.
type LibriSpeech struct {
	deps     Deps
	archives []config.Archive
}

// NewLibriSpeech creates the LibriSpeech loader.
func NewLibriSpeech(deps Deps, archives []config.Archive) *LibriSpeech {
	return &LibriSpeech{deps: deps, archives: archives}
}

// Name implements pipeline.Loader.
func (l *LibriSpeech) Name() string { return "librispeech" }

// sourceDir is where the extracted archives place the corpus tree.
func (l *LibriSpeech) sourceDir() string {
	return filepath.Join(l.deps.CacheDir, "LibriSpeech")
}

// Load downloads the archives if needed, then scans and converts every split.
func (l *LibriSpeech) Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error) {
	if l.deps.Fetch != nil {
		for _, a := range l.archives {
			if err := l.deps.Fetch(ctx, a.URL, a.MD5); err != nil {
				return nil, fmt.Errorf("librispeech: %w", err)
			}
		}
	}

	if info, err := os.Stat(l.sourceDir()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("librispeech: %q is not a directory", l.sourceDir())
	}

	out := make(map[manifest.Split][]manifest.Example, len(libriSpeechFolders))
	for split, folders := range libriSpeechFolders {
		records, err := l.scan(folders)
		if err != nil {
			return nil, fmt.Errorf("librispeech %s: %w", split, err)
		}
		examples, _, err := convertAll(ctx, l.deps, "librispeech/"+string(split), records)
		if err != nil {
			return nil, fmt.Errorf("librispeech %s: %w", split, err)
		}
		out[split] = examples
	}
	return out, nil
}

// scan walks the given subset folders and collects raw records from every
// transcript file.
func (l *LibriSpeech) scan(folders []string) ([]RawRecord, error) {
	var records []RawRecord
	for _, folder := range folders {
		root := filepath.Join(l.sourceDir(), folder)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".trans.txt") {
				return nil
			}
			recs, err := parseTransFile(path)
			if err != nil {
				return err
			}
			records = append(records, recs...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// parseTransFile reads a *.trans.txt file of "ID transcript" lines and pairs
// each line with its FLAC file in the same directory. Lines whose audio file
// is missing are skipped.
func parseTransFile(transPath string) ([]RawRecord, error) {
	f, err := os.Open(transPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(transPath)
	var records []RawRecord

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, label, found := strings.Cut(line, " ")
		if !found {
			continue
		}

		flacPath := filepath.Join(dir, id+".flac")
		if _, err := os.Stat(flacPath); err != nil {
			continue
		}
		records = append(records, RawRecord{Path: flacPath, Label: label})
	}
	return records, scanner.Err()
}
