package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/speechkit/corpusgen/internal/manifest"
)

// TIMIT loads the TIMIT corpus. TIMIT is licensed and cannot be downloaded;
// the tree must be placed in <corpus dir>/TIMIT by hand, including the
// train_all.txt and test_all.txt listings of "wav,txt,phn,wrd" paths. Audio
// ships as 16 kHz WAV already, so records are probed without conversion.
type TIMIT struct {
	deps Deps
}

// NewTIMIT creates the TIMIT loader. Conversion is disabled regardless of
// deps.Convert since the corpus is already in the target format.
func NewTIMIT(deps Deps) *TIMIT {
	deps.Convert = nil
	return &TIMIT{deps: deps}
}

// Name implements pipeline.Loader.
func (t *TIMIT) Name() string { return "timit" }

func (t *TIMIT) dir() string {
	return filepath.Join(t.deps.CorpusDir, "TIMIT")
}

// Load probes the train and test listings. TIMIT has no dev partition.
func (t *TIMIT) Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error) {
	if info, err := os.Stat(t.dir()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("timit: %q is not a directory; place the corpus there by hand", t.dir())
	}

	out := make(map[manifest.Split][]manifest.Example, 2)
	for _, split := range []manifest.Split{manifest.SplitTrain, manifest.SplitTest} {
		records, err := t.scan(split)
		if err != nil {
			return nil, fmt.Errorf("timit %s: %w", split, err)
		}
		examples, _, err := convertAll(ctx, t.deps, "timit/"+string(split), records)
		if err != nil {
			return nil, fmt.Errorf("timit %s: %w", split, err)
		}
		out[split] = examples
	}
	return out, nil
}

// scan reads the split's master listing and resolves each line's WAV path and
// single-line transcript. The SA1/SA2 dialect sentences are skipped: every
// speaker repeats them, which would skew the label distribution.
func (t *TIMIT) scan(split manifest.Split) ([]RawRecord, error) {
	listing := filepath.Join(t.dir(), string(split)+"_all.txt")
	f, err := os.Open(listing)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	var records []RawRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed listing line: %q", line)
		}
		wavPath, txtPath := fields[0], fields[1]

		base := filepath.Base(wavPath)
		if base == "SA1.WAV" || base == "SA2.WAV" {
			continue
		}

		label, err := readPromptFile(filepath.Join(t.dir(), txtPath))
		if err != nil {
			return nil, err
		}
		records = append(records, RawRecord{
			Path:  filepath.Join(t.dir(), wavPath),
			Label: label,
		})
	}
	return records, scanner.Err()
}

// readPromptFile parses a TIMIT .TXT prompt: one line of
// "<start-sample> <end-sample> <transcript>".
func readPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}

	line := strings.TrimSpace(string(data))
	if strings.ContainsRune(line, '\n') {
		return "", fmt.Errorf("prompt %s: expected a single line", path)
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("prompt %s: malformed line %q", path, line)
	}
	return parts[2], nil
}
