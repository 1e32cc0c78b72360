package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// tatoebaRatingsURL points at the community review export; it is published
// next to the audio archive, not inside it.
const tatoebaRatingsURL = "http://downloads.tatoeba.org/exports/users_sentences.csv"

// Clips at or below this size are truncated uploads; the corpus carries a
// handful of them.
const minTatoebaClipBytes = 4049

// Tatoeba loads the Tatoeba English audio corpus (tatoeba.org): MP3 clips
// uploaded by community members, indexed by sentences_with_audio.csv and
// quality-gated by the per-user ratings in users_sentences.csv. The corpus
// has no held-out portions, so it contributes to the train split only.
type Tatoeba struct {
	deps     Deps
	archives []config.Archive
}

// NewTatoeba creates the Tatoeba loader.
func NewTatoeba(deps Deps, archives []config.Archive) *Tatoeba {
	return &Tatoeba{deps: deps, archives: archives}
}

// Name implements pipeline.Loader.
func (l *Tatoeba) Name() string { return "tatoeba" }

func (l *Tatoeba) sourceDir() string {
	return filepath.Join(l.deps.CacheDir, "tatoeba_audio_eng")
}

// Load downloads the audio archive and the ratings export if needed, then
// scans and converts the accepted clips.
func (l *Tatoeba) Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error) {
	if l.deps.Fetch != nil {
		for _, a := range l.archives {
			if err := l.deps.Fetch(ctx, a.URL, a.MD5); err != nil {
				return nil, fmt.Errorf("tatoeba: %w", err)
			}
		}
	}
	ratingsPath := filepath.Join(l.sourceDir(), "users_sentences.csv")
	if l.deps.FetchFile != nil {
		if err := l.deps.FetchFile(ctx, tatoebaRatingsURL, ratingsPath); err != nil {
			return nil, fmt.Errorf("tatoeba: %w", err)
		}
	}

	if info, err := os.Stat(l.sourceDir()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("tatoeba: %q is not a directory", l.sourceDir())
	}

	records, err := l.scan(ratingsPath)
	if err != nil {
		return nil, fmt.Errorf("tatoeba: %w", err)
	}
	examples, _, err := convertAll(ctx, l.deps, "tatoeba/train", records)
	if err != nil {
		return nil, fmt.Errorf("tatoeba: %w", err)
	}
	return map[manifest.Split][]manifest.Example{manifest.SplitTrain: examples}, nil
}

// scan pairs each indexed sentence with its MP3 clip, keeping only clips from
// positively rated uploads that are present and large enough to hold audio.
func (l *Tatoeba) scan(ratingsPath string) ([]RawRecord, error) {
	rated, err := readRatedClips(ratingsPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(l.sourceDir(), "sentences_with_audio.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []RawRecord
	scanner := bufio.NewScanner(f)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 {
			continue
		}
		id, username, text := fields[0], fields[1], fields[2]
		if !rated[username+"/"+id] {
			continue
		}

		mp3Path := filepath.Join(l.sourceDir(), "audio", username, id+".mp3")
		info, err := os.Stat(mp3Path)
		if err != nil || info.Size() < minTatoebaClipBytes {
			continue
		}
		records = append(records, RawRecord{Path: mp3Path, Label: text})
	}
	return records, scanner.Err()
}

// readRatedClips reads the tab-delimited ratings export and returns the set
// of "username/sentenceID" clips with a rating of at least one. Rows that do
// not parse (the export is community data) are skipped.
func readRatedClips(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rated := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 {
			continue
		}
		rating, err := strconv.Atoi(fields[2])
		if err != nil || rating < 1 {
			continue
		}
		rated[fields[0]+"/"+fields[1]] = true
	}
	return rated, scanner.Err()
}
