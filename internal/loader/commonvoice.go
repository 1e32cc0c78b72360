package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// validAccents whitelists the speaker accents accepted from Common Voice.
// The empty accent means the contributor left the field blank.
var validAccents = map[string]bool{
	"us":         true,
	"england":    true,
	"canada":     true,
	"australia":  true,
	"wales":      true,
	"newzealand": true,
	"ireland":    true,
	"scotland":   true,
	"":           true,
}

// minClipBytes guards against empty or truncated MP3 clips.
const minClipBytes = 1024

// CommonVoice loads the Mozilla Common Voice corpus: a validated.tsv index of
// community-reviewed clips. Only a train split is produced; the official
// test/dev partitions are too small to be useful.
type CommonVoice struct {
	deps     Deps
	archives []config.Archive
}

// NewCommonVoice creates the Common Voice loader.
func NewCommonVoice(deps Deps, archives []config.Archive) *CommonVoice {
	return &CommonVoice{deps: deps, archives: archives}
}

// Name implements pipeline.Loader.
func (c *CommonVoice) Name() string { return "commonvoice" }

func (c *CommonVoice) sourceDir() string {
	return filepath.Join(c.deps.CacheDir, "cvv2")
}

// Load downloads the archive if needed, applies the per-record policy checks,
// and converts the surviving clips.
func (c *CommonVoice) Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error) {
	if c.deps.Fetch != nil {
		for _, a := range c.archives {
			if err := c.deps.Fetch(ctx, a.URL, a.MD5); err != nil {
				return nil, fmt.Errorf("commonvoice: %w", err)
			}
		}
	}

	records, skipped, err := c.scanTSV(filepath.Join(c.sourceDir(), "validated.tsv"))
	if err != nil {
		return nil, fmt.Errorf("commonvoice: %w", err)
	}
	c.deps.logger().Info("commonvoice index scanned",
		"accepted", len(records), "skipped", skipped)

	examples, _, err := convertAll(ctx, c.deps, "commonvoice/train", records)
	if err != nil {
		return nil, fmt.Errorf("commonvoice: %w", err)
	}
	return map[manifest.Split][]manifest.Example{manifest.SplitTrain: examples}, nil
}

// scanTSV parses validated.tsv and applies the acceptance policy:
//   - raw label at least 3 characters after trivial cleanup
//   - downvotes at most a quarter of upvotes
//   - whitelisted speaker accent
//   - clip file present and not suspiciously small
//
// Columns: client_id, path, sentence, up_votes, down_votes, age, gender, accent.
func (c *CommonVoice) scanTSV(tsvPath string) ([]RawRecord, int, error) {
	f, err := os.Open(tsvPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse index: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("empty index: %s", tsvPath)
	}
	rows = rows[1:] // header

	clipsDir := filepath.Join(c.sourceDir(), "clips")

	var records []RawRecord
	skipped := 0
	for _, row := range rows {
		if len(row) < 8 {
			skipped++
			continue
		}
		rec, ok := c.acceptRow(row, clipsDir)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func (c *CommonVoice) acceptRow(row []string, clipsDir string) (RawRecord, bool) {
	clipHash := row[1]
	label := strings.ReplaceAll(strings.TrimSpace(row[2]), `"`, "")
	upvotes, upErr := strconv.Atoi(row[3])
	downvotes, downErr := strconv.Atoi(row[4])
	accent := row[7]

	if len(label) < 3 {
		return RawRecord{}, false
	}
	if upErr != nil || downErr != nil {
		return RawRecord{}, false
	}
	// Downvotes must be at most a quarter of upvotes.
	if downvotes > 0 && 4*downvotes > upvotes {
		return RawRecord{}, false
	}
	if !validAccents[accent] {
		return RawRecord{}, false
	}

	mp3Path := filepath.Join(clipsDir, clipHash+".mp3")
	info, err := os.Stat(mp3Path)
	if err != nil || info.Size() < minClipBytes {
		return RawRecord{}, false
	}

	return RawRecord{Path: mp3Path, Label: label}, true
}
