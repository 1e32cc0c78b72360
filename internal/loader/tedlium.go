package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/speechkit/corpusgen/internal/audio"
	"github.com/speechkit/corpusgen/internal/config"
	"github.com/speechkit/corpusgen/internal/manifest"
)

// tedliumFolders maps each split to its folder in the release tree.
var tedliumFolders = map[manifest.Split]string{
	manifest.SplitTrain: "train",
	manifest.SplitTest:  "test",
	manifest.SplitDev:   "dev",
}

// tedliumSegmentRE matches one STM transcript line:
// talk-id, channel, speaker, start seconds, end seconds, label tags, text.
var tedliumSegmentRE = regexp.MustCompile(
	`^[.\w]+ [0-9] [.\w]+ ([0-9]+(?:\.[0-9]+)?) ([0-9]+(?:\.[0-9]+)?) <[\w,]+> ([\w ']+)`)

// Segments a talk's STM marks as untranscribed carry this tag in place of
// text.
const tedliumIgnoreMark = "ignore_time_segment_in_scoring"

// Talk fragments shorter than this many words are applause, laughter, and
// other non-speech; they are dropped.
const minTalkWords = 5

// TEDLIUM loads the TED-LIUM v2 corpus (openslr.org/19): one SPH recording
// per talk plus an STM file of timed transcript segments. Each talk is
// converted to WAV once, then cut into one clip per segment.
type TEDLIUM struct {
	deps     Deps
	archives []config.Archive
}

// NewTEDLIUM creates the TED-LIUM loader.
func NewTEDLIUM(deps Deps, archives []config.Archive) *TEDLIUM {
	return &TEDLIUM{deps: deps, archives: archives}
}

// Name implements pipeline.Loader.
func (l *TEDLIUM) Name() string { return "tedlium" }

func (l *TEDLIUM) sourceDir() string {
	return filepath.Join(l.deps.CacheDir, "TEDLIUM_release2")
}

// Load downloads the archive if needed, then cuts and probes every split.
func (l *TEDLIUM) Load(ctx context.Context) (map[manifest.Split][]manifest.Example, error) {
	if l.deps.Convert == nil {
		return nil, errors.New("tedlium: converter required to read SPH talks")
	}
	if l.deps.Fetch != nil {
		for _, a := range l.archives {
			if err := l.deps.Fetch(ctx, a.URL, a.MD5); err != nil {
				return nil, fmt.Errorf("tedlium: %w", err)
			}
		}
	}

	if info, err := os.Stat(l.sourceDir()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("tedlium: %q is not a directory", l.sourceDir())
	}

	// Segment clips land in the corpus directory already cut to WAV, so the
	// pool only probes them.
	probeDeps := l.deps
	probeDeps.Convert = nil

	out := make(map[manifest.Split][]manifest.Example, len(tedliumFolders))
	for split, folder := range tedliumFolders {
		records, err := l.scan(ctx, folder)
		if err != nil {
			return nil, fmt.Errorf("tedlium %s: %w", split, err)
		}
		examples, _, err := convertAll(ctx, probeDeps, "tedlium/"+string(split), records)
		if err != nil {
			return nil, fmt.Errorf("tedlium %s: %w", split, err)
		}
		out[split] = examples
	}
	return out, nil
}

// scan cuts every talk in one split folder. Talks are independent, so they
// go through a worker pool like the conversion stage.
func (l *TEDLIUM) scan(ctx context.Context, folder string) ([]RawRecord, error) {
	stmDir := filepath.Join(l.sourceDir(), folder, "stm")
	entries, err := os.ReadDir(stmDir)
	if err != nil {
		return nil, err
	}

	workers := l.deps.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		records []RawRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".stm") {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := l.cutTalk(ctx, folder, entry.Name())
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, recs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// cutTalk converts one talk's SPH recording to WAV, then writes one clip per
// usable STM segment into the corpus directory.
func (l *TEDLIUM) cutTalk(ctx context.Context, folder, stmName string) ([]RawRecord, error) {
	name := strings.TrimSuffix(stmName, ".stm")
	sphPath := filepath.Join(l.sourceDir(), folder, "sph", name+".sph")
	talkWav := filepath.Join(l.sourceDir(), folder, "sph", name+".wav")

	if err := l.deps.Convert.Convert(ctx, sphPath, talkWav); err != nil {
		return nil, err
	}
	pcm, err := audio.LoadPCM(talkWav)
	if err != nil {
		return nil, err
	}

	clipBase, err := targetWavPath(l.deps.CacheDir, l.deps.CorpusDir, sphPath)
	if err != nil {
		return nil, err
	}
	clipBase = strings.TrimSuffix(clipBase, ".wav")

	f, err := os.Open(filepath.Join(l.sourceDir(), folder, "stm", stmName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []RawRecord
	scanner := bufio.NewScanner(f)
	i := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, tedliumIgnoreMark) {
			continue
		}
		start, end, text, err := parseSTMLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stmName, err)
		}

		label := cleanTalkLabel(text)
		if len(strings.Fields(label)) < minTalkWords {
			continue
		}

		clipPath := clipBase + "_" + strconv.Itoa(i) + ".wav"
		if err := audio.WriteSegment(pcm, clipPath, start, end); err != nil {
			return nil, err
		}
		records = append(records, RawRecord{Path: clipPath, Label: label})
		i++
	}
	return records, scanner.Err()
}

// parseSTMLine extracts the start time, end time, and raw text of one STM
// segment line.
func parseSTMLine(line string) (start, end float64, text string, err error) {
	m := tedliumSegmentRE.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, "", fmt.Errorf("malformed stm line %q", line)
	}
	start, err = strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed stm line %q", line)
	}
	end, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed stm line %q", line)
	}
	return start, end, m[3], nil
}

// cleanTalkLabel lowercases a segment transcript and rejoins the tokenized
// contractions the STM format splits off ("it 's" becomes "its").
func cleanTalkLabel(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, " '", "")
	return strings.Join(strings.Fields(text), " ")
}
