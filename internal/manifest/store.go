package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Manifest column names, in file order.
const (
	HeaderPath   = "path"
	HeaderLabel  = "label"
	HeaderLength = "length"
)

// DefaultDelimiter separates manifest columns unless configured otherwise.
const DefaultDelimiter = ';'

// header is the fixed first row of every manifest file.
var header = []string{HeaderPath, HeaderLabel, HeaderLength}

// Store reads and writes manifest files under a single directory with a fixed
// delimiter. It carries the configuration explicitly so tests can point it at
// a temporary directory.
type Store struct {
	dir   string
	delim rune
}

// NewStore creates a Store rooted at dir. A zero delim falls back to the
// default ';'.
func NewStore(dir string, delim rune) *Store {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &Store{dir: dir, delim: delim}
}

// Dir returns the directory manifests are written to.
func (s *Store) Dir() string { return s.dir }

// Open wraps an existing manifest file in a merged-unsorted handle.
// The file must exist and be a regular file.
func (s *Store) Open(path string) (*Handle, error) {
	if err := statManifest(path); err != nil {
		return nil, err
	}
	return &Handle{path: path}, nil
}

// OpenSorted wraps an existing manifest file in a sorted handle. It verifies
// that the length column is non-decreasing; a manifest that was never sorted
// fails with ErrNotSorted.
func (s *Store) OpenSorted(path string) (*Handle, error) {
	examples, err := s.Read(path)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(examples); i++ {
		if examples[i].Length < examples[i-1].Length {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, ErrNotSorted)
		}
	}
	return &Handle{path: path, sorted: true}, nil
}

// Read loads all example rows from a manifest file, discarding the header.
func (s *Store) Read(path string) ([]Example, error) {
	if err := statManifest(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.delim
	r.FieldsPerRecord = len(header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read manifest %s: missing header row", path)
	}

	// First row is always the header.
	rows = rows[1:]

	examples := make([]Example, 0, len(rows))
	for i, row := range rows {
		length, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: row %d: bad length %q: %w",
				path, i+2, row[2], err)
		}
		examples = append(examples, Example{Path: row[0], Label: row[1], Length: length})
	}
	return examples, nil
}

// Write serializes examples to path, header first, replacing any existing
// file. The write goes to a temporary file in the same directory which is
// renamed into place, so a crash never leaves a truncated manifest behind.
func (s *Store) Write(path string, examples []Example) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	w.Comma = s.delim

	werr := w.Write(header)
	for _, ex := range examples {
		if werr != nil {
			break
		}
		werr = w.Write([]string{ex.Path, ex.Label, formatLength(ex.Length)})
	}
	if werr == nil {
		w.Flush()
		werr = w.Error()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write manifest %s: %w", path, werr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace manifest %s: %w", path, err)
	}
	return nil
}

// formatLength prints a duration with the shortest representation that
// round-trips the exact float64 value, so filtering and sorting see the same
// number after a read-back.
func formatLength(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// statManifest verifies that path exists and is a regular file.
func statManifest(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrManifestNotFound)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file: %w", path, ErrManifestNotFound)
	}
	return nil
}
