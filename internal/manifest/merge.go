package manifest

import (
	"fmt"
	"path/filepath"
)

// Merge concatenates per-corpus manifests into the unified {split}.csv for
// one dataset partition, replacing any existing file of that name. Records
// keep their per-file order and files are processed in the order given.
//
// Empty path entries are skipped, since not every corpus contributes to every
// split. A non-empty path that does not point at a regular file fails with
// ErrManifestNotFound before anything is written. An invalid split fails with
// ErrInvalidSplit without touching the file system.
func (s *Store) Merge(paths []string, split Split) (*Handle, error) {
	if !split.Valid() {
		return nil, fmt.Errorf("merge %q: %w", split, ErrInvalidSplit)
	}

	var buffer []Example
	for _, path := range paths {
		if path == "" {
			continue
		}
		examples, err := s.Read(path)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", split, err)
		}
		buffer = append(buffer, examples...)
	}

	target := filepath.Join(s.dir, string(split)+".csv")
	if err := s.Write(target, buffer); err != nil {
		return nil, fmt.Errorf("merge %s: %w", split, err)
	}
	return &Handle{path: target}, nil
}
