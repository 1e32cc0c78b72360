package manifest

import (
	"fmt"
	"path/filepath"
)

// minLabelLength is the minimum normalized label length to keep an example.
// One- and two-character transcripts are almost always segmentation noise.
const minLabelLength = 2

// Generate writes the per-corpus manifest {corpus}_{split}.csv into the store
// directory, replacing any existing file of that name. Labels are normalized
// first; examples whose normalized label is shorter than two characters are
// dropped. It returns the manifest path and the number of dropped examples.
func (s *Store) Generate(corpus string, split Split, examples []Example) (string, int, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", corpus, split))

	kept := make([]Example, 0, len(examples))
	for _, ex := range examples {
		ex.Label = NormalizeLabel(ex.Label)
		if len(ex.Label) < minLabelLength {
			continue
		}
		kept = append(kept, ex)
	}

	if err := s.Write(path, kept); err != nil {
		return "", 0, err
	}
	return path, len(examples) - len(kept), nil
}
