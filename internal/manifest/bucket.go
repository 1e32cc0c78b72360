package manifest

import (
	"fmt"
	"sort"
)

// BucketBoundaries computes duration thresholds for length-based batching.
// Each example's duration is converted to a feature-frame count
// (trunc(length/winStep), the unit the downstream batcher buckets on) and the
// ascending frame list is sampled at a fixed stride so every bucket receives
// an approximately equal example count. Duplicate boundary values collapse,
// so the result holds at most numBuckets distinct frame counts, ascending,
// each one an observed value from the manifest.
//
// The handle must be sorted (see SortByLength and OpenSorted); bucketing an
// unsorted manifest would produce meaningless thresholds, so it fails with
// ErrNotSorted.
func (s *Store) BucketBoundaries(h *Handle, numBuckets int, winStep float64) ([]int, error) {
	if !h.sorted {
		return nil, fmt.Errorf("bucket boundaries for %s: %w", h.path, ErrNotSorted)
	}
	if numBuckets < 1 {
		return nil, fmt.Errorf("bucket boundaries: %d: %w", numBuckets, ErrBucketCount)
	}
	if winStep <= 0 {
		return nil, fmt.Errorf("bucket boundaries: %v: %w", winStep, ErrWindowStep)
	}

	examples, err := s.Read(h.path)
	if err != nil {
		return nil, err
	}
	if len(examples) < numBuckets {
		return nil, fmt.Errorf("bucket boundaries: %d examples, %d buckets: %w",
			len(examples), numBuckets, ErrTooFewExamples)
	}

	frames := make([]int, len(examples))
	for i, ex := range examples {
		frames[i] = int(ex.Length / winStep)
	}

	step := len(frames) / numBuckets
	seen := make(map[int]struct{}, numBuckets)
	for i := step; i < len(frames); i += step {
		if len(seen) == numBuckets {
			break
		}
		seen[frames[i]] = struct{}{}
	}

	boundaries := make([]int, 0, len(seen))
	for b := range seen {
		boundaries = append(boundaries, b)
	}
	sort.Ints(boundaries)
	return boundaries, nil
}
