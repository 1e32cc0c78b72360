package manifest

import "sort"

// SortByLength rewrites the manifest behind h sorted ascending by duration
// and marks the handle as sorted. The sort is stable: equal durations keep
// their merge order, so the curriculum ordering downstream training relies on
// is deterministic.
//
// When maxSeconds is positive, records with Length >= maxSeconds are dropped
// before writing; maxSeconds <= 0 keeps every record. Returns the number of
// records removed.
func (s *Store) SortByLength(h *Handle, maxSeconds float64) (int, error) {
	examples, err := s.Read(h.path)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(examples, func(i, j int) bool {
		return examples[i].Length < examples[j].Length
	})

	removed := 0
	if maxSeconds > 0 {
		kept := examples[:0]
		for _, ex := range examples {
			if ex.Length >= maxSeconds {
				removed++
				continue
			}
			kept = append(kept, ex)
		}
		examples = kept
	}

	if err := s.Write(h.path, examples); err != nil {
		return 0, err
	}
	h.sorted = true
	return removed, nil
}
