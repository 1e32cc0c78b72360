package manifest

// Length returns the number of examples in a manifest and their summed
// duration in seconds. No filtering is applied.
func (s *Store) Length(path string) (int, float64, error) {
	examples, err := s.Read(path)
	if err != nil {
		return 0, 0, err
	}

	var total float64
	for _, ex := range examples {
		total += ex.Length
	}
	return len(examples), total, nil
}
