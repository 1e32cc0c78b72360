package manifest

import "testing"

func TestSortByLengthFiltersAndSorts(t *testing.T) {
	t.Parallel()

	// Scenario: three merged corpora [1.0, 5.0] + [2.0] + [10.0, 0.5],
	// ceiling 9.0 drops the 10.0 record.
	s := newTestStore(t)
	a := writeManifest(t, s, "a_train.csv", examplesWithLengths(1.0, 5.0))
	b := writeManifest(t, s, "b_train.csv", examplesWithLengths(2.0))
	c := writeManifest(t, s, "c_train.csv", examplesWithLengths(10.0, 0.5))

	h, err := s.Merge([]string{a, b, c}, SplitTrain)
	assertNoError(t, err)

	removed, err := s.SortByLength(h, 9.0)
	assertNoError(t, err)
	assertEqual(t, removed, 1)
	assertEqual(t, h.Sorted(), true)

	got, err := s.Read(h.Path())
	assertNoError(t, err)

	want := []float64{0.5, 1.0, 2.0, 5.0}
	assertEqual(t, len(got), len(want))
	for i, l := range lengthsOf(got) {
		assertClose(t, l, want[i])
	}
}

func TestSortByLengthDropsExactCeiling(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := writeManifest(t, s, "train.csv", examplesWithLengths(3.0, 9.0, 1.0))
	h, err := s.Open(path)
	assertNoError(t, err)

	// length >= maxSeconds is dropped, so the 9.0 record goes too.
	removed, err := s.SortByLength(h, 9.0)
	assertNoError(t, err)
	assertEqual(t, removed, 1)

	got, err := s.Read(path)
	assertNoError(t, err)
	assertEqual(t, len(got), 2)
	assertClose(t, got[0].Length, 1.0)
	assertClose(t, got[1].Length, 3.0)
}

func TestSortByLengthZeroKeepsEverything(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := writeManifest(t, s, "train.csv", examplesWithLengths(30.0, 0.1, 17.0))
	h, err := s.Open(path)
	assertNoError(t, err)

	removed, err := s.SortByLength(h, 0)
	assertNoError(t, err)
	assertEqual(t, removed, 0)

	got, err := s.Read(path)
	assertNoError(t, err)
	assertEqual(t, len(got), 3)
	for i := 1; i < len(got); i++ {
		if got[i].Length < got[i-1].Length {
			t.Fatalf("lengths not ascending: %v", lengthsOf(got))
		}
	}
}

func TestSortByLengthIsStable(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	examples := []Example{
		{Path: "first.wav", Label: "same length one", Length: 2.0},
		{Path: "second.wav", Label: "same length two", Length: 2.0},
		{Path: "third.wav", Label: "shorter one", Length: 1.0},
		{Path: "fourth.wav", Label: "same length three", Length: 2.0},
	}
	path := writeManifest(t, s, "train.csv", examples)
	h, err := s.Open(path)
	assertNoError(t, err)

	_, err = s.SortByLength(h, 0)
	assertNoError(t, err)

	got, err := s.Read(path)
	assertNoError(t, err)
	assertEqual(t, got[0].Path, "third.wav")
	assertEqual(t, got[1].Path, "first.wav")
	assertEqual(t, got[2].Path, "second.wav")
	assertEqual(t, got[3].Path, "fourth.wav")
}

func TestCorpusLength(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := writeManifest(t, s, "dev.csv", examplesWithLengths(1.5, 2.5, 0.25))

	count, seconds, err := s.Length(path)
	assertNoError(t, err)
	assertEqual(t, count, 3)
	assertClose(t, seconds, 4.25)
}

func TestCorpusLengthEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := writeManifest(t, s, "dev.csv", nil)

	count, seconds, err := s.Length(path)
	assertNoError(t, err)
	assertEqual(t, count, 0)
	assertClose(t, seconds, 0)
}
