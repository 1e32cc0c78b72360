package manifest

import (
	"sort"
	"testing"
)

// sortedHandle writes lengths (already ascending) and opens a sorted handle.
func sortedHandle(t *testing.T, s *Store, lengths ...float64) *Handle {
	t.Helper()
	path := writeManifest(t, s, "train.csv", examplesWithLengths(lengths...))
	h, err := s.OpenSorted(path)
	assertNoError(t, err)
	return h
}

func TestBucketBoundaries(t *testing.T) {
	t.Parallel()

	// win_step 0.25s maps each length to an exact frame count (1..10).
	// Ten examples, five buckets, stride 2 samples indices 2, 4, 6, 8.
	s := newTestStore(t)
	h := sortedHandle(t, s, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.25, 2.5)

	got, err := s.BucketBoundaries(h, 5, 0.25)
	assertNoError(t, err)

	want := []int{3, 5, 7, 9}
	assertEqual(t, len(got), len(want))
	for i := range want {
		assertEqual(t, got[i], want[i])
	}
}

func TestBucketBoundariesCapAtNumBuckets(t *testing.T) {
	t.Parallel()

	// Eleven examples and four buckets leave a remainder of three, so the
	// stride-2 walk reaches a fifth index. The result must still hold at
	// most four distinct frame counts.
	s := newTestStore(t)
	h := sortedHandle(t, s,
		0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.25, 2.5, 2.75)

	got, err := s.BucketBoundaries(h, 4, 0.25)
	assertNoError(t, err)

	want := []int{3, 5, 7, 9}
	assertEqual(t, len(got), len(want))
	for i := range want {
		assertEqual(t, got[i], want[i])
	}
}

func TestBucketBoundariesCollapseDuplicates(t *testing.T) {
	t.Parallel()

	// All identical lengths: every sampled boundary is the same frame count.
	s := newTestStore(t)
	h := sortedHandle(t, s, 2.0, 2.0, 2.0, 2.0, 2.0, 2.0)

	got, err := s.BucketBoundaries(h, 3, 0.5)
	assertNoError(t, err)
	assertEqual(t, len(got), 1)
	assertEqual(t, got[0], 4)
}

func TestBucketBoundariesProperties(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	lengths := []float64{0.5, 0.7, 1.1, 1.3, 2.2, 3.1, 4.0, 5.5, 8.0, 9.9, 12.0, 16.9}
	h := sortedHandle(t, s, lengths...)

	const numBuckets = 4
	const winStep = 0.01
	got, err := s.BucketBoundaries(h, numBuckets, winStep)
	assertNoError(t, err)

	if len(got) > numBuckets {
		t.Fatalf("got %d boundaries, want at most %d", len(got), numBuckets)
	}
	if !sort.IntsAreSorted(got) {
		t.Fatalf("boundaries not ascending: %v", got)
	}

	observed := make(map[int]bool, len(lengths))
	for _, l := range lengths {
		observed[int(l/winStep)] = true
	}
	for _, b := range got {
		if !observed[b] {
			t.Fatalf("boundary %d is not an observed frame count", b)
		}
	}
}

func TestBucketBoundariesPreconditions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	h := sortedHandle(t, s, 1.0, 2.0, 3.0)

	tests := []struct {
		name       string
		numBuckets int
		winStep    float64
		wantErr    error
	}{
		{"zero_buckets", 0, 0.01, ErrBucketCount},
		{"negative_buckets", -3, 0.01, ErrBucketCount},
		{"more_buckets_than_examples", 4, 0.01, ErrTooFewExamples},
		{"zero_win_step", 2, 0, ErrWindowStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := s.BucketBoundaries(h, tt.numBuckets, tt.winStep)
			assertError(t, err, tt.wantErr)
		})
	}
}

func TestBucketBoundariesRefuseUnsorted(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := writeManifest(t, s, "a_train.csv", examplesWithLengths(1.0, 2.0, 3.0))

	h, err := s.Merge([]string{path}, SplitTrain)
	assertNoError(t, err)

	_, err = s.BucketBoundaries(h, 2, 0.01)
	assertError(t, err, ErrNotSorted)
}
