// Package manifest assembles, merges, sorts, and inspects the CSV manifests
// that describe a speech corpus: one row per audio example, listing its path
// relative to the corpus root, its normalized transcript label, and its
// duration in seconds.
package manifest

// Example is one manifest row.
type Example struct {
	// Path to the audio file, relative to the corpus root.
	Path string

	// Label is the transcript. Manifests on disk only ever contain
	// normalized labels (lowercase letters and single spaces).
	Label string

	// Length is the audio duration in seconds.
	Length float64
}

// Split identifies a dataset partition.
type Split string

// The three dataset partitions.
const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
	SplitDev   Split = "dev"
)

// Valid reports whether s is one of train, test, or dev.
func (s Split) Valid() bool {
	switch s {
	case SplitTrain, SplitTest, SplitDev:
		return true
	}
	return false
}

// Handle refers to a merged manifest file and records whether it has been
// length-sorted. Bucket boundaries can only be computed from a sorted handle,
// so a caller cannot accidentally bucket data that was never sorted.
type Handle struct {
	path   string
	sorted bool
}

// Path returns the manifest file path.
func (h *Handle) Path() string { return h.path }

// Sorted reports whether the manifest behind h is length-sorted.
func (h *Handle) Sorted() bool { return h.sorted }
