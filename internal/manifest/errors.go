package manifest

import "errors"

// Precondition errors. These indicate a pipeline-ordering or usage bug, not a
// transient condition; callers should fail fast and not retry.
var (
	// ErrInvalidSplit indicates a split name outside train/test/dev.
	// Wrap with the offending name: fmt.Errorf("merge %q: %w", name, ErrInvalidSplit)
	ErrInvalidSplit = errors.New("invalid split name")

	// ErrManifestNotFound indicates an input manifest path that does not
	// exist or is not a regular file, meaning an upstream builder never ran.
	ErrManifestNotFound = errors.New("manifest file not found")

	// ErrNotSorted indicates a bucket computation was attempted on a
	// manifest that was never length-sorted.
	ErrNotSorted = errors.New("manifest is not length-sorted")

	// ErrBucketCount indicates a bucket count below 1.
	ErrBucketCount = errors.New("bucket count must be at least 1")

	// ErrTooFewExamples indicates fewer examples than requested buckets.
	ErrTooFewExamples = errors.New("fewer examples than buckets")

	// ErrWindowStep indicates a non-positive analysis window step.
	ErrWindowStep = errors.New("window step must be positive")
)
