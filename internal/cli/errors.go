package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrUnknownCorpus indicates the configuration names a corpus with no
	// registered loader.
	ErrUnknownCorpus = errors.New("unknown corpus in configuration")

	// ErrNoCorpora indicates the configuration enables no corpus at all.
	ErrNoCorpora = errors.New("no corpora configured")
)
