package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ProbeDuration returns the duration in seconds of a WAV file by reading its
// headers. Files that cannot be parsed fail with ErrUnreadableAudio, which
// callers treat as a per-record rejection.
func ProbeDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("%w: %s: not a valid WAV file", ErrUnreadableAudio, path)
	}

	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnreadableAudio, path, err)
	}
	return dur.Seconds(), nil
}
