package audio

import "errors"

var (
	// ErrSoxNotFound indicates the sox binary is not installed or not on PATH.
	ErrSoxNotFound = errors.New("sox not found")

	// ErrConvertFailed indicates sox exited with an error for one input file.
	// Callers treat this as a per-record rejection, not a fatal error.
	ErrConvertFailed = errors.New("audio conversion failed")

	// ErrUnreadableAudio indicates a file that could not be parsed as WAV.
	ErrUnreadableAudio = errors.New("unreadable audio file")
)
