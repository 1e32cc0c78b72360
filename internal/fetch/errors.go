package fetch

import "errors"

var (
	// ErrDownloadFailed indicates an archive download could not be completed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrChecksumMismatch indicates a downloaded archive's md5 verification failed.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnsafeArchivePath indicates a tar entry that would escape the
	// extraction directory.
	ErrUnsafeArchivePath = errors.New("unsafe path in archive")
)
