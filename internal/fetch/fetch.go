// Package fetch downloads corpus archives into a local cache, verifies their
// md5 checksums, and extracts tar.gz and zip trees. Downloads are retried
// with exponential backoff; everything after a successful download is fatal
// on failure.
package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/speechkit/corpusgen/internal/format"
)

// Default retry configuration for archive downloads.
var defaultRetry = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Client downloads and extracts corpus archives.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for downloads (for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry sets the download retry configuration.
func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger for download progress messages.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client with the default retry policy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		retry:      defaultRetry,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch ensures the archive at rawURL is downloaded into cacheDir, verified
// against md5sum, and extracted there. A cached archive whose checksum still
// matches is not downloaded again. When keepArchive is false the archive file
// is removed after extraction. Returns the archive path (which no longer
// exists when keepArchive is false).
func (c *Client) Fetch(ctx context.Context, rawURL, md5sum, cacheDir string, keepArchive bool) (string, error) {
	name, err := archiveName(rawURL)
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(cacheDir, name)

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	cached, err := c.cachedMatches(archivePath, md5sum)
	if err != nil {
		return "", err
	}
	if cached {
		c.logger.Info("archive cached, skipping download", "archive", name)
	} else {
		if err := c.download(ctx, rawURL, archivePath); err != nil {
			return "", err
		}
		if err := verifyMD5(archivePath, md5sum); err != nil {
			return "", err
		}
	}

	c.logger.Info("extracting archive", "archive", name)
	if err := extract(archivePath, cacheDir); err != nil {
		return "", err
	}

	if !keepArchive {
		if err := os.Remove(archivePath); err != nil {
			return "", fmt.Errorf("remove archive: %w", err)
		}
	}
	return archivePath, nil
}

// cachedMatches reports whether a cached archive exists with the wanted md5.
// A cached file with the wrong checksum is treated as a stale partial
// download and deleted.
func (c *Client) cachedMatches(archivePath, md5sum string) (bool, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return false, nil
	}
	if err := verifyMD5(archivePath, md5sum); err != nil {
		if errors.Is(err, ErrChecksumMismatch) {
			c.logger.Warn("cached archive is stale, re-downloading", "archive", archivePath)
			return false, os.Remove(archivePath)
		}
		return false, err
	}
	return true, nil
}

// download streams rawURL to archivePath with retry. The body goes to a
// temporary file renamed into place, so an interrupted download never leaves
// a half-written archive behind.
func (c *Client) download(ctx context.Context, rawURL, archivePath string) error {
	c.logger.Info("downloading", "url", rawURL)

	_, err := retryWithBackoff(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.downloadOnce(ctx, rawURL, archivePath)
	}, func(err error) bool {
		// Retry transport failures and server errors; a 4xx will not
		// get better by asking again.
		return errors.Is(err, errRetryable)
	})
	return err
}

// errRetryable tags download failures worth retrying.
var errRetryable = errors.New("retryable")

func (c *Client) downloadOnce(ctx context.Context, rawURL, archivePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v (%w)", ErrDownloadFailed, err, errRetryable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %s (%w)", ErrDownloadFailed, resp.Status, errRetryable)
	default:
		return fmt.Errorf("%w: status %s", ErrDownloadFailed, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v (%w)", ErrDownloadFailed, err, errRetryable)
	}

	if err := os.Rename(tmpPath, archivePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	c.logger.Info("downloaded",
		"archive", filepath.Base(archivePath), "size", format.Size(written))
	return nil
}

// FetchFile downloads a single support file (no checksum, no extraction) to
// destPath, retrying like an archive download. An existing file is reused.
func (c *Client) FetchFile(ctx context.Context, rawURL, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		c.logger.Info("file cached, skipping download", "file", filepath.Base(destPath))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	return c.download(ctx, rawURL, destPath)
}

// MD5 computes the md5 checksum of a file, streaming so archives larger than
// memory are fine.
func MD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyMD5 compares the file's checksum against want. An empty want skips
// verification.
func verifyMD5(path, want string) error {
	if want == "" {
		return nil
	}
	got, err := MD5(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s: got %s, want %s: %w", path, got, want, ErrChecksumMismatch)
	}
	return nil
}

// extract dispatches on the archive extension. The supported corpora ship as
// either .tar.gz or .zip.
func extract(archivePath, dir string) error {
	if strings.HasSuffix(archivePath, ".zip") {
		return extractZip(archivePath, dir)
	}
	return extractTarGz(archivePath, dir)
}

// extractZip unpacks a .zip archive into dir, rejecting entries that would
// escape it.
func extractZip(archivePath, dir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := securePath(dir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", archivePath, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extract %s: %w", archivePath, err)
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("extract %s: %w", archivePath, err)
		}
		err = writeEntry(target, rc, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return fmt.Errorf("extract %s: %w", archivePath, err)
		}
	}
	return nil
}

// extractTarGz unpacks a .tar.gz archive into dir, rejecting entries that
// would escape it.
func extractTarGz(archivePath, dir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", archivePath, err)
		}

		target, err := securePath(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", archivePath, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", archivePath, err)
			}
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extract %s: %w", archivePath, err)
			}
		default:
			// Symlinks and specials are not part of any supported corpus.
		}
	}
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// securePath joins name under dir and rejects traversal outside it.
func securePath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafeArchivePath)
	}
	return target, nil
}

// archiveName derives the local file name from the archive URL.
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q: %v", ErrDownloadFailed, rawURL, err)
	}
	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: bad url %q: no file name", ErrDownloadFailed, rawURL)
	}
	return name, nil
}
