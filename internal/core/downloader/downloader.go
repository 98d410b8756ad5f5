// Package downloader fetches remote template archives into uniquely named
// temporary files.
package downloader

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/leopaglia/blumen-installer/internal/core/fsys"
	"github.com/leopaglia/blumen-installer/internal/core/hasher"
)

// ErrNetworkFailure is wrapped by every error caused by the remote end: an
// unreachable host, a non-200 status or a body that could not be read.
var ErrNetworkFailure = errors.New("network failure")

// DefaultPrefix is the file name prefix of temporary archives.
const DefaultPrefix = "blumen"

// Downloader streams an HTTP response body to a temporary file on FS.
type Downloader struct {
	FS     fsys.FS
	Client *http.Client
	// Dir is the directory (relative to the FS root) that receives temp files.
	Dir       string
	Prefix    string
	UserAgent string
	// Progress receives a byte progress bar; nil disables it.
	Progress io.Writer
	Logger   zerolog.Logger
}

// New returns a Downloader writing to the root of fs with http.DefaultClient.
func New(fs fsys.FS) *Downloader {
	return &Downloader{
		FS:     fs,
		Client: http.DefaultClient,
		Prefix: DefaultPrefix,
		Logger: zerolog.Nop(),
	}
}

// TempName returns "<prefix>_<token>.zip" where token is derived from the
// current time and 16 random bytes.
func TempName(prefix string) (string, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	digest, err := hasher.CalculateSHA256(io.MultiReader(strings.NewReader(now), bytes.NewReader(seed)))
	if err != nil {
		return "", err
	}
	token := strings.TrimPrefix(digest, "sha256:")[:32]
	return fmt.Sprintf("%s_%s.zip", prefix, token), nil
}

// Fetch downloads url into a new temporary file and returns its path. The
// caller owns the file and is responsible for removing it. On failure no
// file is left behind.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	prefix := d.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name, err := TempName(prefix)
	if err != nil {
		return "", err
	}
	tempPath := path.Join(d.Dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	d.Logger.Debug().Str("url", url).Str("temp", tempPath).Msg("Downloading template archive")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform GET request to %s: %w: %w", url, ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download from %s: received status code %d: %w", url, resp.StatusCode, ErrNetworkFailure)
	}

	file, err := d.FS.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary archive %s: %w", tempPath, err)
	}

	var dst io.Writer = file
	var bar *progressbar.ProgressBar
	if d.Progress != nil {
		bar = newBytesBar(d.Progress, resp.ContentLength)
		dst = io.MultiWriter(file, bar)
	}

	written, copyErr := io.Copy(dst, resp.Body)
	closeErr := file.Close()
	if bar != nil {
		_ = bar.Finish()
	}

	if copyErr != nil {
		d.discard(tempPath)
		return "", fmt.Errorf("failed to read response body from %s: %w: %w", url, ErrNetworkFailure, copyErr)
	}
	if closeErr != nil {
		d.discard(tempPath)
		return "", fmt.Errorf("failed to write temporary archive %s: %w", tempPath, closeErr)
	}

	d.Logger.Debug().Str("temp", tempPath).Int64("bytes", written).Msg("Download complete")
	return tempPath, nil
}

func (d *Downloader) discard(tempPath string) {
	if err := d.FS.Remove(tempPath); err != nil {
		d.Logger.Debug().Err(err).Str("temp", tempPath).Msg("Failed to remove partial download")
	}
}

func newBytesBar(w io.Writer, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer: "█", SaucerHead: "█", SaucerPadding: "░",
			BarStart: "[", BarEnd: "]",
		}),
	)
}
