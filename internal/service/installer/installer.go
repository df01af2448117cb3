package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	goupdate "github.com/doitdistributed/go-update"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/logger"
	"github.com/mashehu/setup-nextflow/internal/version"
)

const (
	// BinaryMode is applied to the installed launcher before the execute bits are forced.
	BinaryMode os.FileMode = 0o755

	// executeBits are added on top of whatever mode the file ends up with.
	executeBits os.FileMode = 0o111

	// downloadSuffix names the partial file next to the final binary.
	downloadSuffix = ".download"

	// Defaults used when no retry policy is configured.
	defaultMaxTries        uint = 5
	defaultInitialInterval      = time.Second
	defaultMaxInterval          = 30 * time.Second
	defaultMaxElapsed           = 5 * time.Minute
)

// errBadHTTPStatus is returned for any non-200 download response.
var errBadHTTPStatus = errors.New("unexpected http status")

// Installer fetches release assets.
type Installer struct {
	// client performs the downloads.
	client *http.Client
	// tempRoot is where per-install directories are created.
	tempRoot string
	// maxTries caps download attempts.
	maxTries uint
	// initialInterval, maxInterval and maxElapsed shape the exponential backoff.
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsed      time.Duration
}

// Option configures the installer.
type Option func(*Installer)

// WithHTTPClient sets the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Installer) {
		if client != nil {
			i.client = client
		}
	}
}

// WithRetry sets the download retry policy. Zero values keep the defaults.
func WithRetry(maxTries uint, initial, maxInterval, maxElapsed time.Duration) Option {
	return func(i *Installer) {
		if maxTries > 0 {
			i.maxTries = maxTries
		}

		if initial > 0 {
			i.initialInterval = initial
		}

		if maxInterval > 0 {
			i.maxInterval = maxInterval
		}

		if maxElapsed > 0 {
			i.maxElapsed = maxElapsed
		}
	}
}

// New creates an installer that places temporary directories under tempRoot
// (os.TempDir when empty).
func New(tempRoot string, opts ...Option) *Installer {
	i := &Installer{
		client:          http.DefaultClient,
		tempRoot:        tempRoot,
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxElapsed:      defaultMaxElapsed,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Install downloads downloadURL into a new temporary directory as an executable
// named "nextflow" and returns that directory. The caller owns the directory.
func (i *Installer) Install(ctx context.Context, downloadURL, toolVersion string) (string, error) {
	dir, err := os.MkdirTemp(i.tempRoot, "nxf-"+sanitize(toolVersion)+"-")
	if err != nil {
		return "", fmt.Errorf("%w: create temporary directory: %w", release.ErrInstallIO, err)
	}

	if err = i.install(ctx, dir, downloadURL); err != nil {
		_ = os.RemoveAll(dir)

		return "", err
	}

	logger.DebugKV(ctx, "Installed launcher", "path", dir, "version", toolVersion)

	return dir, nil
}

func (i *Installer) install(ctx context.Context, dir, downloadURL string) error {
	var (
		target   = filepath.Join(dir, release.ToolName)
		download = target + downloadSuffix
	)

	logger.InfoKV(ctx, "Downloading", "url", downloadURL)

	if err := i.download(ctx, downloadURL, download); err != nil {
		return err
	}

	if err := place(download, target); err != nil {
		return fmt.Errorf("%w: %w", release.ErrInstallIO, err)
	}

	return nil
}

// download fetches url into path, retrying transient failures with exponential backoff.
func (i *Installer) download(ctx context.Context, url, path string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = i.initialInterval
	policy.MaxInterval = i.maxInterval

	attempt := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++

		return struct{}{}, i.fetch(ctx, url, path)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(i.maxTries),
		backoff.WithMaxElapsedTime(i.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.DebugKV(ctx, "Download attempt failed", "attempt", attempt, "retry_in", next.String(), "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s after %d attempt(s): %w", release.ErrDownloadFailed, url, attempt, err)
	}

	return nil
}

// fetch performs one download attempt, truncating path first.
func (i *Installer) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return backoff.Permanent(err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := i.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
		if !retryable(response.StatusCode) {
			return backoff.Permanent(statusErr)
		}

		return statusErr
	}

	output, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, BinaryMode)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %w", release.ErrInstallIO, err))
	}

	if _, err = io.Copy(output, response.Body); err != nil {
		_ = output.Close()

		return err
	}

	if err = output.Close(); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %w", release.ErrInstallIO, err))
	}

	return nil
}

// place moves the downloaded file onto target and forces the execute bits.
func place(download, target string) error {
	payload, err := os.Open(filepath.Clean(download))
	if err != nil {
		return fmt.Errorf("open download: %w", err)
	}

	defer func() {
		_ = payload.Close()
	}()

	// go-update swaps an existing target, so one must be present.
	placeholder, err := os.Create(filepath.Clean(target))
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	if err = placeholder.Close(); err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	if err = goupdate.Apply(payload, goupdate.Options{
		TargetPath: target,
		TargetMode: BinaryMode,
	}); err != nil {
		return fmt.Errorf("apply launcher: %w", err)
	}

	oldFile := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if err = os.Remove(oldFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous launcher: %w", err)
	}

	if err = payload.Close(); err != nil {
		return fmt.Errorf("close download: %w", err)
	}

	if err = os.Remove(download); err != nil {
		return fmt.Errorf("remove download: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat launcher: %w", err)
	}

	if err = os.Chmod(target, info.Mode().Perm()|executeBits); err != nil {
		return fmt.Errorf("chmod launcher: %w", err)
	}

	return nil
}

// retryable reports whether a response status may succeed on a later attempt.
func retryable(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}

	return status < http.StatusBadRequest || status >= http.StatusInternalServerError
}

// sanitize keeps a version usable inside a directory name pattern.
func sanitize(toolVersion string) string {
	toolVersion = strings.TrimSpace(toolVersion)
	if toolVersion == "" {
		return "unknown"
	}

	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '*' || r == os.PathSeparator {
			return '_'
		}

		return r
	}, toolVersion)
}
