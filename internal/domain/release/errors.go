package release

import "errors"

// ErrAuthentication is returned when the GitHub token is missing or rejected.
var ErrAuthentication = errors.New("authentication failure")

// ErrUpstreamUnavailable is returned when listing or fetching releases fails.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrNoMatchingRelease is returned when no release satisfies the specifier.
var ErrNoMatchingRelease = errors.New("no matching release")

// ErrInvalidSpecifier is returned when a specifier is neither an alias nor a version range.
var ErrInvalidSpecifier = errors.New("invalid version specifier")

// ErrAssetNotFound is returned when the release carries no asset matching the selection.
var ErrAssetNotFound = errors.New("asset not found")

// ErrDownloadFailed is returned when the asset download fails after all retries.
var ErrDownloadFailed = errors.New("download failed")

// ErrInstallIO is returned when moving the binary or changing its permissions fails.
var ErrInstallIO = errors.New("install i/o failure")
