// Package version exposes build metadata for setup-nextflow.
//
// Version, Commit and BuildTime are injected with -ldflags at release time.
// The user agent sent to GitHub is derived from them.
package version
