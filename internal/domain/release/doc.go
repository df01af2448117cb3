// Package release contains the core domain types for resolving Nextflow releases.
//
// It defines Release and Asset (the subset of the GitHub payload the action
// consumes), ResolvedInstall (what the installer needs) and the error kinds
// every pipeline stage reports through.
package release
