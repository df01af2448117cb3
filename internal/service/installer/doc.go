// Package installer downloads a Nextflow launcher into a fresh directory
// and makes it executable.
package installer
