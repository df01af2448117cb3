// Package setup runs the whole action: it resolves the requested Nextflow
// version, installs it through the runner tool cache and puts it on PATH.
package setup
