// Package asset picks the downloadable file of a resolved release.
package asset
