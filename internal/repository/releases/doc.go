// Package releases reads Nextflow releases from the GitHub REST API.
//
// GitHubRepository implements Repository on top of go-github with an OAuth2
// token transport. Every failure wraps release.ErrUpstreamUnavailable.
package releases
