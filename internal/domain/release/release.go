package release

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// ToolName is the tool cache key and the canonical binary name.
	ToolName = "nextflow"

	// EdgeSuffix marks edge (pre-release channel) tags.
	EdgeSuffix = "-edge"

	// AllVariantSuffix marks the self-contained "-all" asset download URL.
	AllVariantSuffix = "-all"
)

// Asset is one downloadable file attached to a release.
type Asset struct {
	// Name is the file name shown on the release page.
	Name string
	// DownloadURL is the browser download URL of the file.
	DownloadURL string
}

// Release is one published version of Nextflow.
type Release struct {
	// Tag is the git tag, e.g. "v22.10.2" or "v22.09.7-edge".
	Tag string
	// Name is the display name of the release.
	Name string
	// Assets lists the files attached to the release.
	Assets []Asset
}

// IsEdge reports whether the release belongs to the edge channel.
func (r *Release) IsEdge() bool {
	return strings.HasSuffix(r.Tag, EdgeSuffix)
}

// Clone returns a deep copy of the release.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Assets = append([]Asset(nil), r.Assets...)

	return &cloned
}

// ResolvedInstall is what the installer needs to fetch one release asset.
type ResolvedInstall struct {
	// DownloadURL is the asset URL to download.
	DownloadURL string
	// Version is the normalized version used as the cache key.
	Version string
}

// NormalizeVersion cleans a tag into the cache key form:
// "v22.10.2" becomes "22.10.2" and "v22.09.7-edge" becomes "22.9.7-edge".
// Values that do not parse as a version are returned trimmed but otherwise untouched.
func NormalizeVersion(tag string) string {
	tag = strings.TrimSpace(tag)

	parsed, err := semver.NewVersion(strings.TrimLeft(tag, "=v"))
	if err != nil {
		return tag
	}

	return parsed.String()
}

// IsExplicitVersion reports whether the value names one concrete version
// (major.minor.patch, optional suffix) rather than an alias or a range.
func IsExplicitVersion(value string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(value), "=v")

	core, _, _ := strings.Cut(trimmed, "-")
	core, _, _ = strings.Cut(core, "+")

	if strings.Count(core, ".") != 2 {
		return false
	}

	_, err := semver.NewVersion(trimmed)

	return err == nil
}
