package asset

import (
	"fmt"
	"strings"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
)

// Select returns the install target of rel.
// With wantAll the asset whose download URL ends with "-all" is chosen,
// otherwise the asset named exactly "nextflow".
func Select(rel *release.Release, wantAll bool) (release.ResolvedInstall, error) {
	for _, candidate := range rel.Assets {
		if candidate.DownloadURL == "" || !matches(candidate, wantAll) {
			continue
		}

		return release.ResolvedInstall{
			DownloadURL: candidate.DownloadURL,
			Version:     release.NormalizeVersion(rel.Tag),
		}, nil
	}

	variant := release.ToolName
	if wantAll {
		variant = "*" + release.AllVariantSuffix
	}

	return release.ResolvedInstall{}, fmt.Errorf("%w: release %s has no %q asset", release.ErrAssetNotFound, rel.Tag, variant)
}

func matches(candidate release.Asset, wantAll bool) bool {
	if wantAll {
		return strings.HasSuffix(candidate.DownloadURL, release.AllVariantSuffix)
	}

	return candidate.Name == release.ToolName
}
