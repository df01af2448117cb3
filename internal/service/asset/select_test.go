package asset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
)

func edgeRelease() *release.Release {
	return &release.Release{
		Tag: "v22.09.7-edge",
		Assets: []release.Asset{
			{Name: "nextflow-22.09.7-edge-dist", DownloadURL: "https://example.com/v22.09.7-edge/nextflow-22.09.7-edge-dist"},
			{Name: "nextflow", DownloadURL: "https://example.com/v22.09.7-edge/nextflow"},
			{Name: "nextflow-22.09.7-edge-all", DownloadURL: "https://example.com/v22.09.7-edge/nextflow-22.09.7-edge-all"},
		},
	}
}

// TestSelect_Launcher picks the asset named exactly nextflow.
func TestSelect_Launcher(t *testing.T) {
	t.Parallel()

	got, err := Select(edgeRelease(), false)
	require.NoError(t, err)
	require.Equal(t, release.ResolvedInstall{
		DownloadURL: "https://example.com/v22.09.7-edge/nextflow",
		Version:     "22.9.7-edge",
	}, got)
}

// TestSelect_AllVariant picks the asset whose URL ends with -all.
func TestSelect_AllVariant(t *testing.T) {
	t.Parallel()

	got, err := Select(edgeRelease(), true)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/v22.09.7-edge/nextflow-22.09.7-edge-all", got.DownloadURL)
	require.Equal(t, "22.9.7-edge", got.Version)
}

// TestSelect_Missing fails for both variants when the asset is absent.
func TestSelect_Missing(t *testing.T) {
	t.Parallel()

	rel := &release.Release{
		Tag: "v22.10.2",
		Assets: []release.Asset{
			{Name: "nextflow-22.10.2-dist", DownloadURL: "https://example.com/nextflow-22.10.2-dist"},
			{Name: "nextflow", DownloadURL: ""},
		},
	}

	_, err := Select(rel, true)
	require.ErrorIs(t, err, release.ErrAssetNotFound)

	_, err = Select(rel, false)
	require.ErrorIs(t, err, release.ErrAssetNotFound)

	_, err = Select(&release.Release{Tag: "v22.10.2"}, false)
	require.ErrorIs(t, err, release.ErrAssetNotFound)
}
