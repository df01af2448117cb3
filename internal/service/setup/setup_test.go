package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/repository/releases"
	"github.com/mashehu/setup-nextflow/internal/repository/toolcache"
)

// fakeHost records runner side effects.
type fakeHost struct {
	paths     []string
	variables map[string]string
	order     []string
}

func (h *fakeHost) AddPath(dir string) error {
	h.paths = append(h.paths, dir)
	h.order = append(h.order, "path")

	return nil
}

func (h *fakeHost) ExportVariable(name, value string) error {
	if h.variables == nil {
		h.variables = make(map[string]string)
	}

	h.variables[name] = value
	h.order = append(h.order, "env")

	return nil
}

// fakeRepository serves fixed releases.
type fakeRepository struct {
	all    []release.Release
	latest release.Release
}

func (f *fakeRepository) ListAll(context.Context) ([]release.Release, error) {
	return f.all, nil
}

func (f *fakeRepository) Latest(context.Context) (release.Release, error) {
	return f.latest, nil
}

// fakeInstaller writes a dummy launcher into a fresh directory.
type fakeInstaller struct {
	t    *testing.T
	urls []string
	dirs []string
	err  error
}

func (f *fakeInstaller) Install(_ context.Context, downloadURL, _ string) (string, error) {
	f.urls = append(f.urls, downloadURL)

	if f.err != nil {
		return "", f.err
	}

	dir, err := os.MkdirTemp(f.t.TempDir(), "nxf-")
	require.NoError(f.t, err)
	require.NoError(f.t, os.WriteFile(filepath.Join(dir, "nextflow"), []byte("#!/bin/sh\n"), 0o755))

	f.dirs = append(f.dirs, dir)

	return dir, nil
}

func releaseWithAssets(tag string) release.Release {
	base := "https://github.com/nextflow-io/nextflow/releases/download/" + tag + "/"

	return release.Release{
		Tag:  tag,
		Name: "Nextflow " + tag,
		Assets: []release.Asset{
			{Name: "nextflow", DownloadURL: base + "nextflow"},
			{Name: "nextflow-" + strings.TrimPrefix(tag, "v") + "-all", DownloadURL: base + "nextflow-" + strings.TrimPrefix(tag, "v") + "-all"},
		},
	}
}

// harness bundles fakes around a real tool cache gate.
type harness struct {
	host      *fakeHost
	cache     *toolcache.Gate
	installer *fakeInstaller
	repoCalls int
	repoErr   error
	warmed    []string
	warmErr   error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return &harness{
		host:      &fakeHost{},
		cache:     toolcache.NewGate(t.TempDir(), toolcache.WithArch("x64")),
		installer: &fakeInstaller{t: t},
	}
}

func (h *harness) deps() Dependencies {
	repo := &fakeRepository{
		all: []release.Release{
			releaseWithAssets("v22.09.7-edge"),
			releaseWithAssets("v22.10.2"),
			releaseWithAssets("v22.10.1"),
		},
		latest: releaseWithAssets("v22.10.2"),
	}

	return Dependencies{
		Host:  h.host,
		Cache: h.cache,
		NewRepository: func(context.Context, string) (releases.Repository, error) {
			h.repoCalls++

			if h.repoErr != nil {
				return nil, h.repoErr
			}

			return repo, nil
		},
		Installer: h.installer,
		WarmUp: func(_ context.Context, binary string) error {
			h.warmed = append(h.warmed, binary)
			return h.warmErr
		},
	}
}

// TestExecute_InstallsResolvedVersion runs every stage on a cache miss.
func TestExecute_InstallsResolvedVersion(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := Execute(context.Background(), &Options{Token: "t", Version: "latest-edge"}, h.deps())
	require.NoError(t, err)
	require.Equal(t, "22.9.7-edge", result.Version)
	require.False(t, result.CacheHit)
	require.False(t, result.FastPath)

	require.Equal(t, []string{"https://github.com/nextflow-io/nextflow/releases/download/v22.09.7-edge/nextflow"}, h.installer.urls)
	require.Equal(t, "none", h.host.variables[CapsuleLogVariable])
	require.Equal(t, []string{"env", "path"}, h.host.order)
	require.Equal(t, []string{result.Path}, h.host.paths)
	require.Equal(t, []string{filepath.Join(result.Path, "nextflow")}, h.warmed)

	dir, ok, err := h.cache.Lookup(context.Background(), "nextflow", "22.9.7-edge")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, result.Path, dir)

	// The temporary install directory is gone once cached.
	_, err = os.Stat(h.installer.dirs[0])
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExecute_AllVariant downloads the -all asset.
func TestExecute_AllVariant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := Execute(context.Background(), &Options{Token: "t", Version: "^22.0.0", All: true}, h.deps())
	require.NoError(t, err)
	require.Equal(t, []string{"https://github.com/nextflow-io/nextflow/releases/download/v22.10.2/nextflow-22.10.2-all"}, h.installer.urls)
}

// TestExecute_Idempotent downloads once across two runs of the same version.
func TestExecute_Idempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	deps := h.deps()

	first, err := Execute(context.Background(), &Options{Token: "t", Version: "latest-stable"}, deps)
	require.NoError(t, err)

	second, err := Execute(context.Background(), &Options{Token: "t", Version: "latest-stable"}, deps)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.False(t, second.FastPath)
	require.Equal(t, first.Path, second.Path)
	require.Len(t, h.installer.urls, 1)
	require.Len(t, h.warmed, 2)
}

// TestExecute_ExactVersionFastPath serves a cached exact version without the API.
func TestExecute_ExactVersionFastPath(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.cache.Store(context.Background(), installedDir(t), "nextflow", "22.10.2")
	require.NoError(t, err)

	result, err := Execute(context.Background(), &Options{Version: "v22.10.2"}, h.deps())
	require.NoError(t, err)
	require.True(t, result.CacheHit)
	require.True(t, result.FastPath)
	require.Zero(t, h.repoCalls)
	require.Empty(t, h.installer.urls)
	require.Empty(t, h.warmed)
	require.Equal(t, []string{result.Path}, h.host.paths)
	require.Equal(t, "none", h.host.variables[CapsuleLogVariable])
}

// TestExecute_StageFailures halts at the failing stage with its description.
func TestExecute_StageFailures(t *testing.T) {
	t.Parallel()

	t.Run("authentication", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.repoErr = release.ErrAuthentication

		_, err := Execute(context.Background(), &Options{Version: "latest"}, h.deps())
		require.ErrorIs(t, err, release.ErrAuthentication)
		require.ErrorContains(t, err, "could not authenticate to GitHub Releases API")
		require.Empty(t, h.installer.urls)
		require.Empty(t, h.host.paths)
	})

	t.Run("no matching release", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)

		_, err := Execute(context.Background(), &Options{Token: "t", Version: "^30.0.0"}, h.deps())
		require.ErrorIs(t, err, release.ErrNoMatchingRelease)
		require.ErrorContains(t, err, "could not retrieve Nextflow release matching ^30.0.0")
		require.Empty(t, h.installer.urls)
		require.Empty(t, h.warmed)
	})

	t.Run("download", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.installer.err = release.ErrDownloadFailed

		_, err := Execute(context.Background(), &Options{Token: "t", Version: "latest"}, h.deps())
		require.ErrorIs(t, err, release.ErrDownloadFailed)
		require.Empty(t, h.host.paths)
		require.Empty(t, h.warmed)
	})
}

// TestExecute_AssetMissing fails when the release lacks the requested asset.
func TestExecute_AssetMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	deps := h.deps()
	deps.NewRepository = func(context.Context, string) (releases.Repository, error) {
		return &fakeRepository{latest: release.Release{Tag: "v22.10.2"}}, nil
	}

	_, err := Execute(context.Background(), &Options{Token: "t"}, deps)
	require.ErrorIs(t, err, release.ErrAssetNotFound)
	require.ErrorContains(t, err, "could not parse the download URL")
}

// TestExecute_WarmUpFailureOnlyWarns keeps the run successful.
func TestExecute_WarmUpFailureOnlyWarns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.warmErr = errors.New("exit status 1")

	result, err := Execute(context.Background(), &Options{Token: "t", Version: "latest"}, h.deps())
	require.NoError(t, err)
	require.Equal(t, "22.10.2", result.Version)
	require.Len(t, h.warmed, 1)
}

// TestExecute_InvalidConfig fails before any stage runs.
func TestExecute_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o600))

	h := newHarness(t)

	_, err := Execute(context.Background(), &Options{ConfigPath: path}, h.deps())
	require.ErrorContains(t, err, "load configuration")
	require.Empty(t, h.host.order)
}

func installedDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nextflow"), []byte("#!/bin/sh\n"), 0o755))

	return dir
}
