package toolcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/logger"
)

// Cache looks up and stores installed tool directories.
type Cache interface {
	Lookup(ctx context.Context, tool, version string) (string, bool, error)
	Store(ctx context.Context, srcDir, tool, version string) (string, error)
}

// completeSuffix names the marker file next to an entry directory.
const completeSuffix = ".complete"

// errEmptyKey is returned when the tool or version is blank.
var errEmptyKey = errors.New("tool and version must be provided")

// Gate is the filesystem tool cache.
type Gate struct {
	// root is the tool cache directory (RUNNER_TOOL_CACHE).
	root string
	// arch is the architecture directory name.
	arch string
	// now stamps the marker record.
	now func() time.Time
	// mu serialises filesystem access.
	mu sync.Mutex
}

// Option configures the gate.
type Option func(*Gate)

// WithArch overrides the architecture directory name.
func WithArch(arch string) Option {
	return func(g *Gate) {
		if arch != "" {
			g.arch = arch
		}
	}
}

// WithClock overrides the marker timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a gate rooted at root.
func NewGate(root string, opts ...Option) *Gate {
	g := &Gate{
		root: filepath.Clean(root),
		arch: Arch(runtime.GOARCH),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Arch maps a GOARCH value onto the tool cache architecture name.
func Arch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "ia32"
	default:
		return goarch
	}
}

// Lookup returns the cached directory of tool at version when a complete entry exists.
func (g *Gate) Lookup(ctx context.Context, tool, version string) (string, bool, error) {
	dir, err := g.entryDir(tool, version)
	if err != nil {
		return "", false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("stat cache entry: %w", err)
	}

	if !info.IsDir() {
		return "", false, nil
	}

	marker := dir + completeSuffix

	if _, err = os.Stat(marker); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.DebugKV(ctx, "Cache entry has no completion marker", "path", dir)
			return "", false, nil
		}

		return "", false, fmt.Errorf("stat cache marker: %w", err)
	}

	// The marker content is informational only.
	record, err := readMarker(marker)
	if err != nil {
		logger.DebugKV(ctx, "Unreadable completion marker", "path", marker, "error", err)

		record = &Record{}
	}

	logger.DebugKV(ctx, "Cache hit", "path", dir, "cached_at", record.CachedAt)

	return dir, true, nil
}

// Store copies srcDir into the cache entry of tool at version and marks it complete.
// Any previous entry for the same key is replaced.
func (g *Gate) Store(ctx context.Context, srcDir, tool, version string) (string, error) {
	dir, err := g.entryDir(tool, version)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	marker := dir + completeSuffix

	// Drop the marker first so a half-written entry is never visible.
	if err = os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove stale marker: %w", err)
	}

	if err = os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove stale entry: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(dir), dirPermissions); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	if err = os.CopyFS(dir, os.DirFS(srcDir)); err != nil {
		return "", fmt.Errorf("copy %s into cache: %w", srcDir, err)
	}

	record := Record{
		Tool:     tool,
		Version:  release.NormalizeVersion(version),
		Arch:     g.arch,
		CachedAt: g.now().UTC().Format(time.RFC3339),
		Source:   srcDir,
	}

	if err = writeMarker(marker, &record); err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Cached tool", "tool", tool, "version", record.Version, "path", dir)

	return dir, nil
}

// entryDir builds <root>/<tool>/<normalized version>/<arch>.
func (g *Gate) entryDir(tool, version string) (string, error) {
	tool = strings.TrimSpace(tool)
	version = release.NormalizeVersion(version)

	if tool == "" || version == "" {
		return "", errEmptyKey
	}

	return filepath.Join(g.root, tool, version, g.arch), nil
}
