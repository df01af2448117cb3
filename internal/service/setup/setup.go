package setup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mashehu/setup-nextflow/internal/api/actions"
	"github.com/mashehu/setup-nextflow/internal/config"
	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/logger"
	"github.com/mashehu/setup-nextflow/internal/repository/releases"
	"github.com/mashehu/setup-nextflow/internal/repository/toolcache"
	"github.com/mashehu/setup-nextflow/internal/service/asset"
	"github.com/mashehu/setup-nextflow/internal/service/installer"
	"github.com/mashehu/setup-nextflow/internal/service/resolver"
)

// Options are the inputs accepted by the setup entry point.
type Options struct {
	// ConfigPath is the optional path to a settings YAML file.
	ConfigPath string
	// Token authenticates calls to the GitHub Releases API.
	Token string
	// Version is the version specifier to resolve.
	Version string
	// All selects the self-contained "-all" distribution.
	All bool
	// Workflow is set inside GitHub Actions, where the runner filters debug output
	// and the configured log level is ignored.
	Workflow bool
}

// Result describes a completed setup.
type Result struct {
	// Version is the normalized installed version.
	Version string
	// Path is the tool cache directory added to PATH.
	Path string
	// CacheHit is true when no download was needed.
	CacheHit bool
	// FastPath is true when the exact version was served without contacting the API.
	FastPath bool
}

const (
	// CapsuleLogVariable silences the Capsule launcher bundled with Nextflow.
	CapsuleLogVariable = "CAPSULE_LOG"
	capsuleLogValue    = "none"

	warmUpWarning = "Nextflow appears to have installed correctly, but an error was thrown while running it."
)

// Host receives the runner side effects.
type Host interface {
	AddPath(dir string) error
	ExportVariable(name, value string) error
}

// Installer downloads one release asset into a fresh directory.
type Installer interface {
	Install(ctx context.Context, downloadURL, toolVersion string) (string, error)
}

// RepositoryFactory authenticates a release repository with token.
type RepositoryFactory func(ctx context.Context, token string) (releases.Repository, error)

// WarmUpFunc runs the installed binary once.
type WarmUpFunc func(ctx context.Context, binary string) error

// Dependencies are the collaborators of a run. Nil fields are built from configuration.
type Dependencies struct {
	Host          Host
	Cache         toolcache.Cache
	NewRepository RepositoryFactory
	Installer     Installer
	WarmUp        WarmUpFunc
}

// runner holds the collaborators of a single setup execution.
type runner struct {
	cfg  *config.Config
	opts *Options
	deps Dependencies
}

// Run executes the setup and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	_, err := Execute(ctx, opts, Dependencies{})

	return err
}

// Execute runs the setup with explicit dependencies and reports what it did.
func Execute(ctx context.Context, opts *Options, deps Dependencies) (*Result, error) {
	ctx = logger.WithName(ctx, "setup-nextflow")

	cfg, err := config.LoadWithEnvironment(opts.ConfigPath, nil)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if !opts.Workflow {
		// Validated by config.Load.
		level, _ := logger.ParseLogLevel(cfg.LogLevel)
		logger.SetLevel(level)
	}

	inputs := *opts
	if inputs.Version == "" {
		inputs.Version = actions.DefaultVersion
	}

	r := &runner{
		cfg:  cfg,
		opts: &inputs,
		deps: withDefaults(cfg, deps),
	}

	result, err := r.run(ctx)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Setup completed", "version", result.Version, "path", result.Path, "cache_hit", result.CacheHit)

	return result, nil
}

// withDefaults builds every collaborator the caller did not provide.
func withDefaults(cfg *config.Config, deps Dependencies) Dependencies {
	if deps.Host == nil {
		deps.Host = actions.NewHost()
	}

	if deps.Cache == nil {
		deps.Cache = toolcache.NewGate(cfg.ToolCache)
	}

	if deps.NewRepository == nil {
		deps.NewRepository = func(ctx context.Context, token string) (releases.Repository, error) {
			return releases.NewGitHubRepository(ctx, token,
				releases.WithBaseURL(cfg.APIURL),
				releases.WithRepository(cfg.Owner, cfg.Repo),
				releases.WithCallTimeout(cfg.Timeout),
			)
		}
	}

	if deps.Installer == nil {
		deps.Installer = installer.New(cfg.TempDir, installer.WithRetry(
			cfg.Download.MaxTries,
			cfg.Download.InitialInterval,
			cfg.Download.MaxInterval,
			cfg.Download.MaxElapsed,
		))
	}

	if deps.WarmUp == nil {
		deps.WarmUp = runHelp
	}

	return deps
}

// run executes the stages in order; the first failure stops the run.
func (r *runner) run(ctx context.Context) (*Result, error) {
	if err := r.deps.Host.ExportVariable(CapsuleLogVariable, capsuleLogValue); err != nil {
		return nil, fmt.Errorf("export %s: %w", CapsuleLogVariable, err)
	}

	// An exact version already in the cache needs no API call.
	if release.IsExplicitVersion(r.opts.Version) {
		result, err := r.fromCache(ctx, r.opts.Version)
		if err != nil || result != nil {
			if result != nil {
				result.FastPath = true
			}

			return result, err
		}
	}

	repo, err := r.deps.NewRepository(ctx, r.opts.Token)
	if err != nil {
		return nil, fmt.Errorf("could not authenticate to GitHub Releases API with provided token: %w", err)
	}

	resolved, err := resolver.New(repo).Resolve(ctx, r.opts.Version)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve Nextflow release matching %s: %w", r.opts.Version, err)
	}

	logger.Infof(ctx, "Input version '%s' resolved to Nextflow %s", r.opts.Version, displayName(&resolved))

	target, err := asset.Select(&resolved, r.opts.All)
	if err != nil {
		return nil, fmt.Errorf("could not parse the download URL: %w", err)
	}

	logger.Infof(ctx, "Preparing to download from %s", target.DownloadURL)

	result, err := r.fromCache(ctx, target.Version)
	if err != nil {
		return nil, err
	}

	if result == nil {
		if result, err = r.install(ctx, target); err != nil {
			return nil, err
		}
	}

	r.warmUp(ctx, result.Path)

	return result, nil
}

// fromCache exposes a cached version. A nil result means a miss.
func (r *runner) fromCache(ctx context.Context, toolVersion string) (*Result, error) {
	dir, ok, err := r.deps.Cache.Lookup(ctx, release.ToolName, toolVersion)
	if err != nil {
		return nil, fmt.Errorf("look up tool cache: %w", err)
	}

	if !ok {
		logger.DebugKV(ctx, "Cache miss", "version", toolVersion)
		return nil, nil //nolint:nilnil // A miss is not an error.
	}

	if err = r.deps.Host.AddPath(dir); err != nil {
		return nil, fmt.Errorf("add %s to PATH: %w", dir, err)
	}

	logger.Infof(ctx, "Found Nextflow %s in the tool cache at %s", release.NormalizeVersion(toolVersion), dir)

	return &Result{
		Version:  release.NormalizeVersion(toolVersion),
		Path:     dir,
		CacheHit: true,
	}, nil
}

// install downloads the asset, caches it and exposes it.
func (r *runner) install(ctx context.Context, target release.ResolvedInstall) (*Result, error) {
	installDir, err := r.deps.Installer.Install(ctx, target.DownloadURL, target.Version)
	if err != nil {
		return nil, fmt.Errorf("install nextflow %s: %w", target.Version, err)
	}

	defer func() {
		if removeErr := os.RemoveAll(installDir); removeErr != nil {
			logger.WarnKV(ctx, "Could not remove temporary install directory", "path", installDir, "error", removeErr)
		}
	}()

	cached, err := r.deps.Cache.Store(ctx, installDir, release.ToolName, target.Version)
	if err != nil {
		return nil, fmt.Errorf("cache nextflow %s: %w", target.Version, err)
	}

	if err = r.deps.Host.AddPath(cached); err != nil {
		return nil, fmt.Errorf("add %s to PATH: %w", cached, err)
	}

	logger.Infof(ctx, "Downloaded `nextflow` to %s and added to PATH", cached)

	return &Result{Version: target.Version, Path: cached}, nil
}

// warmUp lets Nextflow fetch its runtime dependencies. Failures only warn.
func (r *runner) warmUp(ctx context.Context, dir string) {
	if r.cfg.WarmUp.Disabled {
		logger.Debug(ctx, "Warm-up disabled")
		return
	}

	warmCtx, cancel := context.WithTimeout(ctx, r.cfg.WarmUp.Timeout)
	defer cancel()

	if err := r.deps.WarmUp(warmCtx, filepath.Join(dir, release.ToolName)); err != nil {
		logger.WarnKV(ctx, warmUpWarning, "error", err)
	}
}

// runHelp runs `nextflow help` with the step output attached.
func runHelp(ctx context.Context, binary string) error {
	started := time.Now()

	cmd := exec.CommandContext(ctx, binary, "help")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s help: %w", binary, err)
	}

	logger.DebugKV(ctx, "Warm-up finished", "elapsed", time.Since(started).String())

	return nil
}

func displayName(rel *release.Release) string {
	if rel.Name != "" {
		return rel.Name
	}

	return rel.Tag
}
