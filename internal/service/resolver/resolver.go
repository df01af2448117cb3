package resolver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/logger"
	"github.com/mashehu/setup-nextflow/internal/repository/releases"
)

// Resolver picks the release a specifier refers to.
type Resolver struct {
	repo releases.Repository
}

// New creates a resolver over repo.
func New(repo releases.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the single release selected by raw.
func (r *Resolver) Resolve(ctx context.Context, raw string) (release.Release, error) {
	spec, err := ParseSpecifier(raw)
	if err != nil {
		return release.Release{}, err
	}

	return r.ResolveSpecifier(ctx, spec)
}

// ResolveSpecifier is Resolve for an already parsed specifier.
func (r *Resolver) ResolveSpecifier(ctx context.Context, spec Specifier) (release.Release, error) {
	logger.DebugKV(ctx, "Resolving version", "specifier", spec.Raw, "strategy", spec.Strategy.String())

	// The API answers the stable query itself.
	if spec.Strategy == StrategyDirectStable {
		latest, err := r.repo.Latest(ctx)
		if err != nil {
			return release.Release{}, err
		}

		return latest, nil
	}

	all, err := r.repo.ListAll(ctx)
	if err != nil {
		return release.Release{}, err
	}

	matches := make([]release.Release, 0, len(all))

	for i := range all {
		if spec.Matches(&all[i]) {
			matches = append(matches, all[i])
		}
	}

	if len(matches) == 0 {
		return release.Release{}, fmt.Errorf("%w: %q matched none of %d releases",
			release.ErrNoMatchingRelease, spec.Raw, len(all))
	}

	SortDescending(matches)

	logger.DebugKV(ctx, "Resolved version", "specifier", spec.Raw, "tag", matches[0].Tag, "candidates", len(matches))

	return *matches[0].Clone(), nil
}

// SortDescending orders releases by descending version precedence.
// Tags that do not parse go last, ordered by tag text; the sort is stable.
func SortDescending(list []release.Release) {
	slices.SortStableFunc(list, func(a, b release.Release) int {
		va, okA := parseTag(a.Tag)
		vb, okB := parseTag(b.Tag)

		switch {
		case okA && okB:
			return vb.Compare(va)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(b.Tag, a.Tag)
		}
	})
}
