package resolver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
)

// Strategy selects how a specifier is matched against releases.
type Strategy int

const (
	// StrategyRange matches tags satisfying a semantic version range.
	StrategyRange Strategy = iota
	// StrategyAllReleases matches every release, edge included.
	StrategyAllReleases
	// StrategyEdgeOnly matches releases whose tag ends with "-edge".
	StrategyEdgeOnly
	// StrategyDirectStable asks the API for the latest stable release.
	StrategyDirectStable
)

// Recognized aliases.
const (
	AliasLatest           = "latest"
	AliasLatestStable     = "latest-stable"
	AliasLatestEdge       = "latest-edge"
	AliasLatestEverything = "latest-everything"
)

// String returns a short name used in log fields.
func (s Strategy) String() string {
	switch s {
	case StrategyRange:
		return "range"
	case StrategyAllReleases:
		return "all-releases"
	case StrategyEdgeOnly:
		return "edge-only"
	case StrategyDirectStable:
		return "direct-stable"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Specifier is a parsed version request.
type Specifier struct {
	// Raw is the value as supplied, trimmed.
	Raw string
	// Strategy is the matching mode.
	Strategy Strategy
	// Constraint is set only for StrategyRange.
	Constraint *semver.Constraints
}

// ParseSpecifier classifies raw into exactly one strategy.
// Anything that is not a known alias must be a valid range.
func ParseSpecifier(raw string) (Specifier, error) {
	raw = strings.TrimSpace(raw)

	switch raw {
	case AliasLatest, AliasLatestStable:
		return Specifier{Raw: raw, Strategy: StrategyDirectStable}, nil
	case AliasLatestEverything:
		return Specifier{Raw: raw, Strategy: StrategyAllReleases}, nil
	case AliasLatestEdge:
		return Specifier{Raw: raw, Strategy: StrategyEdgeOnly}, nil
	}

	constraint, err := semver.NewConstraint(raw)
	if err != nil {
		return Specifier{}, fmt.Errorf("%w: %w: %q: %w",
			release.ErrNoMatchingRelease, release.ErrInvalidSpecifier, raw, err)
	}

	return Specifier{Raw: raw, Strategy: StrategyRange, Constraint: constraint}, nil
}

// Matches reports whether rel is selected by the specifier.
// Direct-stable specifiers never scan a list, so they match nothing here.
func (s Specifier) Matches(rel *release.Release) bool {
	switch s.Strategy {
	case StrategyAllReleases:
		return true
	case StrategyEdgeOnly:
		return rel.IsEdge()
	case StrategyRange:
		parsed, ok := parseTag(rel.Tag)
		if !ok || s.Constraint == nil {
			return false
		}

		return s.Constraint.Check(parsed)
	default:
		return false
	}
}

// parseTag parses a tag loosely: a leading "v" or "=" is tolerated.
func parseTag(tag string) (*semver.Version, bool) {
	parsed, err := semver.NewVersion(strings.TrimLeft(strings.TrimSpace(tag), "=v"))
	if err != nil {
		return nil, false
	}

	return parsed, true
}
