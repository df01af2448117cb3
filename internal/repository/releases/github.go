package releases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/mashehu/setup-nextflow/internal/domain/release"
	"github.com/mashehu/setup-nextflow/internal/version"
)

// Repository lists the releases of one GitHub repository.
type Repository interface {
	ListAll(ctx context.Context) ([]release.Release, error)
	Latest(ctx context.Context) (release.Release, error)
}

// pageSize is the maximum page size the releases endpoint accepts.
const pageSize = 100

// GitHubRepository implements Repository over the GitHub REST API.
type GitHubRepository struct {
	// api is the go-github client carrying the token transport.
	api *github.Client
	// owner and repo identify the releases repository.
	owner, repo string
	// callTimeout bounds each API request, including every page of a listing.
	callTimeout time.Duration
	// baseURL overrides the API endpoint (GitHub Enterprise, tests).
	baseURL string
	// httpClient is the transport wrapped by the token source.
	httpClient *http.Client
}

// Option configures the repository.
type Option func(*GitHubRepository)

// WithRepository sets the owner and repository name.
func WithRepository(owner, repo string) Option {
	return func(r *GitHubRepository) {
		if owner != "" {
			r.owner = owner
		}

		if repo != "" {
			r.repo = repo
		}
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) Option {
	return func(r *GitHubRepository) {
		r.baseURL = baseURL
	}
}

// WithCallTimeout sets a timeout for each API call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(r *GitHubRepository) {
		if timeout > 0 {
			r.callTimeout = timeout
		}
	}
}

// WithHTTPClient sets the base HTTP client used under the token transport.
func WithHTTPClient(client *http.Client) Option {
	return func(r *GitHubRepository) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewGitHubRepository authenticates a client with token.
// An empty token fails with release.ErrAuthentication before any request is made.
func NewGitHubRepository(ctx context.Context, token string, opts ...Option) (*GitHubRepository, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token must be provided", release.ErrAuthentication)
	}

	r := &GitHubRepository{
		owner:      "nextflow-io",
		repo:       release.ToolName,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(r)
	}

	// The oauth2 transport wraps whatever client travels in the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	r.api = github.NewClient(oauth2.NewClient(ctx, tokenSource))
	r.api.UserAgent = version.UserAgent()

	if r.baseURL != "" {
		baseURL, err := parseBaseURL(r.baseURL)
		if err != nil {
			return nil, err
		}

		r.api.BaseURL = baseURL
	}

	return r, nil
}

// ListAll returns every release in the order the API lists them.
func (r *GitHubRepository) ListAll(ctx context.Context) ([]release.Release, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	var (
		result  []release.Release
		options = &github.ListOptions{PerPage: pageSize}
	)

	for {
		page, resp, err := r.api.Repositories.ListReleases(callCtx, r.owner, r.repo, options)
		if err != nil {
			return nil, wrapUpstream("list releases", err)
		}

		for _, item := range page {
			result = append(result, fromGitHub(item))
		}

		if resp == nil || resp.NextPage == 0 {
			return result, nil
		}

		options.Page = resp.NextPage
	}
}

// Latest returns the release GitHub marks as latest (never a pre-release).
func (r *GitHubRepository) Latest(ctx context.Context) (release.Release, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	item, _, err := r.api.Repositories.GetLatestRelease(callCtx, r.owner, r.repo)
	if err != nil {
		return release.Release{}, wrapUpstream("get latest release", err)
	}

	return fromGitHub(item), nil
}

// callContext returns a context with the call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (r *GitHubRepository) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.callTimeout)
}

// fromGitHub converts the API payload into the domain Release.
func fromGitHub(item *github.RepositoryRelease) release.Release {
	assets := make([]release.Asset, 0, len(item.Assets))
	for _, asset := range item.Assets {
		assets = append(assets, release.Asset{
			Name:        asset.GetName(),
			DownloadURL: asset.GetBrowserDownloadURL(),
		})
	}

	return release.Release{
		Tag:    item.GetTagName(),
		Name:   item.GetName(),
		Assets: assets,
	}
}

// wrapUpstream tags API errors; a 401 is also an authentication failure.
func wrapUpstream(op string, err error) error {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %w: %w", op, release.ErrUpstreamUnavailable, release.ErrAuthentication, err)
	}

	return fmt.Errorf("%s: %w: %w", op, release.ErrUpstreamUnavailable, err)
}

// parseBaseURL ensures the trailing slash go-github requires.
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	return parsed, nil
}
