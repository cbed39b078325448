// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/model"
)

const (
	// MaxPerPage is the largest page size the search endpoint accepts.
	MaxPerPage = 100
	// MaxSearchResults is how deep GitHub lets a search be paged.
	MaxSearchResults = 1000

	DefaultTimeout   = 15 * time.Second
	defaultUserAgent = "github-repo-search"
)

// Config is fixed at construction; the client never mutates it afterwards.
type Config struct {
	Token     string
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh      *github.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates and configures a new Client instance.
// When a token is set, requests are authenticated through an oauth2 transport.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient := &http.Client{Transport: base, Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient.Transport = &oauth2.Transport{Source: ts, Base: base}
		logger.Info("GitHub token configured, authenticated rate limits apply")
	} else {
		logger.Warn("No GitHub token configured, unauthenticated rate limits apply")
	}

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing github base url: %w", err)
		}
		gh.BaseURL = u
	}
	gh.UserAgent = defaultUserAgent
	if cfg.UserAgent != "" {
		gh.UserAgent = cfg.UserAgent
	}

	return &Client{
		gh:      gh,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// SearchRepositories runs one repository search ordered by stars and translates the result to our internal model.
// perPage is clamped to [1, MaxPerPage] and the reported total to MaxSearchResults.
// Failures are returned as the typed errors from internal/errors; nothing is retried.
func (c *Client) SearchRepositories(ctx context.Context, keyword string, page, perPage int) (*model.SearchPage, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, custom_errors.InvalidInput("keyword", "must not be empty")
	}
	if page < 1 {
		return nil, custom_errors.InvalidInput("page", "must be at least 1")
	}
	perPage = ClampPerPage(perPage)
	if (page-1)*perPage >= MaxSearchResults {
		return nil, custom_errors.InvalidInput("page", fmt.Sprintf("must stay within the first %d search results", MaxSearchResults))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger := c.logger.With("keyword", keyword, "page", page, "per_page", perPage)
	logger.Info("Searching GitHub repositories")

	opts := &github.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}
	result, resp, err := c.gh.Search.Repositories(ctx, keyword, opts)
	if err != nil {
		mapped := c.translateError(keyword, resp, err)
		logger.Error("GitHub search failed", "error", mapped)
		return nil, mapped
	}

	items := make([]model.RemoteRepository, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		items = append(items, toRemoteRepository(r))
	}

	searchPage := &model.SearchPage{
		Items:      items,
		TotalCount: min(result.GetTotal(), MaxSearchResults),
		Page:       page,
		PerPage:    perPage,
		RateLimit: model.RateLimit{
			Limit:     resp.Rate.Limit,
			Remaining: resp.Rate.Remaining,
			ResetAt:   resp.Rate.Reset.Time,
		},
	}
	logger.Info("GitHub search completed",
		"items", len(items),
		"total_count", result.GetTotal(),
		"rate_limit_remaining", searchPage.RateLimit.Remaining,
	)
	return searchPage, nil
}

// ClampPerPage bounds a requested page size to what the search endpoint accepts.
func ClampPerPage(perPage int) int {
	if perPage < 1 {
		return 1
	}
	return min(perPage, MaxPerPage)
}

// translateError maps go-github and transport failures onto the closed error taxonomy.
// A caller-cancelled context is returned as is.
func (c *Client) translateError(keyword string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &custom_errors.ErrRateLimited{ResetAt: rateErr.Rate.Reset.Time, Limit: rateErr.Rate.Limit}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now()
		if abuseErr.RetryAfter != nil {
			resetAt = resetAt.Add(*abuseErr.RetryAfter)
		}
		return &custom_errors.ErrRateLimited{ResetAt: resetAt}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &custom_errors.ErrTimeout{After: c.timeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &custom_errors.ErrTimeout{After: c.timeout, Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if quotaExhausted(respErr.Response.StatusCode, resp) {
			return &custom_errors.ErrRateLimited{ResetAt: resp.Rate.Reset.Time, Limit: resp.Rate.Limit}
		}
		if respErr.Response.StatusCode == http.StatusUnprocessableEntity {
			return &custom_errors.ErrInvalidQuery{Query: keyword, Message: respErr.Message}
		}
		return &custom_errors.ErrProvider{StatusCode: respErr.Response.StatusCode, Message: respErr.Message}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &custom_errors.ErrNetworkFailure{Err: err}
	}

	if resp != nil && resp.Response != nil {
		return &custom_errors.ErrProvider{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return &custom_errors.ErrNetworkFailure{Err: err}
}

// quotaExhausted reports a primary rate limit that go-github did not type, such as a 429 with no remaining quota.
func quotaExhausted(status int, resp *github.Response) bool {
	if status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return false
	}
	return resp != nil && resp.Rate.Remaining == 0 && !resp.Rate.Reset.Time.IsZero()
}

// toRemoteRepository translates a github.Repository object to our internal model.
func toRemoteRepository(r *github.Repository) model.RemoteRepository {
	owner := r.GetOwner()
	return model.RemoteRepository{
		GithubID:        r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		HTMLURL:         r.GetHTMLURL(),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		Language:        r.Language,
		Owner: model.Owner{
			Login:     owner.GetLogin(),
			AvatarURL: owner.GetAvatarURL(),
			HTMLURL:   owner.GetHTMLURL(),
		},
	}
}
