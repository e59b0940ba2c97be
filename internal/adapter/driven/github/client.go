// Package github resolves PR titles for GitHub review links using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRMetadataResolver = (*Client)(nil)

const defaultWebHost = "github.com"

// Client implements the driven.PRMetadataResolver port for github.com links.
type Client struct {
	gh      *gh.Client
	webHost string
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is set)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client, webHost: defaultWebHost}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and API base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, webHost: defaultWebHost}, nil
}

// ResolveTitle returns the title of the pull request a link points at. ok is
// false for links that are not github.com pull request URLs.
func (c *Client) ResolveTitle(ctx context.Context, link string) (string, bool, error) {
	owner, repo, number, ok := parsePullLink(link, c.webHost)
	if !ok {
		return "", false, nil
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", false, fmt.Errorf("get pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	logRateLimit(resp, owner+"/"+repo)

	return pr.GetTitle(), true, nil
}

// parsePullLink extracts owner, repository and number from
// https://<host>/<owner>/<repo>/pull/<number>[/...].
func parsePullLink(link, host string) (owner, repo string, number int, ok bool) {
	u, err := url.Parse(link)
	if err != nil || !strings.EqualFold(u.Host, host) {
		return "", "", 0, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" || parts[0] == "" || parts[1] == "" {
		return "", "", 0, false
	}

	number, err = strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return "", "", 0, false
	}

	return parts[0], parts[1], number, true
}

func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
