package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/vfdiscovery/pkg/integrations"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
)

const (
	// DefaultOwner and DefaultRepo locate the vf-core monorepo.
	DefaultOwner = "visual-framework"
	DefaultRepo  = "vf-core"

	// FallbackRef is used when no release can be resolved.
	FallbackRef = "develop"

	apiBaseURL = "https://api.github.com"
	rawBaseURL = "https://raw.githubusercontent.com"
)

// Client provides access to the GitHub releases API.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty string for token to use unauthenticated requests (lower rate limits).
func NewClient(token string, hooks observability.HTTPHooks) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(headers, hooks),
		baseURL: apiBaseURL,
	}
}

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise instance or a test server.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// LatestReleaseTag returns the tag name of the latest release of owner/repo.
//
// Any non-OK answer from the API (no release published, rate limited, an
// empty tag) resolves to [FallbackRef]. Failures where no response was
// received are returned to the caller.
func (c *Client) LatestReleaseTag(ctx context.Context, owner, repo string) (string, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return "", err
	}

	rel, err := c.fetchRelease(ctx, owner, repo)
	switch {
	case err == nil && rel.TagName != "":
		return rel.TagName, nil
	case err == nil, integrations.IsStatus(err):
		return FallbackRef, nil
	default:
		return "", err
	}
}

func (c *Client) fetchRelease(ctx context.Context, owner, repo string) (*Release, error) {
	var data Release
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RawBaseURL returns the raw-content root of owner/repo, to which
// "/<ref>/<path>" is appended.
func RawBaseURL(owner, repo string) string {
	return fmt.Sprintf("%s/%s/%s", rawBaseURL, owner, repo)
}

// RawContentURL returns the raw-content URL of path at ref.
func RawContentURL(base, ref, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + ref + "/" + strings.TrimPrefix(path, "/")
}
