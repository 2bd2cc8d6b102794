package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// searchMaxPages caps search pagination; the search API returns at most
// 1000 results regardless.
const searchMaxPages = 10

// PRRef identifies a pull request discovered via the search API.
type PRRef struct {
	UpdatedAt time.Time
	Owner     string
	Repo      string
	Number    int
}

// OpenPullRequestsForOrg lists all open pull requests across every
// repository in an organization using the search API. It returns
// lightweight references; callers fetch full PR details as needed.
func (c *Client) OpenPullRequestsForOrg(ctx context.Context, org string) ([]PRRef, error) {
	slog.Info("Searching for open PRs in organization", "component", "api", "org", org)

	query := fmt.Sprintf("org:%s is:pr is:open archived:false", org)
	encodedQuery := url.QueryEscape(query)

	var refs []PRRef
	for page := 1; page <= searchMaxPages; page++ {
		apiURL := fmt.Sprintf("https://api.github.com/search/issues?q=%s&per_page=%d&page=%d", encodedQuery, perPageLimit, page)

		items, lastPage, err := func() ([]searchItem, bool, error) {
			resp, err := c.doRequest(ctx, "GET", apiURL, nil)
			if err != nil {
				return nil, false, err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					slog.Warn("Failed to close response body", "error", err)
				}
			}()

			if resp.StatusCode == http.StatusForbidden {
				return nil, false, fmt.Errorf("search API rate limit exceeded (status %d)", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, false, fmt.Errorf("search failed (status %d)", resp.StatusCode)
			}

			var result struct {
				Items []searchItem `json:"items"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				return nil, false, fmt.Errorf("failed to decode search result: %w", err)
			}
			return result.Items, len(result.Items) < perPageLimit, nil
		}()
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			owner, repo, ok := parseRepositoryURL(item.RepositoryURL)
			if !ok {
				slog.Warn("Skipping search result with unparseable repository URL",
					"component", "api", "url", item.RepositoryURL, "number", item.Number)
				continue
			}
			refs = append(refs, PRRef{
				Owner:     owner,
				Repo:      repo,
				Number:    item.Number,
				UpdatedAt: item.UpdatedAt,
			})
		}

		if lastPage {
			break
		}
	}

	slog.Info("Found open PRs in organization", "component", "api", "org", org, "count", len(refs))
	return refs, nil
}

type searchItem struct {
	UpdatedAt     time.Time `json:"updated_at"`
	RepositoryURL string    `json:"repository_url"`
	Number        int       `json:"number"`
}

// parseRepositoryURL extracts owner and repo from an API repository URL
// like https://api.github.com/repos/owner/repo.
func parseRepositoryURL(repoURL string) (owner, repo string, ok bool) {
	const marker = "/repos/"
	idx := strings.Index(repoURL, marker)
	if idx < 0 {
		return "", "", false
	}
	parts := strings.Split(repoURL[idx+len(marker):], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
