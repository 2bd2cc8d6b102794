package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// PR-related constants.
const (
	perPageLimit   = 100 // GitHub API per_page limit
	prFilesTTL     = 5 * time.Minute
	fileContentTTL = 15 * time.Minute
)

// PullRequest fetches a single pull request with its changed files.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, prNumber int) (*types.PullRequest, error) {
	slog.Info("Fetching PR details", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d", owner, repo, prNumber)
	resp, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("pull request %s/%s#%d: %w", owner, repo, prNumber, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get PR (status %d)", resp.StatusCode)
	}

	var prData struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		State     string `json:"state"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		Number int  `json:"number"`
		Draft  bool `json:"draft"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&prData); err != nil {
		return nil, fmt.Errorf("failed to decode pull request: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, prData.CreatedAt)
	if err != nil {
		slog.Warn("Failed to parse created_at time", "error", err)
		createdAt = time.Now()
	}
	updatedAt, err := time.Parse(time.RFC3339, prData.UpdatedAt)
	if err != nil {
		slog.Warn("Failed to parse updated_at time", "error", err)
		updatedAt = time.Now()
	}

	var labels []string
	for _, label := range prData.Labels {
		labels = append(labels, label.Name)
	}

	pr := &types.PullRequest{
		Number:      prData.Number,
		Title:       prData.Title,
		Description: prData.Body,
		State:       prData.State,
		Draft:       prData.Draft,
		Author:      prData.User.Login,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Repository:  repo,
		Owner:       owner,
		BaseRef:     prData.Base.Ref,
		HeadRef:     prData.Head.Ref,
		HeadSHA:     prData.Head.SHA,
		Labels:      labels,
	}

	changedFiles, err := c.ChangedFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}
	pr.ChangedFiles = changedFiles

	return pr, nil
}

// ChangedFiles fetches the list of changed files in a PR, following pagination.
func (c *Client) ChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]types.ChangedFile, error) {
	cacheKey := fmt.Sprintf("pr-files:%s/%s:%d", owner, repo, prNumber)
	if cached, found := c.cache.Get(cacheKey); found {
		if files, ok := cached.([]types.ChangedFile); ok {
			slog.Debug("Changed files cache hit", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
			return files, nil
		}
	}

	slog.Info("Fetching changed files for PR", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)

	var changedFiles []types.ChangedFile
	page := 1
	for {
		apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			owner, repo, prNumber, perPageLimit, page)

		// Extract API call to avoid defer in loop
		files, lastPage, err := func() ([]types.ChangedFile, bool, error) {
			resp, err := c.doRequest(ctx, "GET", apiURL, nil)
			if err != nil {
				return nil, false, err
			}
			defer drainAndCloseBody(resp.Body)

			if resp.StatusCode != http.StatusOK {
				return nil, false, fmt.Errorf("failed to list PR files (status %d)", resp.StatusCode)
			}

			var raw []struct {
				Filename  string `json:"filename"`
				Status    string `json:"status"`
				Patch     string `json:"patch"`
				Additions int    `json:"additions"`
				Deletions int    `json:"deletions"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, false, fmt.Errorf("failed to decode PR files: %w", err)
			}

			out := make([]types.ChangedFile, 0, len(raw))
			for _, f := range raw {
				out = append(out, types.ChangedFile{
					Filename:  f.Filename,
					Status:    f.Status,
					Patch:     f.Patch,
					Additions: f.Additions,
					Deletions: f.Deletions,
				})
			}
			return out, len(raw) < perPageLimit, nil
		}()
		if err != nil {
			return nil, err
		}

		changedFiles = append(changedFiles, files...)
		if lastPage {
			break
		}
		page++
	}

	c.cache.SetWithTTL(cacheKey, changedFiles, prFilesTTL)
	return changedFiles, nil
}

// FileContent fetches the contents of a file at a specific ref via the
// contents API. Directories, symlinks, and missing paths map to ErrNotFound.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	cacheKey := fmt.Sprintf("blob:%s/%s:%s@%s", owner, repo, path, ref)
	if cached, found := c.cache.Get(cacheKey); found {
		if content, ok := cached.(string); ok {
			return content, nil
		}
	}

	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s?ref=%s", owner, repo, path, ref)
	resp, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return "", err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("file %s@%s: %w", path, ref, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get file content (status %d)", resp.StatusCode)
	}

	var contentData struct {
		Type     string `json:"type"`
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contentData); err != nil {
		// The contents API returns an array for directories.
		return "", fmt.Errorf("file %s@%s is not a regular file: %w", path, ref, ErrNotFound)
	}

	if contentData.Type != "file" {
		return "", fmt.Errorf("file %s@%s has type %q: %w", path, ref, contentData.Type, ErrNotFound)
	}
	if contentData.Encoding != "base64" {
		return "", fmt.Errorf("unexpected content encoding %q for %s", contentData.Encoding, path)
	}

	// The API wraps base64 payloads with newlines.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contentData.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("failed to decode file content for %s: %w", path, err)
	}

	content := string(decoded)
	c.cache.SetWithTTL(cacheKey, content, fileContentTTL)
	return content, nil
}

// Commits fetches the commits on a pull request.
func (c *Client) Commits(ctx context.Context, owner, repo string, prNumber int) ([]types.Commit, error) {
	slog.Info("Fetching PR commits", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d/commits?per_page=%d", owner, repo, prNumber, perPageLimit)
	resp, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list PR commits (status %d)", resp.StatusCode)
	}

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode PR commits: %w", err)
	}

	commits := make([]types.Commit, 0, len(raw))
	for _, cm := range raw {
		date, err := time.Parse(time.RFC3339, cm.Commit.Author.Date)
		if err != nil {
			date = time.Time{}
		}
		commits = append(commits, types.Commit{
			SHA:     cm.SHA,
			Message: cm.Commit.Message,
			Author:  cm.Commit.Author.Name,
			Date:    date,
		})
	}
	return commits, nil
}

// Comments fetches issue comments on a pull request.
func (c *Client) Comments(ctx context.Context, owner, repo string, prNumber int) ([]types.Comment, error) {
	slog.Info("Fetching PR comments", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%d/comments?per_page=%d", owner, repo, prNumber, perPageLimit)
	resp, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list PR comments (status %d)", resp.StatusCode)
	}

	var raw []struct {
		User struct {
			Login string `json:"login"`
		} `json:"user"`
		Body      string `json:"body"`
		CreatedAt string `json:"created_at"`
		ID        int64  `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode PR comments: %w", err)
	}

	comments := make([]types.Comment, 0, len(raw))
	for _, cm := range raw {
		createdAt, err := time.Parse(time.RFC3339, cm.CreatedAt)
		if err != nil {
			createdAt = time.Time{}
		}
		comments = append(comments, types.Comment{
			ID:        cm.ID,
			User:      cm.User.Login,
			Body:      cm.Body,
			CreatedAt: createdAt,
		})
	}
	return comments, nil
}

// FilePatch returns the patch for a specific file in a PR.
func (c *Client) FilePatch(ctx context.Context, owner, repo string, prNumber int, filename string) (string, error) {
	files, err := c.ChangedFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return "", err
	}

	for _, f := range files {
		if f.Filename == filename {
			return f.Patch, nil
		}
	}

	return "", fmt.Errorf("file %s not found in PR %d: %w", filename, prNumber, ErrNotFound)
}
