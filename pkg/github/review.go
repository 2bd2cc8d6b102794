package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Review events accepted by the pull request reviews API.
const (
	EventApprove        = "APPROVE"
	EventRequestChanges = "REQUEST_CHANGES"
	EventComment        = "COMMENT"
)

// CreateReview posts a review on a pull request with the given event
// (APPROVE, REQUEST_CHANGES, or COMMENT) and body text.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, prNumber int, event, body string) error {
	switch event {
	case EventApprove, EventRequestChanges, EventComment:
	default:
		return fmt.Errorf("invalid review event %q", event)
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d/reviews", owner, repo, prNumber)
	payload := map[string]any{
		"event": event,
		"body":  body,
	}

	resp, err := c.doRequest(ctx, "POST", url, payload) //nolint:bodyclose // body is closed via defer drainAndCloseBody
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("failed to create review: status %d (could not read body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("failed to create review: status %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Info("Posted review on PR", "owner", owner, "repo", repo, "pr", prNumber, "event", event)
	return nil
}
