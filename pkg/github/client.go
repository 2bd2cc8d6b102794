// Package github provides GitHub API client functionality.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/cache"

	"github.com/codeGROOVE-dev/retry"
)

// ErrNotFound is returned when a requested GitHub resource does not exist
// or is not a regular file (directories and symlinks from the contents API).
var ErrNotFound = errors.New("github resource not found")

// Client handles all GitHub API interactions.
type Client struct {
	tokenExpiry        time.Time
	installationTokens map[string]string
	cache              *cache.Cache
	httpClient         *http.Client
	installationExpiry map[string]time.Time
	installationIDs    map[string]int
	installationTypes  map[string]string
	appID              string
	token              string
	privateKeyPath     string
	privateKeyContent  []byte
	tokenMutex         sync.RWMutex
	isAppAuth          bool
}

// Config holds configuration for creating a new GitHub client.
type Config struct {
	AppID       string
	AppKeyPath  string
	Token       string // Personal access token (for non-app auth)
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
	UseAppAuth  bool
}

// New creates a new GitHub API client using gh auth token or GitHub App authentication.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.UseAppAuth {
		return newAppAuthClient(ctx, cfg.AppID, cfg.AppKeyPath, cfg.HTTPTimeout, cfg.CacheTTL)
	}
	return newPersonalTokenClient(ctx, cfg.Token, cfg.HTTPTimeout, cfg.CacheTTL)
}

type orgContextKey struct{}

// WithOrg returns a context that carries the organization whose installation
// token should authenticate requests made with it. The org is scoped to the
// request so concurrent reviews for different orgs never pick up each
// other's tokens.
func WithOrg(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, orgContextKey{}, org)
}

func orgFromContext(ctx context.Context) string {
	org, _ := ctx.Value(orgContextKey{}).(string)
	return org
}

// IsUserAccount checks if the given account is a user account (not an organization).
func (c *Client) IsUserAccount(account string) bool {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.installationTypes[account] == "User"
}

// Token returns the current GitHub token for external use (e.g., sprinkler).
// For App authentication with an org in the context (WithOrg), returns that
// org's installation token. Otherwise returns the base token (JWT or
// personal access token).
func (c *Client) Token(ctx context.Context) (string, error) {
	if org := orgFromContext(ctx); c.isAppAuth && org != "" {
		return c.getInstallationToken(ctx, org)
	}
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.token, nil
}

// drainAndCloseBody drains and closes an HTTP response body to prevent resource leaks.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}

// sanitizeURLForLogging removes sensitive query parameters from URLs.
// Since GitHub API uses Authorization header (not query params) for tokens,
// query params are safe to log as-is.
func sanitizeURLForLogging(apiURL string) string {
	return apiURL
}

// doRequest makes an HTTP request to the GitHub API with retry logic.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body any) (*http.Response, error) {
	// Refresh JWT if needed
	if c.isAppAuth {
		if err := c.refreshJWTIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to refresh JWT: %w", err)
		}
	}

	sanitizedURL := sanitizeURLForLogging(apiURL)
	slog.Debug("HTTP request", "component", "http", "method", method, "url", sanitizedURL)

	var resp *http.Response
	err := retryWithBackoff(ctx, fmt.Sprintf("%s %s", method, apiURL), func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyBytes, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		// Use the appropriate token based on authentication type and the org in scope
		authToken := c.authTokenLocked()
		if org := orgFromContext(ctx); c.isAppAuth && org != "" {
			installToken, err := c.getInstallationToken(ctx, org)
			if err == nil {
				authToken = installToken
			} else {
				// Graceful degradation: try with JWT token
				slog.Warn("Failed to get installation token, attempting with JWT (may have limited access)", "org", org, "error", err)
			}
		}

		if c.isAppAuth {
			req.Header.Set("Authorization", "Bearer "+authToken)
		} else {
			req.Header.Set("Authorization", "token "+authToken)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if method == "PATCH" || method == "POST" || method == "PUT" {
			req.Header.Set("Content-Type", "application/json")
		}

		var localResp *http.Response
		localResp, err = c.httpClient.Do(req) //nolint:bodyclose // body is closed via defer or passed to caller
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		// Check for rate limiting or server errors that should trigger retry
		if localResp.StatusCode == http.StatusTooManyRequests {
			drainAndCloseBody(localResp.Body)
			slog.Warn("Rate limited - will retry with backoff", "method", method, "url", sanitizedURL, "status", 429)
			return fmt.Errorf("http %d: rate limited", localResp.StatusCode)
		}

		if localResp.StatusCode >= http.StatusInternalServerError && localResp.StatusCode < 600 {
			drainAndCloseBody(localResp.Body)
			slog.Warn("Server error - will retry with backoff", "method", method, "url", sanitizedURL, "status", localResp.StatusCode)
			return fmt.Errorf("http %d: server error", localResp.StatusCode)
		}

		// Success - assign to outer resp variable and let caller handle body
		resp = localResp
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("HTTP response", "component", "http", "method", method, "url", sanitizedURL, "status", resp.StatusCode)
	return resp, nil
}

func (c *Client) authTokenLocked() string {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.token
}

// Retry constants.
const (
	maxRetryAttempts  = 25              // Maximum retry attempts for API calls
	initialRetryDelay = 1 * time.Second // Initial delay for retry attempts
	maxRetryDelay     = 2 * time.Minute // Maximum delay cap
)

// retryWithBackoff executes a function with exponential backoff using the codeGROOVE retry library.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		func() error {
			return fn()
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetryAttempts)),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(initialRetryDelay/4),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "retry", "operation", operation, "attempt", n+1, "max_attempts", maxRetryAttempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Retry on temporary errors, rate limits, and server errors
			if err == nil {
				return false
			}
			errStr := err.Error()
			return strings.Contains(errStr, "rate limited") ||
				strings.Contains(errStr, "server error") ||
				strings.Contains(errStr, "connection refused") ||
				strings.Contains(errStr, "timeout") ||
				strings.Contains(errStr, "temporary failure") ||
				strings.Contains(errStr, "EOF")
		}),
	)
}
