package github

import (
	"context"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// API defines the GitHub operations the review pipeline depends on.
// The concrete Client implements it; tests substitute fakes.
type API interface {
	// Authentication and configuration
	IsUserAccount(account string) bool
	Token(ctx context.Context) (string, error)

	// Pull request operations
	PullRequest(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error)
	ChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]types.ChangedFile, error)
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	Commits(ctx context.Context, owner, repo string, prNumber int) ([]types.Commit, error)
	Comments(ctx context.Context, owner, repo string, prNumber int) ([]types.Comment, error)
	FilePatch(ctx context.Context, owner, repo string, prNumber int, filename string) (string, error)
	CreateReview(ctx context.Context, owner, repo string, prNumber int, event, body string) error

	// Org-wide discovery
	OpenPullRequestsForOrg(ctx context.Context, org string) ([]PRRef, error)

	// App installation operations
	ListAppInstallations(ctx context.Context) ([]string, error)
}

var _ API = (*Client)(nil)
