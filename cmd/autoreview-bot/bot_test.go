package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/github"
	"github.com/codeGROOVE-dev/autoreview/pkg/review"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// fakeGitHub implements github.API in memory for bot tests.
type fakeGitHub struct {
	orgs     []string
	refs     map[string][]github.PRRef
	contents map[string]string

	mu     sync.Mutex
	posted []string // "owner/repo#number:event"
}

func (*fakeGitHub) IsUserAccount(string) bool { return false }

func (*fakeGitHub) Token(context.Context) (string, error) { return "fake-token", nil }

func (f *fakeGitHub) PullRequest(_ context.Context, owner, repo string, number int) (*types.PullRequest, error) {
	var files []types.ChangedFile
	for name := range f.contents {
		files = append(files, types.ChangedFile{Filename: name, Status: "modified"})
	}
	return &types.PullRequest{
		Number:       number,
		Title:        "Test change",
		Author:       "octocat",
		Owner:        owner,
		Repository:   repo,
		HeadSHA:      "abc123",
		ChangedFiles: files,
	}, nil
}

func (f *fakeGitHub) ChangedFiles(context.Context, string, string, int) ([]types.ChangedFile, error) {
	return nil, nil
}

func (f *fakeGitHub) FileContent(_ context.Context, _, _, path, _ string) (string, error) {
	content, ok := f.contents[path]
	if !ok {
		return "", fmt.Errorf("file %s: %w", path, github.ErrNotFound)
	}
	return content, nil
}

func (*fakeGitHub) Commits(context.Context, string, string, int) ([]types.Commit, error) {
	return nil, nil
}

func (*fakeGitHub) Comments(context.Context, string, string, int) ([]types.Comment, error) {
	return nil, nil
}

func (*fakeGitHub) FilePatch(context.Context, string, string, int, string) (string, error) {
	return "", nil
}

func (f *fakeGitHub) CreateReview(_ context.Context, owner, repo string, prNumber int, event, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, fmt.Sprintf("%s/%s#%d:%s", owner, repo, prNumber, event))
	return nil
}

func (f *fakeGitHub) OpenPullRequestsForOrg(_ context.Context, org string) ([]github.PRRef, error) {
	return f.refs[org], nil
}

func (f *fakeGitHub) ListAppInstallations(context.Context) ([]string, error) {
	return f.orgs, nil
}

func newTestBot(gh *fakeGitHub, post bool) *Bot {
	return &Bot{
		client:      gh,
		analyzer:    review.New(review.Config{Fetcher: gh}),
		store:       review.NewMemoryStore(),
		reviewedAt:  make(map[string]time.Time),
		postReviews: post,
	}
}

func TestProcessAllOrgs_ReviewsOpenPRs(t *testing.T) {
	gh := &fakeGitHub{
		orgs: []string{"acme"},
		refs: map[string][]github.PRRef{
			"acme": {{Owner: "acme", Repo: "widgets", Number: 7, UpdatedAt: time.Now().Add(-10 * time.Minute)}},
		},
		contents: map[string]string{"main.go": "package main\n\nfunc main() {}\n"},
	}
	bot := newTestBot(gh, true)

	if err := bot.processAllOrgs(context.Background()); err != nil {
		t.Fatalf("processAllOrgs() unexpected error: %v", err)
	}

	reviews, err := bot.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("store list: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("stored %d reviews, want 1", len(reviews))
	}
	if reviews[0].Status != types.StatusCompleted {
		t.Errorf("review status = %q, want completed", reviews[0].Status)
	}
	if len(gh.posted) != 1 {
		t.Fatalf("posted %d reviews to GitHub, want 1", len(gh.posted))
	}

	// A second pass with no PR updates reviews nothing new.
	if err := bot.processAllOrgs(context.Background()); err != nil {
		t.Fatalf("processAllOrgs() second pass: %v", err)
	}
	if len(gh.posted) != 1 {
		t.Errorf("posted %d reviews after second pass, want still 1", len(gh.posted))
	}
}

func TestProcessAllOrgs_PostingDisabled(t *testing.T) {
	gh := &fakeGitHub{
		orgs: []string{"acme"},
		refs: map[string][]github.PRRef{
			"acme": {{Owner: "acme", Repo: "widgets", Number: 7, UpdatedAt: time.Now().Add(-10 * time.Minute)}},
		},
		contents: map[string]string{"main.go": "package main\n"},
	}
	bot := newTestBot(gh, false)

	if err := bot.processAllOrgs(context.Background()); err != nil {
		t.Fatalf("processAllOrgs() unexpected error: %v", err)
	}
	if len(gh.posted) != 0 {
		t.Errorf("posted %d reviews with posting disabled, want 0", len(gh.posted))
	}
}

func TestNeedsReview(t *testing.T) {
	bot := newTestBot(&fakeGitHub{}, false)
	old := time.Now().Add(-30 * time.Minute)

	tests := []struct {
		name string
		ref  github.PRRef
		prep func()
		want bool
	}{
		{
			name: "never reviewed",
			ref:  github.PRRef{Owner: "acme", Repo: "widgets", Number: 1, UpdatedAt: old},
			want: true,
		},
		{
			name: "updated too recently",
			ref:  github.PRRef{Owner: "acme", Repo: "widgets", Number: 2, UpdatedAt: time.Now()},
			want: false,
		},
		{
			name: "already reviewed at this update",
			ref:  github.PRRef{Owner: "acme", Repo: "widgets", Number: 3, UpdatedAt: old},
			prep: func() {
				bot.markReviewed(github.PRRef{Owner: "acme", Repo: "widgets", Number: 3, UpdatedAt: old})
			},
			want: false,
		},
		{
			name: "updated since last review",
			ref:  github.PRRef{Owner: "acme", Repo: "widgets", Number: 4, UpdatedAt: old.Add(5 * time.Minute)},
			prep: func() {
				bot.markReviewed(github.PRRef{Owner: "acme", Repo: "widgets", Number: 4, UpdatedAt: old})
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			if got := bot.needsReview(tt.ref); got != tt.want {
				t.Errorf("needsReview() = %v, want %v", got, tt.want)
			}
		})
	}
}
