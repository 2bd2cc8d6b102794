package github

import (
	"context"
	"net/http"
	"testing"
)

func TestOpenPullRequestsForOrg(t *testing.T) {
	searchJSON := `{
		"total_count": 2,
		"items": [
			{
				"number": 7,
				"updated_at": "2024-03-01T12:00:00Z",
				"repository_url": "https://api.github.com/repos/acme/widgets"
			},
			{
				"number": 12,
				"updated_at": "2024-03-02T09:30:00Z",
				"repository_url": "https://api.github.com/repos/acme/gadgets"
			}
		]
	}`
	client, transport := newStubClient(map[string]stubResponse{
		"GET /search/issues": {status: http.StatusOK, body: searchJSON},
	})

	refs, err := client.OpenPullRequestsForOrg(context.Background(), "acme")
	if err != nil {
		t.Fatalf("OpenPullRequestsForOrg: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Owner != "acme" || refs[0].Repo != "widgets" || refs[0].Number != 7 {
		t.Errorf("unexpected first ref: %+v", refs[0])
	}
	if refs[1].Repo != "gadgets" || refs[1].Number != 12 {
		t.Errorf("unexpected second ref: %+v", refs[1])
	}
	if len(transport.requests) != 1 {
		t.Errorf("expected a single search request, got %d", len(transport.requests))
	}
}

func TestOpenPullRequestsForOrg_SkipsBadRepositoryURL(t *testing.T) {
	searchJSON := `{
		"total_count": 2,
		"items": [
			{"number": 1, "updated_at": "2024-03-01T12:00:00Z", "repository_url": "not-a-url"},
			{"number": 2, "updated_at": "2024-03-01T12:00:00Z", "repository_url": "https://api.github.com/repos/acme/ok"}
		]
	}`
	client, _ := newStubClient(map[string]stubResponse{
		"GET /search/issues": {status: http.StatusOK, body: searchJSON},
	})

	refs, err := client.OpenPullRequestsForOrg(context.Background(), "acme")
	if err != nil {
		t.Fatalf("OpenPullRequestsForOrg: %v", err)
	}
	if len(refs) != 1 || refs[0].Number != 2 {
		t.Fatalf("expected only the parseable ref, got %+v", refs)
	}
}

func TestOpenPullRequestsForOrg_RateLimited(t *testing.T) {
	client, _ := newStubClient(map[string]stubResponse{
		"GET /search/issues": {status: http.StatusForbidden, body: `{"message":"rate limit"}`},
	})

	if _, err := client.OpenPullRequestsForOrg(context.Background(), "acme"); err == nil {
		t.Fatal("expected rate limit error")
	}
}

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"valid", "https://api.github.com/repos/acme/widgets", "acme", "widgets", true},
		{"no repos segment", "https://api.github.com/orgs/acme", "", "", false},
		{"missing repo", "https://api.github.com/repos/acme", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := parseRepositoryURL(tt.url)
			if ok != tt.ok || owner != tt.owner || repo != tt.repo {
				t.Errorf("parseRepositoryURL(%q) = %q, %q, %v; want %q, %q, %v",
					tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
			}
		})
	}
}
