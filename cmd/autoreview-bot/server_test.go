package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/review"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

type startCall struct {
	owner           string
	repo            string
	prNumber        int
	includeSecurity bool
}

// newTestServer wires an apiServer around a memory store and a start stub
// that records its arguments and stores a pending review.
func newTestServer(t *testing.T) (*apiServer, *review.MemoryStore, *[]startCall) {
	t.Helper()
	store := review.NewMemoryStore()
	var calls []startCall
	start := func(ctx context.Context, owner, repo string, prNumber int, includeSecurity bool) string {
		calls = append(calls, startCall{owner: owner, repo: repo, prNumber: prNumber, includeSecurity: includeSecurity})
		rev := &types.Review{
			ID:         "test-review-id",
			Repository: owner + "/" + repo,
			PRNumber:   prNumber,
			Status:     types.StatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if err := store.Put(ctx, rev); err != nil {
			t.Fatalf("store pending review: %v", err)
		}
		return rev.ID
	}
	return newAPIServer(store, start, NewMetricsCollector()), store, &calls
}

func doRequest(s *apiServer, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestCreateReview(t *testing.T) {
	s, _, calls := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/v1/reviews", `{"repository":"acme/widgets","pr_number":42}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	if payload["review_id"] != "test-review-id" {
		t.Errorf("unexpected review_id: %v", payload["review_id"])
	}
	if payload["status"] != "pending" {
		t.Errorf("expected pending status, got %v", payload["status"])
	}

	if len(*calls) != 1 {
		t.Fatalf("expected 1 start call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.owner != "acme" || call.repo != "widgets" || call.prNumber != 42 {
		t.Errorf("unexpected start call: %+v", call)
	}
	if !call.includeSecurity {
		t.Error("security scan should default to enabled")
	}
}

func TestCreateReview_SecurityOptOut(t *testing.T) {
	s, _, calls := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/v1/reviews", `{"repository":"acme/widgets","pr_number":7,"include_security_scan":false}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if (*calls)[0].includeSecurity {
		t.Error("expected security scan disabled")
	}
}

func TestCreateReview_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{not json`},
		{"missing repository", `{"pr_number":1}`},
		{"repository without slash", `{"repository":"acme","pr_number":1}`},
		{"zero PR number", `{"repository":"acme/widgets","pr_number":0}`},
		{"negative PR number", `{"repository":"acme/widgets","pr_number":-4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, calls := newTestServer(t)
			rec := doRequest(s, http.MethodPost, "/v1/reviews", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(*calls) != 0 {
				t.Errorf("start should not be called, got %d calls", len(*calls))
			}
		})
	}
}

func TestGetReview(t *testing.T) {
	s, store, _ := newTestServer(t)

	now := time.Now().UTC()
	rev := &types.Review{
		ID:           "abc",
		Repository:   "acme/widgets",
		PRNumber:     3,
		Status:       types.StatusCompleted,
		CreatedAt:    now,
		CompletedAt:  &now,
		FileAnalyses: []types.FileAnalysis{},
		Summary:      &types.ReviewSummary{Recommendation: types.RecommendApprove},
	}
	if err := store.Put(context.Background(), rev); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec := doRequest(s, http.MethodGet, "/v1/reviews/abc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["review_id"] != "abc" || payload["repository"] != "acme/widgets" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestGetReview_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/v1/reviews/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReviewStatus(t *testing.T) {
	s, store, _ := newTestServer(t)

	rev := &types.Review{
		ID:         "abc",
		Repository: "acme/widgets",
		PRNumber:   9,
		Status:     types.StatusInProgress,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Put(context.Background(), rev); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec := doRequest(s, http.MethodGet, "/v1/reviews/abc/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["status"] != "in_progress" {
		t.Errorf("expected in_progress, got %v", payload["status"])
	}
	if _, hasAnalyses := payload["file_analyses"]; hasAnalyses {
		t.Error("status endpoint should not include file analyses")
	}
}

func TestReviewSummary(t *testing.T) {
	s, store, _ := newTestServer(t)

	now := time.Now().UTC()
	completed := &types.Review{
		ID:          "done",
		Repository:  "acme/widgets",
		PRNumber:    1,
		Status:      types.StatusCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
		AIInsights:  "looks fine",
		Summary:     &types.ReviewSummary{Recommendation: types.RecommendApprove},
	}
	inProgress := &types.Review{
		ID:         "running",
		Repository: "acme/widgets",
		PRNumber:   2,
		Status:     types.StatusInProgress,
		CreatedAt:  now,
	}
	for _, rev := range []*types.Review{completed, inProgress} {
		if err := store.Put(context.Background(), rev); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	rec := doRequest(s, http.MethodGet, "/v1/reviews/done/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["ai_insights"] != "looks fine" {
		t.Errorf("unexpected insights: %v", payload["ai_insights"])
	}

	rec = doRequest(s, http.MethodGet, "/v1/reviews/running/summary", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete review, got %d", rec.Code)
	}
}

func TestListReviews(t *testing.T) {
	s, store, _ := newTestServer(t)

	for i, id := range []string{"first", "second"} {
		rev := &types.Review{
			ID:         id,
			Repository: "acme/widgets",
			PRNumber:   i + 1,
			Status:     types.StatusCompleted,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		if err := store.Put(context.Background(), rev); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	rec := doRequest(s, http.MethodGet, "/v1/reviews", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["total"] != float64(2) {
		t.Errorf("expected total 2, got %v", payload["total"])
	}
	reviews, ok := payload["reviews"].([]any)
	if !ok || len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %v", payload["reviews"])
	}
	newest, _ := reviews[0].(map[string]any)
	if newest["review_id"] != "second" {
		t.Errorf("expected newest review first, got %v", newest["review_id"])
	}

	rec = doRequest(s, http.MethodGet, "/v1/reviews?limit=1", "")
	payload = decodeBody(t, rec)
	if payload["total"] != float64(1) {
		t.Errorf("expected limited total 1, got %v", payload["total"])
	}

	rec = doRequest(s, http.MethodGet, "/v1/reviews?limit=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestDeleteReview(t *testing.T) {
	s, store, _ := newTestServer(t)

	rev := &types.Review{
		ID:         "gone",
		Repository: "acme/widgets",
		PRNumber:   1,
		Status:     types.StatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Put(context.Background(), rev); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec := doRequest(s, http.MethodDelete, "/v1/reviews/gone", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodDelete, "/v1/reviews/gone", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["status"] != "ok" {
		t.Errorf("expected ok status, got %v", payload["status"])
	}
}

func TestHealth_StaleRuns(t *testing.T) {
	s, _, _ := newTestServer(t)

	s.metrics.mu.Lock()
	s.metrics.lastRun = time.Now().Add(-time.Hour)
	s.metrics.totalRuns = 3
	s.metrics.mu.Unlock()

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["status"] != "stale" {
		t.Errorf("expected stale status, got %v", payload["status"])
	}
}

func TestPoll(t *testing.T) {
	s, _, _ := newTestServer(t)

	polled := make(chan struct{})
	s.poll = func(context.Context) error {
		close(polled)
		return nil
	}

	rec := doRequest(s, http.MethodPost, "/v1/poll", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("poll function was not invoked")
	}
}

func TestPoll_Disabled(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/v1/poll", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when polling disabled, got %d", rec.Code)
	}
}

func TestPoll_Conflict(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.poll = func(context.Context) error { return nil }

	s.metrics.pollingMu.Lock()
	defer s.metrics.pollingMu.Unlock()

	rec := doRequest(s, http.MethodPost, "/v1/poll", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while polling in progress, got %d", rec.Code)
	}
}

func TestParseEventURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		owner   string
		repo    string
		number  int
		wantErr bool
	}{
		{"valid", "https://github.com/acme/widgets/pull/42", "acme", "widgets", 42, false},
		{"not github", "https://gitlab.com/acme/widgets/pull/42", "", "", 0, true},
		{"too short", "https://github.com/acme", "", "", 0, true},
		{"bad number", "https://github.com/acme/widgets/pull/abc", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := parseEventURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEventURL: %v", err)
			}
			if ref.owner != tt.owner || ref.repo != tt.repo || ref.number != tt.number {
				t.Errorf("got %+v, want %s/%s#%d", ref, tt.owner, tt.repo, tt.number)
			}
		})
	}
}
