package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/review"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

const (
	defaultListLimit = 100
	staleRunAge      = 15 * time.Minute
)

// startFunc launches an asynchronous review and returns its id.
type startFunc func(ctx context.Context, owner, repo string, prNumber int, includeSecurity bool) string

// apiServer exposes the review API and health endpoint.
type apiServer struct {
	store   review.Store
	start   startFunc
	metrics *MetricsCollector
	poll    func(ctx context.Context) error // optional manual poll trigger
}

// newAPIServer creates the API server around a review store.
func newAPIServer(store review.Store, start startFunc, metrics *MetricsCollector) *apiServer {
	return &apiServer{
		store:   store,
		start:   start,
		metrics: metrics,
	}
}

// routes builds the request mux.
func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/reviews", s.handleCreateReview)
	mux.HandleFunc("GET /v1/reviews", s.handleListReviews)
	mux.HandleFunc("GET /v1/reviews/{id}", s.handleGetReview)
	mux.HandleFunc("GET /v1/reviews/{id}/status", s.handleReviewStatus)
	mux.HandleFunc("GET /v1/reviews/{id}/summary", s.handleReviewSummary)
	mux.HandleFunc("DELETE /v1/reviews/{id}", s.handleDeleteReview)
	mux.HandleFunc("POST /v1/poll", s.handlePoll)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Autoreview Bot\n/healthz - Health status\n/v1/reviews - Review API\n/v1/poll - Trigger manual poll\n")); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	})
	return mux
}

// serve runs the HTTP server until it fails or the process exits.
func (s *apiServer) serve() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Starting API server", "port", port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("API server failed", "error", err)
	}
}

// reviewRequest is the body of POST /v1/reviews.
type reviewRequest struct {
	Repository          string `json:"repository"`
	IncludeSecurityScan *bool  `json:"include_security_scan"`
	PRNumber            int    `json:"pr_number"`
}

func (s *apiServer) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	owner, repo, ok := strings.Cut(req.Repository, "/")
	if !ok || owner == "" || repo == "" {
		writeError(w, http.StatusBadRequest, "repository must be in owner/repo format")
		return
	}
	if req.PRNumber <= 0 {
		writeError(w, http.StatusBadRequest, "pr_number must be positive")
		return
	}

	includeSecurity := true
	if req.IncludeSecurityScan != nil {
		includeSecurity = *req.IncludeSecurityScan
	}

	id := s.start(r.Context(), owner, repo, req.PRNumber, includeSecurity)

	slog.Info("Accepted review request", "component", "api", "review_id", id, "repository", req.Repository, "pr", req.PRNumber)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"review_id":  id,
		"status":     types.StatusPending,
		"repository": req.Repository,
		"pr_number":  req.PRNumber,
	})
}

func (s *apiServer) handleGetReview(w http.ResponseWriter, r *http.Request) {
	rev, ok := s.lookupReview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *apiServer) handleReviewStatus(w http.ResponseWriter, r *http.Request) {
	rev, ok := s.lookupReview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review_id":    rev.ID,
		"status":       rev.Status,
		"repository":   rev.Repository,
		"pr_number":    rev.PRNumber,
		"created_at":   rev.CreatedAt,
		"completed_at": rev.CompletedAt,
	})
}

func (s *apiServer) handleReviewSummary(w http.ResponseWriter, r *http.Request) {
	rev, ok := s.lookupReview(w, r)
	if !ok {
		return
	}
	if rev.Status != types.StatusCompleted {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("review is not completed yet (status: %s)", rev.Status))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review_id":   rev.ID,
		"summary":     rev.Summary,
		"ai_insights": rev.AIInsights,
	})
}

func (s *apiServer) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, review.ErrReviewNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		slog.Error("Failed to delete review", "component", "api", "review_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "review deleted"})
}

func (s *apiServer) handleListReviews(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	reviews, err := s.store.List(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list reviews", "component", "api", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	items := make([]map[string]any, 0, len(reviews))
	for _, rev := range reviews {
		items = append(items, map[string]any{
			"review_id":  rev.ID,
			"status":     rev.Status,
			"repository": rev.Repository,
			"pr_number":  rev.PRNumber,
			"created_at": rev.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": items,
		"total":   len(items),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	statusCode := http.StatusOK

	var stats Stats
	if s.metrics != nil {
		stats = s.metrics.Stats()
		if stats.TotalRuns > 0 && time.Since(stats.LastRun) > staleRunAge {
			status = "stale"
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"status":       status,
		"orgs":         stats.Orgs,
		"prs_seen":     stats.PRsSeen,
		"prs_reviewed": stats.PRsReviewed,
		"total_runs":   stats.TotalRuns,
		"last_run":     stats.LastRun,
	})
}

func (s *apiServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	if s.poll == nil {
		writeError(w, http.StatusNotFound, "polling is not enabled")
		return
	}

	if !s.metrics.pollingMu.TryLock() {
		writeError(w, http.StatusConflict, "polling already in progress")
		return
	}

	s.metrics.isPolling = true

	// Detach so the poll outlives the request.
	pollCtx := context.WithoutCancel(r.Context())
	go func() {
		defer func() {
			s.metrics.isPolling = false
			s.metrics.pollingMu.Unlock()
		}()

		slog.Info("Manual poll triggered")
		startTime := time.Now()

		if err := s.poll(pollCtx); err != nil {
			slog.Error("Manual poll failed", "error", err)
		} else {
			s.metrics.RecordRunComplete()
			slog.Info("Manual poll completed", "duration", time.Since(startTime))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"message": "poll triggered"})
}

// lookupReview fetches the review named by the path, writing the error
// response itself when the lookup fails.
func (s *apiServer) lookupReview(w http.ResponseWriter, r *http.Request) (*types.Review, bool) {
	id := r.PathValue("id")
	rev, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, review.ErrReviewNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return nil, false
		}
		slog.Error("Failed to load review", "component", "api", "review_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load review")
		return nil, false
	}
	return rev, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
