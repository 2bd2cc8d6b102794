// Package main implements a GitHub App bot that automatically reviews pull
// requests across all installed organizations and serves the review API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/ai"
	"github.com/codeGROOVE-dev/autoreview/pkg/github"
	"github.com/codeGROOVE-dev/autoreview/pkg/review"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
	"github.com/google/uuid"
)

var (
	// GitHub App authentication flags.
	appID      = flag.String("app-id", "", "GitHub App ID for authentication")
	appKeyPath = flag.String("app-key-path", "", "Path to GitHub App private key file")

	// Behavior flags.
	loopDelay   = flag.Duration("loop-delay", 5*time.Minute, "Loop delay between polling cycles (default: 5m)")
	postReviews = flag.Bool("post", false, "Post completed reviews back to GitHub as PR reviews")
	security    = flag.Bool("security", true, "Include security scanning in reviews")
	provider    = flag.String("provider", "", "AI provider for insights: openai or gemini (empty disables AI)")
	workers     = flag.Int("workers", 0, "Concurrent file analyses per review (0 = default)")

	// Storage flags.
	storeKind = flag.String("store", "memory", "Review store backend: memory or sqlite")
	dbPath    = flag.String("db", "autoreview.db", "SQLite database path (with -store=sqlite)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "GitHub App bot that automatically reviews PRs across all installed organizations.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_ID               - GitHub App ID\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_KEY              - GitHub App private key contents\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_KEY_PATH         - Path to GitHub App private key file\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY              - OpenAI API key (with -provider=openai)\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY              - Gemini API key (with -provider=gemini)\n")
		fmt.Fprintf(os.Stderr, "  PORT                        - HTTP server port (default: 8080)\n")
	}
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Resolve credentials
	effectiveAppID := *appID
	effectiveAppKey := *appKeyPath
	if effectiveAppID == "" {
		effectiveAppID = os.Getenv("GITHUB_APP_ID")
	}
	if effectiveAppKey == "" {
		effectiveAppKey = os.Getenv("GITHUB_APP_KEY_PATH")
	}

	if effectiveAppID == "" {
		slog.Error("GitHub App ID is required")
		slog.Info("Set via --app-id flag or GITHUB_APP_ID environment variable")
		os.Exit(1)
	}
	if effectiveAppKey == "" && os.Getenv("GITHUB_APP_KEY") == "" {
		slog.Error("GitHub App key is required")
		slog.Info("Set via --app-key-path flag, GITHUB_APP_KEY_PATH, or GITHUB_APP_KEY environment variable")
		os.Exit(1)
	}

	ctx := context.Background()

	// Create GitHub client with app authentication
	cfg := github.Config{
		UseAppAuth:  true,
		AppID:       effectiveAppID,
		AppKeyPath:  effectiveAppKey,
		HTTPTimeout: 30 * time.Second,
		CacheTTL:    24 * time.Hour,
	}
	client, err := github.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create GitHub client", "error", err)
		os.Exit(1)
	}

	aiService, cleanup, err := buildAIService(ctx, *provider)
	if err != nil {
		slog.Error("Failed to configure AI provider", "provider", *provider, "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	store, err := buildStore(*storeKind, *dbPath)
	if err != nil {
		slog.Error("Failed to create review store", "store", *storeKind, "error", err)
		os.Exit(1)
	}

	analyzer := review.New(review.Config{
		Fetcher:   client,
		AIService: aiService,
		Workers:   *workers,
	})

	bot := &Bot{
		client:            client,
		analyzer:          analyzer,
		store:             store,
		sprinklerMonitors: make(map[string]*sprinklerMonitor),
		reviewedAt:        make(map[string]time.Time),
		postReviews:       *postReviews,
		includeSecurity:   *security,
	}

	slog.Info("Starting in server mode", "loop_delay", *loopDelay, "store", *storeKind, "provider", *provider)
	bot.runServeMode(ctx, *loopDelay)
}

// buildAIService constructs the AI service for the named provider, or nil
// when provider is empty. The returned cleanup closes provider resources.
func buildAIService(ctx context.Context, name string) (review.AIService, func(), error) {
	switch name {
	case "":
		return nil, nil, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		p, err := ai.NewOpenAI(key, os.Getenv("OPENAI_MODEL"))
		if err != nil {
			return nil, nil, err
		}
		return ai.NewService(p), nil, nil
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		p, err := ai.NewGemini(ctx, key, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := p.Close(); err != nil {
				slog.Warn("Failed to close Gemini client", "error", err)
			}
		}
		return ai.NewService(p), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q (use openai or gemini)", name)
	}
}

// buildStore constructs the review store backend.
func buildStore(kind, path string) (review.Store, error) {
	switch kind {
	case "memory":
		return review.NewMemoryStore(), nil
	case "sqlite":
		return review.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store %q (use memory or sqlite)", kind)
	}
}

// Bot runs automated reviews across all installed organizations. It talks
// to GitHub through the github.API interface so tests can substitute fakes.
type Bot struct {
	client            github.API
	analyzer          *review.Analyzer
	store             review.Store
	metrics           *MetricsCollector
	sprinklerMonitors map[string]*sprinklerMonitor // One monitor per org
	reviewedAt        map[string]time.Time         // PR key -> updated_at last reviewed
	reviewedMu        sync.Mutex
	postReviews       bool
	includeSecurity   bool
}

// startReview records a pending review and runs the analysis in the
// background. It returns the review id immediately.
func (b *Bot) startReview(ctx context.Context, owner, repo string, prNumber int, includeSecurity bool) string {
	id := uuid.NewString()
	pending := &types.Review{
		ID:           id,
		Repository:   owner + "/" + repo,
		PRNumber:     prNumber,
		Status:       types.StatusPending,
		CreatedAt:    time.Now().UTC(),
		FileAnalyses: []types.FileAnalysis{},
	}
	if err := b.store.Put(ctx, pending); err != nil {
		slog.Warn("Failed to store pending review", "review_id", id, "error", err)
	}

	// Detach from the request context so the review outlives the handler.
	// Reviews for different orgs run concurrently, so scope the org to
	// this request's context instead of mutating shared client state.
	runCtx := github.WithOrg(context.WithoutCancel(ctx), owner)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Review goroutine panic", "review_id", id, "panic", r)
			}
		}()

		result := b.analyzer.AnalyzePullRequest(runCtx, owner, repo, prNumber, review.Options{
			IncludeSecurity: includeSecurity,
		})
		result.ID = id
		result.CreatedAt = pending.CreatedAt
		if err := b.store.Put(runCtx, result); err != nil {
			slog.Error("Failed to store review result", "review_id", id, "error", err)
		}

		if b.metrics != nil {
			b.metrics.RecordPRSeen(owner, repo, prNumber)
			if result.Status == types.StatusCompleted {
				b.metrics.RecordPRReviewed(owner, repo, prNumber)
			}
		}
	}()

	return id
}

// processSinglePR reviews one PR synchronously (used by sprinkler events
// and the polling loop). A failed review returns an error so callers can
// retry.
func (b *Bot) processSinglePR(ctx context.Context, owner, repo string, prNumber int) error {
	if b.metrics != nil {
		b.metrics.RecordPRSeen(owner, repo, prNumber)
	}

	result := b.analyzer.AnalyzePullRequest(ctx, owner, repo, prNumber, review.Options{
		IncludeSecurity: b.includeSecurity,
	})
	if err := b.store.Put(ctx, result); err != nil {
		slog.Warn("Failed to store review", "review_id", result.ID, "error", err)
	}

	if result.Status == types.StatusFailed {
		return fmt.Errorf("review failed: %s", result.ErrorMessage)
	}

	if b.metrics != nil {
		b.metrics.RecordPRReviewed(owner, repo, prNumber)
	}

	if b.postReviews && result.Summary != nil {
		body := reviewComment(result)
		event := string(result.Summary.Recommendation)
		if err := b.client.CreateReview(ctx, owner, repo, prNumber, event, body); err != nil {
			slog.Warn("Failed to post review to GitHub (continuing)",
				"repo", owner+"/"+repo, "pr", prNumber, "error", err)
		}
	}

	return nil
}

// processAllOrgs reviews open PRs in all organizations where the app is
// installed. It is the polling fallback for events the WebSocket missed.
func (b *Bot) processAllOrgs(ctx context.Context) error {
	orgs, err := b.client.ListAppInstallations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list app installations: %w", err)
	}

	if len(orgs) == 0 {
		slog.Info("No organization installations found")
		return nil
	}

	slog.Info("Processing organizations", "count", len(orgs))

	var totalSeen, totalReviewed, totalSkipped int

	for i, orgName := range orgs {
		slog.Info("Processing organization", "org", orgName, "progress", fmt.Sprintf("%d/%d", i+1, len(orgs)))

		seen, reviewed, skipped := b.processOrg(github.WithOrg(ctx, orgName), orgName)
		totalSeen += seen
		totalReviewed += reviewed
		totalSkipped += skipped

		if b.metrics != nil {
			b.metrics.RecordOrg(orgName)
		}
	}

	slog.Info("Completed all organizations",
		"total_prs", totalSeen,
		"reviewed", totalReviewed,
		"skipped", totalSkipped,
		"orgs", len(orgs))

	return nil
}

// processOrg reviews open PRs for a single organization, skipping PRs
// already reviewed at their current update time.
func (b *Bot) processOrg(ctx context.Context, org string) (seen, reviewed, skipped int) {
	refs, err := b.client.OpenPullRequestsForOrg(ctx, org)
	if err != nil {
		slog.Warn("Failed to get PRs for org", "org", org, "error", err)
		return 0, 0, 0
	}

	for _, ref := range refs {
		seen++
		if !b.needsReview(ref) {
			skipped++
			continue
		}

		if err := b.processSinglePR(ctx, ref.Owner, ref.Repo, ref.Number); err != nil {
			slog.Warn("Failed to review PR (continuing)",
				"repo", ref.Owner+"/"+ref.Repo, "pr", ref.Number, "error", err)
			skipped++
			continue
		}

		b.markReviewed(ref)
		reviewed++
	}

	return seen, reviewed, skipped
}

// needsReview reports whether a PR has been updated since its last review.
// Very fresh updates are skipped so a push burst settles before analysis.
func (b *Bot) needsReview(ref github.PRRef) bool {
	const minQuietPeriod = 2 * time.Minute
	if time.Since(ref.UpdatedAt) < minQuietPeriod {
		return false
	}

	b.reviewedMu.Lock()
	defer b.reviewedMu.Unlock()
	last, ok := b.reviewedAt[prKey(ref.Owner, ref.Repo, ref.Number)]
	return !ok || ref.UpdatedAt.After(last)
}

func (b *Bot) markReviewed(ref github.PRRef) {
	b.reviewedMu.Lock()
	defer b.reviewedMu.Unlock()
	b.reviewedAt[prKey(ref.Owner, ref.Repo, ref.Number)] = ref.UpdatedAt
}

func prKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

// runServeMode runs the bot in server mode with periodic polling.
func (b *Bot) runServeMode(ctx context.Context, loopDelay time.Duration) {
	b.metrics = NewMetricsCollector()

	// Start API server in background
	api := newAPIServer(b.store, b.startReview, b.metrics)
	api.poll = b.processAllOrgs
	go api.serve()

	time.Sleep(100 * time.Millisecond)
	slog.Info("Service started in server mode", "loop_delay", loopDelay)

	// Initialize and start one sprinkler monitor per org
	orgs, err := b.client.ListAppInstallations(ctx)
	if err != nil {
		slog.Warn("Failed to list organizations for sprinkler", "error", err)
	} else {
		for _, org := range orgs {
			monitor := newSprinklerMonitor(b, org)
			if err := monitor.start(ctx); err != nil {
				slog.Error("Failed to start sprinkler for org", "org", org, "error", err)
				continue
			}
			b.sprinklerMonitors[org] = monitor
			slog.Info("Started sprinkler monitor", "org", org)
		}

		defer func() {
			for org, monitor := range b.sprinklerMonitors {
				slog.Info("Stopping sprinkler monitor", "org", org)
				monitor.stop()
			}
		}()
	}

	// Run immediately, then loop
	for {
		select {
		case <-ctx.Done():
			slog.Info("Context cancelled, shutting down")
			return
		default:
			slog.Info("Starting review polling run")
			startTime := time.Now()

			if err := b.processAllOrgs(ctx); err != nil {
				slog.Error("Failed to process app installations", "error", err)
			}

			// Check for new/removed orgs and update sprinkler monitors
			b.updateSprinklerMonitors(ctx)

			b.metrics.RecordRunComplete()
			duration := time.Since(startTime)
			slog.Info("Run completed", "duration", duration, "sleep_duration", loopDelay)

			timer := time.NewTimer(loopDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// updateSprinklerMonitors checks for new/removed orgs and updates sprinkler monitors accordingly.
func (b *Bot) updateSprinklerMonitors(ctx context.Context) {
	orgs, err := b.client.ListAppInstallations(ctx)
	if err != nil {
		slog.Warn("Failed to list organizations for sprinkler update", "error", err)
		return
	}

	currentOrgs := make(map[string]bool)
	for _, org := range orgs {
		currentOrgs[org] = true
	}

	// Stop monitors for removed orgs
	for org, monitor := range b.sprinklerMonitors {
		if !currentOrgs[org] {
			slog.Info("Stopping sprinkler for removed org", "org", org)
			monitor.stop()
			delete(b.sprinklerMonitors, org)
		}
	}

	// Start monitors for new orgs
	for _, org := range orgs {
		if _, exists := b.sprinklerMonitors[org]; exists {
			continue
		}

		monitor := newSprinklerMonitor(b, org)
		if err := monitor.start(ctx); err != nil {
			slog.Error("Failed to start sprinkler for new org", "org", org, "error", err)
			continue
		}

		b.sprinklerMonitors[org] = monitor
		slog.Info("Started sprinkler monitor for new org", "org", org)
	}
}

// reviewComment renders a completed review as a PR review comment body.
func reviewComment(result *types.Review) string {
	s := result.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Automated Review\n\n")
	fmt.Fprintf(&sb, "Overall quality score: **%.1f/100** across %d files.\n\n", s.OverallQualityScore, s.TotalFiles)
	fmt.Fprintf(&sb, "Issues: %d critical, %d high, %d medium, %d low. Security findings: %d.\n",
		s.CriticalIssues, s.HighIssues, s.MediumIssues, s.LowIssues, s.SecurityFindingsCount)
	if len(s.Weaknesses) > 0 {
		sb.WriteString("\n")
		for _, line := range s.Weaknesses {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	return sb.String()
}

// MetricsCollector tracks metrics for the health endpoint.
type MetricsCollector struct {
	uniqueOrgs        map[string]bool
	uniquePRsSeen     map[string]bool
	uniquePRsReviewed map[string]bool
	lastRun           time.Time
	mu                sync.RWMutex
	totalRuns         int64
	pollingMu         sync.Mutex
	isPolling         bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		uniqueOrgs:        make(map[string]bool),
		uniquePRsSeen:     make(map[string]bool),
		uniquePRsReviewed: make(map[string]bool),
	}
}

// RecordOrg records an organization being processed.
func (m *MetricsCollector) RecordOrg(org string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniqueOrgs[org] = true
}

// RecordPRSeen records a PR that was seen.
func (m *MetricsCollector) RecordPRSeen(owner, repo string, prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniquePRsSeen[prKey(owner, repo, prNumber)] = true
}

// RecordPRReviewed records a PR that was reviewed to completion.
func (m *MetricsCollector) RecordPRReviewed(owner, repo string, prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniquePRsReviewed[prKey(owner, repo, prNumber)] = true
}

// RecordRunComplete records that a polling run has completed.
func (m *MetricsCollector) RecordRunComplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = time.Now()
	atomic.AddInt64(&m.totalRuns, 1)
}

// Stats represents collected metrics.
type Stats struct {
	LastRun     time.Time
	TotalRuns   int64
	Orgs        int
	PRsSeen     int
	PRsReviewed int
}

// Stats returns the current statistics.
func (m *MetricsCollector) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Orgs:        len(m.uniqueOrgs),
		PRsSeen:     len(m.uniquePRsSeen),
		PRsReviewed: len(m.uniquePRsReviewed),
		LastRun:     m.lastRun,
		TotalRuns:   atomic.LoadInt64(&m.totalRuns),
	}
}
