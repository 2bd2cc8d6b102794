// Package main implements a CLI tool that reviews a GitHub pull request:
// complexity, security, and secret scanning plus optional AI analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/ai"
	"github.com/codeGROOVE-dev/autoreview/pkg/github"
	"github.com/codeGROOVE-dev/autoreview/pkg/review"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

var (
	prURL      = flag.String("pr", "", "Pull request URL (e.g., https://github.com/owner/repo/pull/123 or owner/repo#123)")
	verbose    = flag.Bool("v", false, "Verbose output with detailed diagnostics")
	security   = flag.Bool("security", true, "Include security and secret scanning")
	provider   = flag.String("provider", "", "AI provider: openai or gemini (empty disables AI analysis)")
	jsonOutput = flag.Bool("json", false, "Print the full review document as JSON")
	postReview = flag.Bool("post", false, "Post the recommendation back to the PR as a review")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -pr <PR_URL> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reviews a GitHub pull request for quality, complexity, and security issues.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -pr https://github.com/owner/repo/pull/123\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pr owner/repo#123 -provider openai\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pr owner/repo#123 -json\n", os.Args[0])
	}
	flag.Parse()

	if *prURL == "" {
		flag.Usage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	owner, repo, prNumber, err := parsePRURL(*prURL)
	if err != nil {
		slog.Error("Invalid PR URL", "error", err)
		os.Exit(1)
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token, err = getGitHubToken(ctx)
		if err != nil {
			slog.Error("Failed to get GitHub token", "error", err)
			slog.Info("Set GITHUB_TOKEN or authenticate the gh CLI (run: gh auth login)")
			os.Exit(1)
		}
	}

	cfg := github.Config{
		UseAppAuth:  false,
		Token:       token,
		HTTPTimeout: 30 * time.Second,
		CacheTTL:    time.Hour,
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

	analyzer := review.New(review.Config{
		Fetcher:   client,
		AIService: aiService,
	})

	slog.Info("Starting review", "owner", owner, "repo", repo, "number", prNumber)
	result := analyzer.AnalyzePullRequest(ctx, owner, repo, prNumber, review.Options{
		IncludeSecurity: *security,
	})

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("Failed to encode review", "error", err)
			os.Exit(1)
		}
	} else {
		printReview(result)
	}

	if result.Status == types.StatusFailed {
		os.Exit(1)
	}

	if *postReview {
		body := reviewBody(result)
		event := string(result.Summary.Recommendation)
		if err := client.CreateReview(ctx, owner, repo, prNumber, event, body); err != nil {
			slog.Error("Failed to post review", "error", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Posted %s review on %s/%s#%d\n", event, owner, repo, prNumber)
	}
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

// printReview writes a human-readable review report to stdout.
func printReview(result *types.Review) {
	fmt.Printf("\n📋 Review %s — %s#%d\n", result.ID, result.Repository, result.PRNumber)
	fmt.Printf("   Status: %s\n", result.Status)

	if result.Status == types.StatusFailed {
		fmt.Printf("   Error: %s\n", result.ErrorMessage)
		return
	}

	s := result.Summary
	fmt.Printf("   Files analyzed: %d (%d lines changed)\n", s.TotalFiles, s.TotalLinesChanged)
	fmt.Printf("   Overall quality: %.1f/100\n", s.OverallQualityScore)
	fmt.Printf("   Average complexity: %.1f\n", s.AverageComplexity)
	fmt.Printf("   Issues: %d critical, %d high, %d medium, %d low\n",
		s.CriticalIssues, s.HighIssues, s.MediumIssues, s.LowIssues)
	fmt.Printf("   Security findings: %d\n", s.SecurityFindingsCount)
	fmt.Printf("\n🏁 Recommendation: %s\n", s.Recommendation)

	if len(s.Strengths) > 0 {
		fmt.Println("\n👍 Strengths:")
		for _, line := range s.Strengths {
			fmt.Printf("   - %s\n", line)
		}
	}
	if len(s.Weaknesses) > 0 {
		fmt.Println("\n👎 Weaknesses:")
		for _, line := range s.Weaknesses {
			fmt.Printf("   - %s\n", line)
		}
	}

	for _, fa := range result.FileAnalyses {
		if len(fa.Issues) == 0 && len(fa.SecurityFindings) == 0 {
			continue
		}
		fmt.Printf("\n📄 %s (%s, quality %.1f)\n", fa.FilePath, fa.Language, fa.QualityScore)
		for _, issue := range fa.Issues {
			fmt.Printf("   [%s] %s: %s\n", issue.Severity, issue.Title, issue.Description)
		}
		for _, finding := range fa.SecurityFindings {
			fmt.Printf("   [%s] %s: %s (line %d)\n", finding.Severity, finding.VulnerabilityType, finding.Description, finding.LineNumber)
		}
	}

	if result.AIInsights != "" {
		fmt.Printf("\n🤖 AI Insights:\n%s\n", result.AIInsights)
	}
	fmt.Println()
}

// reviewBody renders the summary as a PR review comment.
func reviewBody(result *types.Review) string {
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
	if result.AIInsights != "" && result.AIInsights != "Failed to generate summary" {
		fmt.Fprintf(&sb, "\n%s\n", result.AIInsights)
	}
	return sb.String()
}

// parsePRURL parses a PR URL or shorthand into owner, repo, and PR number.
func parsePRURL(url string) (owner, repo string, prNumber int, err error) {
	// Handle shorthand: owner/repo#123
	if strings.Contains(url, "#") && !strings.Contains(url, "://") {
		parts := strings.Split(url, "#")
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("invalid PR shorthand format (expected owner/repo#number)")
		}
		repoPath := strings.Split(parts[0], "/")
		if len(repoPath) != 2 {
			return "", "", 0, fmt.Errorf("invalid repository path (expected owner/repo)")
		}
		_, err := fmt.Sscanf(parts[1], "%d", &prNumber)
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid PR number: %w", err)
		}
		return repoPath[0], repoPath[1], prNumber, nil
	}

	// Handle full URL: https://github.com/owner/repo/pull/123
	if strings.HasPrefix(url, "https://github.com/") || strings.HasPrefix(url, "http://github.com/") {
		url = strings.TrimPrefix(url, "https://github.com/")
		url = strings.TrimPrefix(url, "http://github.com/")
		parts := strings.Split(url, "/")
		if len(parts) < 4 || parts[2] != "pull" {
			return "", "", 0, fmt.Errorf("invalid GitHub PR URL format")
		}
		_, err := fmt.Sscanf(parts[3], "%d", &prNumber)
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid PR number: %w", err)
		}
		return parts[0], parts[1], prNumber, nil
	}

	return "", "", 0, fmt.Errorf("invalid PR URL format (use: https://github.com/owner/repo/pull/123 or owner/repo#123)")
}

// getGitHubToken retrieves the GitHub token from gh CLI.
func getGitHubToken(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", "auth", "token")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get GitHub token: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
