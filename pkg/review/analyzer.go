// Package review orchestrates the analysis pipeline: it fetches a pull
// request, runs complexity, security, secret, and AI analysis over each
// changed file, and aggregates the results into a Review document.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/autoreview/pkg/ai"
	"github.com/codeGROOVE-dev/autoreview/pkg/complexity"
	"github.com/codeGROOVE-dev/autoreview/pkg/github"
	"github.com/codeGROOVE-dev/autoreview/pkg/language"
	"github.com/codeGROOVE-dev/autoreview/pkg/secrets"
	"github.com/codeGROOVE-dev/autoreview/pkg/security"
	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Fetcher is the subset of the GitHub client the analyzer needs.
type Fetcher interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error)
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// AIService produces per-file analyses and review summaries. A nil
// AIService disables AI analysis entirely.
type AIService interface {
	AnalyzeCode(ctx context.Context, req ai.AnalysisRequest) (ai.AnalysisResult, error)
	ReviewSummary(ctx context.Context, analyses []types.FileAnalysis, pr ai.PRContext) string
}

// Analyzer runs reviews over pull requests.
type Analyzer struct {
	fetcher    Fetcher
	aiService  AIService
	complexity *complexity.Analyzer
	security   *security.Scanner
	secrets    *secrets.Scanner
	workers    int
}

// Options control what a single review run includes.
type Options struct {
	IncludeSecurity bool
}

// Config holds configuration for creating an Analyzer.
type Config struct {
	Fetcher   Fetcher
	AIService AIService // nil disables AI analysis
	Workers   int       // concurrent file analyses; <= 0 uses the default
}

// New creates a review analyzer.
func New(cfg Config) *Analyzer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Analyzer{
		fetcher:    cfg.Fetcher,
		aiService:  cfg.AIService,
		complexity: complexity.New(),
		security:   security.New(),
		secrets:    secrets.New(),
		workers:    workers,
	}
}

// AnalyzePullRequest runs a full review of one pull request. It always
// returns a Review in a terminal state: the only fatal failure is the PR
// fetch itself; every per-file error is absorbed by skipping that file.
func (a *Analyzer) AnalyzePullRequest(ctx context.Context, owner, repo string, prNumber int, opts Options) *types.Review {
	review := &types.Review{
		ID:         uuid.NewString(),
		Repository: fmt.Sprintf("%s/%s", owner, repo),
		PRNumber:   prNumber,
		Status:     types.StatusInProgress,
		CreatedAt:  time.Now().UTC(),
	}

	slog.Info("Starting review", "component", "review", "review_id", review.ID, "repo", review.Repository, "pr", prNumber)

	pr, err := a.fetcher.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		slog.Error("Failed to fetch pull request", "component", "review", "review_id", review.ID, "error", err)
		now := time.Now().UTC()
		review.Status = types.StatusFailed
		review.ErrorMessage = fmt.Sprintf("failed to fetch pull request: %v", err)
		review.FileAnalyses = []types.FileAnalysis{}
		review.CompletedAt = &now
		return review
	}

	review.FileAnalyses = a.analyzeFiles(ctx, pr, opts)
	review.Summary = buildSummary(review.FileAnalyses)

	if a.aiService != nil {
		review.AIInsights = a.aiService.ReviewSummary(ctx, review.FileAnalyses, ai.PRContext{
			Title:       pr.Title,
			Author:      pr.Author,
			Description: pr.Description,
		})
	}

	now := time.Now().UTC()
	review.Status = types.StatusCompleted
	review.CompletedAt = &now

	slog.Info("Review completed", "component", "review", "review_id", review.ID,
		"files", len(review.FileAnalyses), "recommendation", review.Summary.Recommendation)
	return review
}

// analyzeFiles fans changed files out to a bounded worker pool and collects
// the per-file analyses. Results are independent, so assembly order does
// not matter; the output follows the changed-file order for stable JSON.
func (a *Analyzer) analyzeFiles(ctx context.Context, pr *types.PullRequest, opts Options) []types.FileAnalysis {
	results := make([]*types.FileAnalysis, len(pr.ChangedFiles))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.workers)
	for i := range pr.ChangedFiles {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// A panic in one file's analysis must not take down the review.
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Panic during file analysis (skipping file)", "component", "review",
						"file", pr.ChangedFiles[idx].Filename, "panic", r)
				}
			}()

			results[idx] = a.analyzeFile(ctx, pr, &pr.ChangedFiles[idx], opts)
		}(i)
	}
	wg.Wait()

	analyses := make([]types.FileAnalysis, 0, len(results))
	for _, fa := range results {
		if fa != nil {
			analyses = append(analyses, *fa)
		}
	}
	return analyses
}

// analyzeFile analyzes one changed file. A nil return means the file was
// skipped (removed, unsupported language, or content unavailable).
func (a *Analyzer) analyzeFile(ctx context.Context, pr *types.PullRequest, file *types.ChangedFile, opts Options) *types.FileAnalysis {
	if file.Status == "removed" {
		return nil
	}

	lang, ok := language.Detect(file.Filename)
	if !ok {
		slog.Debug("Skipping file with unsupported language", "component", "review", "file", file.Filename)
		return nil
	}

	content, err := a.fetcher.FileContent(ctx, pr.Owner, pr.Repository, file.Filename, pr.HeadSHA)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			slog.Debug("File content not available", "component", "review", "file", file.Filename)
		} else {
			slog.Warn("Failed to fetch file content (skipping file)", "component", "review", "file", file.Filename, "error", err)
		}
		return nil
	}

	analysis := &types.FileAnalysis{
		FilePath:     file.Filename,
		Language:     lang,
		LinesAdded:   file.Additions,
		LinesRemoved: file.Deletions,
	}

	analysis.Complexity = a.complexity.Analyze(content, lang, file.Filename)
	analysis.Issues = smellIssues(a.complexity.DetectCodeSmells(content, lang, file.Filename))

	if opts.IncludeSecurity {
		analysis.SecurityFindings = a.security.Scan(content, lang, file.Filename)
		// Secret findings fold into the security finding list.
		for _, sf := range a.secrets.ScanCode(content, file.Filename) {
			analysis.SecurityFindings = append(analysis.SecurityFindings, types.SecurityFinding{
				VulnerabilityType: "Hardcoded Secret",
				Severity:          sf.Severity,
				Description:       sf.Description,
				FilePath:          sf.FilePath,
				LineNumber:        sf.Line,
				Remediation:       sf.Recommendation,
			})
		}
	}

	if a.aiService != nil {
		analysis.Issues = append(analysis.Issues, a.aiIssues(ctx, file, content, lang)...)
	}

	analysis.QualityScore = qualityScore(analysis.Complexity, analysis.Issues, analysis.SecurityFindings)
	return analysis
}

// aiIssues runs AI analysis on one file and converts the top suggestions
// into medium-severity quality issues. AI failure is never fatal.
func (a *Analyzer) aiIssues(ctx context.Context, file *types.ChangedFile, content, lang string) []types.CodeIssue {
	result, err := a.aiService.AnalyzeCode(ctx, ai.AnalysisRequest{
		Code:     truncate(content, maxCodeChars),
		Language: lang,
		FilePath: file.Filename,
		Context:  truncate(file.Patch, maxPatchChars),
	})
	if err != nil {
		slog.Warn("AI analysis failed (continuing without it)", "component", "review", "file", file.Filename, "error", err)
		return nil
	}

	suggestions := result.Suggestions
	if len(suggestions) > maxAISuggestionIssues {
		suggestions = suggestions[:maxAISuggestionIssues]
	}

	issues := make([]types.CodeIssue, 0, len(suggestions))
	for _, suggestion := range suggestions {
		issues = append(issues, types.CodeIssue{
			Category:    types.CategoryQuality,
			Severity:    types.SeverityMedium,
			Title:       "Code Quality Issue",
			Description: suggestion,
			FilePath:    file.Filename,
			Suggestion:  suggestion,
			Confidence:  result.Confidence,
		})
	}
	return issues
}

// smellIssues converts structural code smells into code issues. Smell
// types are snake_case identifiers; issue titles are human-readable.
func smellIssues(smells []types.CodeSmell) []types.CodeIssue {
	issues := make([]types.CodeIssue, 0, len(smells))
	for _, smell := range smells {
		issues = append(issues, types.CodeIssue{
			Category:    types.CategoryComplexity,
			Severity:    smell.Severity,
			Title:       titleCase(smell.SmellType),
			Description: smell.Description,
			FilePath:    smell.FilePath,
			Suggestion:  smell.Suggestion,
			LineStart:   smell.LineStart,
			LineEnd:     smell.LineEnd,
		})
	}
	return issues
}

// truncate caps s at limit bytes, backing off to the previous rune
// boundary so the result is always valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// titleCase converts a snake_case identifier to a spaced title
// ("long_method" -> "Long Method").
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
