package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Timeout applied to every provider call so a hung provider cannot stall a
// review indefinitely.
const completionTimeout = 60 * time.Second

// Returned verbatim when summary generation fails.
const summaryFallback = "Failed to generate summary"

// AnalysisRequest carries one file's code and context to the provider.
type AnalysisRequest struct {
	Code     string
	Language string
	FilePath string
	Context  string // diff excerpt or other surrounding context
}

// AnalysisResult is the structured extraction from a free-text response.
type AnalysisResult struct {
	Insights         string
	CodeImprovements string
	Suggestions      []string
	IssuesFound      int
	Confidence       float64
}

// PRContext is the pull-request metadata included in the summary prompt.
type PRContext struct {
	Title       string
	Author      string
	Description string
}

// Service wraps a Provider with prompt construction and response parsing.
type Service struct {
	provider Provider
	timeout  time.Duration
}

// NewService creates an AI analysis service on top of a provider.
func NewService(provider Provider) *Service {
	return &Service{provider: provider, timeout: completionTimeout}
}

// ProviderName returns the backing provider's name.
func (s *Service) ProviderName() string { return s.provider.Name() }

// AnalyzeCode sends one file's code to the provider and parses the response.
// Transport errors are returned to the caller, which treats them as
// file-scoped; a response that parses to nothing is not an error.
func (s *Service) AnalyzeCode(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildAnalysisPrompt(req)
	content, err := s.provider.Complete(ctx, prompt, analysisTemperature, analysisMaxTokens)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to analyze %s: %w", req.FilePath, err)
	}

	return parseAnalysis(content), nil
}

// ReviewSummary asks the provider for a natural-language review summary.
// It never fails: any provider error yields the fixed fallback text.
func (s *Service) ReviewSummary(ctx context.Context, analyses []types.FileAnalysis, pr PRContext) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildSummaryPrompt(analyses, pr)
	content, err := s.provider.Complete(ctx, prompt, summaryTemperature, summaryMaxTokens)
	if err != nil {
		slog.Warn("Failed to generate review summary (degrading gracefully)", "component", "ai", "provider", s.provider.Name(), "error", err)
		return summaryFallback
	}
	if content == "" {
		return summaryFallback
	}
	return content
}
