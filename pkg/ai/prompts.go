package ai

import (
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// At most this many files are itemized in the review-summary prompt.
const summaryPromptMaxFiles = 10

// buildAnalysisPrompt assembles the per-file analysis prompt. The caller is
// responsible for bounding Code and Context before they reach this builder.
func buildAnalysisPrompt(req AnalysisRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following %s code for quality, security, and complexity issues:\n\n", req.Language)
	sb.WriteString("Code:\n")
	sb.WriteString("```" + req.Language + "\n")
	sb.WriteString(req.Code)
	sb.WriteString("\n```\n\n")

	if req.Context != "" {
		sb.WriteString("Context:\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n\n")
	}
	if req.FilePath != "" {
		fmt.Fprintf(&sb, "File: %s\n\n", req.FilePath)
	}

	sb.WriteString("Please provide:\n")
	sb.WriteString("1. Detailed insights about the code quality, security, and complexity\n")
	sb.WriteString("2. Specific issues found (with line numbers if applicable)\n")
	sb.WriteString("3. Actionable suggestions for improvement\n")
	sb.WriteString("4. Optional: Improved code examples\n\n")
	sb.WriteString("Format your response as structured analysis.")

	return sb.String()
}

// buildSummaryPrompt assembles the review-summary prompt from the first few
// file analyses and the PR context.
func buildSummaryPrompt(analyses []types.FileAnalysis, pr PRContext) string {
	totalIssues := 0
	for _, fa := range analyses {
		totalIssues += len(fa.Issues)
	}

	var sb strings.Builder
	sb.WriteString("Generate a comprehensive code review summary for this pull request:\n\n")
	sb.WriteString("**PR Information:**\n")
	fmt.Fprintf(&sb, "- Title: %s\n", valueOr(pr.Title, "N/A"))
	fmt.Fprintf(&sb, "- Author: %s\n", valueOr(pr.Author, "N/A"))
	fmt.Fprintf(&sb, "- Files Changed: %d\n", len(analyses))
	fmt.Fprintf(&sb, "- Total Issues Found: %d\n", totalIssues)
	if pr.Description != "" {
		fmt.Fprintf(&sb, "- Description: %s\n", pr.Description)
	}
	sb.WriteString("\n**Analysis Results:**\n")

	for i, fa := range analyses {
		if i >= summaryPromptMaxFiles {
			break
		}
		fmt.Fprintf(&sb, "\n- %s: Quality Score %.1f/100, %d issues", fa.FilePath, fa.QualityScore, len(fa.Issues))
	}

	sb.WriteString("\n\nPlease provide:\n")
	sb.WriteString("1. Executive Summary (2-3 sentences)\n")
	sb.WriteString("2. Key Strengths (2-3 points)\n")
	sb.WriteString("3. Main Concerns (2-3 points)\n")
	sb.WriteString("4. Critical Issues to Address\n")
	sb.WriteString("5. Overall Recommendation (Approve, Request Changes, or Comment)\n\n")
	sb.WriteString("Keep the summary professional, concise, and actionable.\n")

	return sb.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
