package ai

import "strings"

// At most this many suggestions are extracted from one response.
const maxSuggestions = 10

// Confidence assigned to heuristically extracted suggestions.
const parsedConfidence = 0.85

// parseAnalysis extracts insights, suggestions, and an issue count from a
// free-text model response by scanning for section headers and bullet lines.
// This is best-effort by design: a response with no recognizable structure
// degrades to the raw text as insight with zero suggestions.
func parseAnalysis(content string) AnalysisResult {
	var (
		insights     []string
		suggestions  []string
		issuesFound  int
		codeBlock    []string
		improvements string
		section      string
		inCodeBlock  bool
	)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		if strings.Contains(line, "```") {
			if inCodeBlock {
				improvements = strings.Join(codeBlock, "\n")
				codeBlock = nil
			}
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			codeBlock = append(codeBlock, line)
			continue
		}
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "insight") || strings.Contains(lower, "analysis"):
			section = "insights"
		case strings.Contains(lower, "suggestion") || strings.Contains(lower, "recommendation"):
			section = "suggestions"
		case strings.Contains(lower, "issue") || strings.Contains(lower, "problem"):
			section = "issues"
			issuesFound++
		}

		if !isBulletLine(line) {
			continue
		}
		cleaned := strings.TrimLeft(line, "-*0123456789. ")
		switch section {
		case "insights":
			insights = append(insights, cleaned)
		case "suggestions":
			suggestions = append(suggestions, cleaned)
		case "issues":
			suggestions = append(suggestions, "Issue: "+cleaned)
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	insightText := strings.Join(insights, "\n")
	if insightText == "" {
		insightText = content
	}

	return AnalysisResult{
		Insights:         insightText,
		IssuesFound:      issuesFound,
		Suggestions:      suggestions,
		CodeImprovements: improvements,
		Confidence:       parsedConfidence,
	}
}

// isBulletLine reports whether a line looks like a list item.
func isBulletLine(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
		return true
	}
	return line[0] >= '0' && line[0] <= '9'
}
