package review

import (
	"fmt"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// buildSummary aggregates file analyses into a review summary. Aggregation
// is order-independent: every value is a sum or mean over the file set.
func buildSummary(analyses []types.FileAnalysis) *types.ReviewSummary {
	summary := &types.ReviewSummary{
		TotalFiles: len(analyses),
		Strengths:  []string{},
		Weaknesses: []string{},
	}

	var totalComplexity, totalScore float64
	for i := range analyses {
		fa := &analyses[i]
		summary.TotalLinesChanged += fa.LinesAdded + fa.LinesRemoved
		summary.SecurityFindingsCount += len(fa.SecurityFindings)
		totalComplexity += float64(fa.Complexity.CyclomaticComplexity)
		totalScore += fa.QualityScore

		for _, issue := range fa.Issues {
			switch issue.Severity {
			case types.SeverityCritical:
				summary.CriticalIssues++
			case types.SeverityHigh:
				summary.HighIssues++
			case types.SeverityMedium:
				summary.MediumIssues++
			case types.SeverityLow:
				summary.LowIssues++
			case types.SeverityInfo:
				// Informational issues do not count toward any bucket.
			}
		}
	}

	if len(analyses) > 0 {
		summary.AverageComplexity = totalComplexity / float64(len(analyses))
		summary.OverallQualityScore = totalScore / float64(len(analyses))
	}

	summary.Recommendation = recommend(summary)

	if summary.OverallQualityScore > 80 {
		summary.Strengths = append(summary.Strengths, "High code quality overall")
	}
	if summary.SecurityFindingsCount == 0 {
		summary.Strengths = append(summary.Strengths, "No security vulnerabilities detected")
	}
	if summary.AverageComplexity < 5 {
		summary.Strengths = append(summary.Strengths, "Low code complexity")
	}

	if summary.CriticalIssues > 0 {
		summary.Weaknesses = append(summary.Weaknesses, fmt.Sprintf("%d critical issues found", summary.CriticalIssues))
	}
	if summary.SecurityFindingsCount > 0 {
		summary.Weaknesses = append(summary.Weaknesses, fmt.Sprintf("%d security findings", summary.SecurityFindingsCount))
	}
	if summary.AverageComplexity > 10 {
		summary.Weaknesses = append(summary.Weaknesses, "High code complexity")
	}

	return summary
}

// recommend maps aggregate issue counts to a merge verdict.
func recommend(s *types.ReviewSummary) types.Recommendation {
	switch {
	case s.CriticalIssues > 0 || s.SecurityFindingsCount > maxSecurityFindingsForApproval:
		return types.RecommendRequestChanges
	case s.HighIssues > maxHighIssuesForApproval || s.MediumIssues > maxMediumIssuesForApproval:
		return types.RecommendComment
	default:
		return types.RecommendApprove
	}
}
