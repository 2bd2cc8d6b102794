package review

import (
	"math"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// qualityScore computes a file's quality score on [0,100] from its
// complexity metrics, issues, and security findings. Deductions are
// deliberately coarse: the score steers the merge recommendation, it is
// not a precise measure.
func qualityScore(metrics types.ComplexityMetrics, issues []types.CodeIssue, findings []types.SecurityFinding) float64 {
	score := 100.0

	if metrics.CyclomaticComplexity > highComplexityThreshold {
		over := float64(metrics.CyclomaticComplexity-highComplexityThreshold) * complexityPenaltyPerUnit
		score -= math.Min(maxComplexityPenalty, over)
	}
	if metrics.MaintainabilityIndex < lowMaintainability {
		score -= (lowMaintainability - metrics.MaintainabilityIndex) * maintainabilityFactor
	}

	for _, issue := range issues {
		if w, ok := issueWeights[string(issue.Severity)]; ok {
			score -= w
		} else {
			score -= defaultIssueWeight
		}
	}

	for _, finding := range findings {
		if w, ok := findingWeights[string(finding.Severity)]; ok {
			score -= w
		} else {
			score -= defaultFindingWeight
		}
	}

	return math.Max(0, math.Min(100, score))
}
