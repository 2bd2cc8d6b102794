// Package secrets detects credential-shaped literals in source text.
// Matched values are masked before they leave the scanner; the raw secret
// never appears in any finding.
package secrets

import (
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Severity weights for the repository risk score.
var riskWeights = map[types.Severity]int{
	types.SeverityCritical: 25,
	types.SeverityHigh:     15,
	types.SeverityMedium:   5,
	types.SeverityLow:      2,
}

// Line prefixes treated as comments and skipped.
var commentPrefixes = []string{"#", "//", "/*", "*"}

// Scanner scans code for hardcoded secrets. The zero value is ready to use;
// patterns are package-level and compiled once.
type Scanner struct{}

// New creates a new secrets scanner.
func New() *Scanner {
	return &Scanner{}
}

// ScanCode scans one file's source text. Comment lines are skipped, matches
// overlapping the false-positive list are discarded, and every surviving
// match is reported with a masked value.
func (s *Scanner) ScanCode(code, filePath string) []types.SecretFinding {
	findings := []types.SecretFinding{}

	for lineNum, line := range strings.Split(code, "\n") {
		if isCommentLine(line) {
			continue
		}
		for _, p := range secretPatterns {
			for _, match := range p.pattern.FindAllString(line, -1) {
				if isFalsePositive(match) {
					continue
				}
				findings = append(findings, types.SecretFinding{
					SecretType:     p.name,
					Severity:       p.severity,
					Description:    p.description,
					FilePath:       filePath,
					Line:           lineNum + 1,
					MaskedText:     maskSecret(match),
					Recommendation: recommendationFor(p.name),
				})
				slog.Info("Secret detected", "component", "secrets", "type", p.name, "file", filePath, "line", lineNum+1)
			}
		}
	}

	return findings
}

// RepositorySummary aggregates secret findings across a set of files.
type RepositorySummary struct {
	SeverityCounts map[types.Severity]int `json:"severity_counts"`
	Findings       []types.SecretFinding  `json:"findings"`
	TotalSecrets   int                    `json:"total_secrets"`
	FilesScanned   int                    `json:"files_scanned"`
	RiskScore      int                    `json:"risk_score"`
}

// ScanRepository runs ScanCode over every file and aggregates the results.
func (s *Scanner) ScanRepository(fileContents map[string]string) RepositorySummary {
	var all []types.SecretFinding
	for filePath, content := range fileContents {
		all = append(all, s.ScanCode(content, filePath)...)
	}

	counts := map[types.Severity]int{
		types.SeverityCritical: 0,
		types.SeverityHigh:     0,
		types.SeverityMedium:   0,
		types.SeverityLow:      0,
	}
	for _, f := range all {
		counts[f.Severity]++
	}

	return RepositorySummary{
		TotalSecrets:   len(all),
		SeverityCounts: counts,
		Findings:       all,
		FilesScanned:   len(fileContents),
		RiskScore:      riskScore(counts),
	}
}

// riskScore is the capped weighted sum of findings by severity.
func riskScore(counts map[types.Severity]int) int {
	score := 0
	for severity, count := range counts {
		score += count * riskWeights[severity]
	}
	return min(100, score)
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// isFalsePositive reports whether a match overlaps a placeholder-looking
// value that should be suppressed.
func isFalsePositive(match string) bool {
	for _, p := range falsePositivePatterns {
		if p.MatchString(match) {
			return true
		}
	}
	return false
}

// maskSecret replaces the middle of a matched secret with stars, keeping the
// first and last four characters. Short matches are fully starred.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// Per-type remediation text; types without an entry get the generic advice.
var recommendations = map[string]string{
	"aws_access_key":  "Use AWS IAM roles or AWS Secrets Manager",
	"github_token":    "Use GitHub Actions secrets or environment variables",
	"generic_api_key": "Store in environment variables or secret management service",
	"private_key":     "Never commit private keys. Use secure key storage",
	"password_in_url": "Use environment variables for credentials",
	"database_url":    "Store database credentials in environment variables",
}

func recommendationFor(secretType string) string {
	if r, ok := recommendations[secretType]; ok {
		return r
	}
	return "Store secrets in environment variables or secret management service"
}
