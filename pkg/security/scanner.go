// Package security matches source text against per-language vulnerability
// rule tables and computes a security score. Scanning never fails on
// malformed input; a language without a table gets only the universal checks.
package security

import (
	"log/slog"
	"math"
	"strings"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Severity deductions for the security score.
var scoreWeights = map[types.Severity]int{
	types.SeverityCritical: 25,
	types.SeverityHigh:     15,
	types.SeverityMedium:   8,
	types.SeverityLow:      3,
	types.SeverityInfo:     1,
}

// Deduction for a finding whose severity is not in the weight table.
const defaultScoreWeight = 5

// Scanner matches source text against the vulnerability rule tables.
// The zero value is ready to use; tables are package-level and compiled once.
type Scanner struct{}

// New creates a new security scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan runs the language's rule table plus the universal hardcoded-secret
// and weak-crypto checks over every line of the file.
func (s *Scanner) Scan(code, lang, filePath string) []types.SecurityFinding {
	findings := []types.SecurityFinding{}
	lines := strings.Split(code, "\n")

	for _, r := range languageRules[strings.ToLower(lang)] {
		for i, line := range lines {
			if !r.pattern.MatchString(line) {
				continue
			}
			findings = append(findings, types.SecurityFinding{
				VulnerabilityType: r.Type,
				CWE:               r.CWE,
				OWASPCategory:     owaspCategory(r.CWE),
				Severity:          r.Severity,
				Description:       r.Description,
				FilePath:          filePath,
				LineNumber:        i + 1,
				Remediation:       r.Remediation,
				References:        []string{cweReference(r.CWE)},
			})
			slog.Info("Security finding", "component", "security", "type", r.Type, "file", filePath, "line", i+1)
		}
	}

	findings = append(findings, s.scanSecretShapes(lines, filePath)...)
	findings = append(findings, s.scanWeakCrypto(lines, filePath)...)

	return findings
}

// scanSecretShapes applies the universal hardcoded-secret patterns,
// regardless of the file's language.
func (*Scanner) scanSecretShapes(lines []string, filePath string) []types.SecurityFinding {
	var findings []types.SecurityFinding
	for i, line := range lines {
		for _, shape := range secretShapes {
			if !shape.pattern.MatchString(line) {
				continue
			}
			findings = append(findings, types.SecurityFinding{
				VulnerabilityType: "Hardcoded Secret",
				CWE:               "CWE-798",
				OWASPCategory:     "A02:2021 – Cryptographic Failures",
				Severity:          types.SeverityCritical,
				Description:       "Hardcoded " + shape.label + " detected",
				FilePath:          filePath,
				LineNumber:        i + 1,
				Remediation:       "Move secrets to environment variables or secure secret management",
				References:        []string{"https://owasp.org/Top10/A02_2021-Cryptographic_Failures/"},
			})
		}
	}
	return findings
}

// scanWeakCrypto flags deprecated cryptographic primitives by token match,
// regardless of the file's language.
func (*Scanner) scanWeakCrypto(lines []string, filePath string) []types.SecurityFinding {
	var findings []types.SecurityFinding
	for i, line := range lines {
		for _, wc := range weakCryptoTokens {
			if !wc.pattern.MatchString(line) {
				continue
			}
			findings = append(findings, types.SecurityFinding{
				VulnerabilityType: "Weak Cryptography",
				CWE:               "CWE-327",
				OWASPCategory:     "A02:2021 – Cryptographic Failures",
				Severity:          types.SeverityMedium,
				Description:       wc.description,
				FilePath:          filePath,
				LineNumber:        i + 1,
				Remediation:       "Use modern cryptographic algorithms (e.g., AES-256, SHA-256)",
				References:        []string{"https://owasp.org/Top10/A02_2021-Cryptographic_Failures/"},
			})
		}
	}
	return findings
}

// owaspCategory maps a CWE id to its OWASP Top-10 2021 category.
func owaspCategory(cwe string) string {
	if category, ok := cweToOWASP[cwe]; ok {
		return category
	}
	return "Unknown"
}

// cweReference builds the MITRE reference URL for a CWE id ("CWE-94" ->
// ".../definitions/94.html").
func cweReference(cwe string) string {
	number := strings.TrimPrefix(cwe, "CWE-")
	return "https://cwe.mitre.org/data/definitions/" + number + ".html"
}

// Score computes the security score for a set of findings: 100 with no
// findings, otherwise 100 minus the per-severity deductions, floored at 0.
func Score(findings []types.SecurityFinding) float64 {
	if len(findings) == 0 {
		return 100.0
	}

	deduction := 0
	for _, f := range findings {
		if w, ok := scoreWeights[f.Severity]; ok {
			deduction += w
		} else {
			deduction += defaultScoreWeight
		}
	}

	score := math.Max(0, float64(100-deduction))
	return math.Round(score*100) / 100
}
