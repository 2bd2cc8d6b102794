// Package complexity computes per-file complexity metrics and detects
// structural code smells. Analysis never fails: malformed source falls back
// to default metrics.
package complexity

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Analysis thresholds and fallback values.
const (
	defaultMaintainability = 50.0
	genericLinesPerBranch  = 20  // generic heuristic: one decision path per 20 lines
	longMethodLines        = 100 // lines before a file counts as a long method
	maxParameters          = 5   // parameters before a signature is flagged
	deepNestingDepth       = 4   // brace depth before nesting is flagged
)

// Analyzer computes complexity metrics with a per-language strategy.
// The zero value is ready to use.
type Analyzer struct{}

// New creates a new complexity analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// strategy is one language family's metric computation. Implementations must
// not return partial results: on failure they return ok=false and the caller
// falls back to default metrics.
type strategy func(code, filePath string) (types.ComplexityMetrics, bool)

// strategyFor selects the analysis strategy for a language tag. Languages
// without a dedicated strategy get the generic line-count heuristic.
func (a *Analyzer) strategyFor(lang string) strategy {
	switch strings.ToLower(lang) {
	case "go":
		return analyzeGo
	case "javascript", "typescript", "java", "c", "cpp", "csharp":
		return analyzeBraceLanguage
	default:
		return analyzeGeneric
	}
}

// Analyze computes complexity metrics for one file. It never returns an
// error: a source text the strategy cannot parse yields default metrics.
func (a *Analyzer) Analyze(code, lang, filePath string) types.ComplexityMetrics {
	metrics, ok := a.strategyFor(lang)(code, filePath)
	if !ok {
		slog.Warn("Complexity analysis fell back to default metrics", "component", "complexity", "file", filePath, "language", lang)
		return defaultMetrics(code)
	}
	return metrics
}

// Decision-point patterns for the brace-language heuristic.
var (
	reIf      = regexp.MustCompile(`\bif\b`)
	reElseIf  = regexp.MustCompile(`\belse\s+if\b`)
	reWhile   = regexp.MustCompile(`\bwhile\b`)
	reFor     = regexp.MustCompile(`\bfor\b`)
	reCase    = regexp.MustCompile(`\bcase\b`)
	reCatch   = regexp.MustCompile(`\bcatch\b`)
	reAnd     = regexp.MustCompile(`&&`)
	reOr      = regexp.MustCompile(`\|\|`)
	reTernary = regexp.MustCompile(`\?`)
)

// analyzeBraceLanguage approximates metrics for C-family languages with
// keyword counts and a brace-depth heuristic.
func analyzeBraceLanguage(code, _ string) (types.ComplexityMetrics, bool) {
	cyclomatic := 1
	cyclomatic += len(reIf.FindAllString(code, -1))
	cyclomatic += len(reElseIf.FindAllString(code, -1))
	cyclomatic += len(reWhile.FindAllString(code, -1))
	cyclomatic += len(reFor.FindAllString(code, -1))
	cyclomatic += len(reCase.FindAllString(code, -1))
	cyclomatic += len(reCatch.FindAllString(code, -1))
	cyclomatic += len(reAnd.FindAllString(code, -1))
	cyclomatic += len(reOr.FindAllString(code, -1))
	cyclomatic += len(reTernary.FindAllString(code, -1))

	cognitive := cyclomatic + braceNestingDepth(code)*2
	loc := linesOfCode(code, "//", "/*")

	return types.ComplexityMetrics{
		CyclomaticComplexity: cyclomatic,
		CognitiveComplexity:  cognitive,
		LinesOfCode:          loc,
		MaintainabilityIndex: maintainabilityIndex(cyclomatic, loc),
	}, true
}

// analyzeGeneric is the fallback for languages without a dedicated strategy.
func analyzeGeneric(code, _ string) (types.ComplexityMetrics, bool) {
	loc := nonBlankLines(code)
	cyclomatic := max(1, loc/genericLinesPerBranch)
	maintainability := math.Max(0, 100-float64(loc)/10)

	return types.ComplexityMetrics{
		CyclomaticComplexity: cyclomatic,
		CognitiveComplexity:  cyclomatic,
		LinesOfCode:          loc,
		MaintainabilityIndex: maintainability,
	}, true
}

// braceNestingDepth returns the maximum `{`/`}` nesting depth in the text.
func braceNestingDepth(code string) int {
	maxDepth := 0
	depth := 0
	for _, ch := range code {
		switch ch {
		case '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// linesOfCode counts non-blank lines that do not start with one of the given
// comment prefixes.
func linesOfCode(code string, commentPrefixes ...string) int {
	count := 0
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		comment := false
		for _, prefix := range commentPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				comment = true
				break
			}
		}
		if !comment {
			count++
		}
	}
	return count
}

// nonBlankLines counts lines with any non-whitespace content.
func nonBlankLines(code string) int {
	return linesOfCode(code)
}

// maintainabilityIndex computes the simplified maintainability index:
// 171 - 5.2*ln(2*LOC) - 0.23*cyclomatic - 16.2*ln(LOC), clamped to [0,100].
// Halstead volume is deliberately approximated by 2*LOC.
func maintainabilityIndex(cyclomatic, loc int) float64 {
	if loc == 0 {
		return 100.0
	}
	volume := math.Max(1, float64(loc)*2)
	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(cyclomatic) - 16.2*math.Log(math.Max(1, float64(loc)))
	mi = math.Max(0, math.Min(100, mi))
	return math.Round(mi*100) / 100
}

// defaultMetrics is the fallback when a strategy cannot parse the source.
func defaultMetrics(code string) types.ComplexityMetrics {
	return types.ComplexityMetrics{
		CyclomaticComplexity: 1,
		CognitiveComplexity:  1,
		LinesOfCode:          nonBlankLines(code),
		MaintainabilityIndex: defaultMaintainability,
	}
}
