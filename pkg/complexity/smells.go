package complexity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Function-signature patterns per language, with one capture group holding
// the parameter list.
var signaturePatterns = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`def\s+\w+\((.*?)\)`),
	"go":         regexp.MustCompile(`func(?:\s+\([^)]*\))?\s+\w+\((.*?)\)`),
	"javascript": regexp.MustCompile(`function\s*\w*\s*\((.*?)\)`),
	"typescript": regexp.MustCompile(`function\s*\w*\s*\((.*?)\)`),
	"java":       regexp.MustCompile(`(?:public|private|protected)\s+[\w<>\[\], ]+\s+\w+\s*\((.*?)\)`),
}

// DetectCodeSmells flags structural problems in one file. It is a pure
// function of the source text: identical input yields identical smells.
func (a *Analyzer) DetectCodeSmells(code, lang, filePath string) []types.CodeSmell {
	var smells []types.CodeSmell
	lines := strings.Split(code, "\n")

	if len(lines) > longMethodLines {
		smells = append(smells, types.CodeSmell{
			SmellType:   "long_method",
			Description: "Method/function is too long (>100 lines)",
			FilePath:    filePath,
			LineStart:   1,
			LineEnd:     len(lines),
			Severity:    types.SeverityMedium,
			Suggestion:  "Break down into smaller, focused functions",
		})
	}

	if pattern, ok := signaturePatterns[strings.ToLower(lang)]; ok {
		for i, line := range lines {
			match := pattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			if len(strings.Split(match[1], ",")) > maxParameters {
				smells = append(smells, types.CodeSmell{
					SmellType:   "too_many_parameters",
					Description: "Function has too many parameters (>5)",
					FilePath:    filePath,
					LineStart:   i + 1,
					LineEnd:     i + 1,
					Severity:    types.SeverityMedium,
					Suggestion:  "Consider using a parameter object or reducing parameters",
				})
			}
		}
	}

	if depth := braceNestingDepth(code); depth > deepNestingDepth {
		smells = append(smells, types.CodeSmell{
			SmellType:   "deep_nesting",
			Description: fmt.Sprintf("Code has deep nesting (%d levels)", depth),
			FilePath:    filePath,
			LineStart:   1,
			LineEnd:     len(lines),
			Severity:    types.SeverityHigh,
			Suggestion:  "Extract nested logic into separate functions",
		})
	}

	return smells
}
