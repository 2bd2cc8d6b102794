package complexity

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestAnalyzeGoSimpleFunction(t *testing.T) {
	code := `package main

func add(a, b int) int {
	return a + b
}
`
	a := New()
	m := a.Analyze(code, "go", "add.go")

	if m.CyclomaticComplexity != 1 {
		t.Errorf("cyclomatic = %d, want 1", m.CyclomaticComplexity)
	}
	if m.CognitiveComplexity != 0 {
		t.Errorf("cognitive = %d, want 0", m.CognitiveComplexity)
	}
	if m.MaintainabilityIndex < 0 || m.MaintainabilityIndex > 100 {
		t.Errorf("maintainability = %f, want [0,100]", m.MaintainabilityIndex)
	}
}

func TestAnalyzeGoDecisionPoints(t *testing.T) {
	code := `package main

func classify(n int) string {
	if n < 0 && n > -10 {
		return "small negative"
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			continue
		}
	}
	return "other"
}
`
	a := New()
	m := a.Analyze(code, "go", "classify.go")

	// 1 base + outer if + && + for + inner if
	if m.CyclomaticComplexity != 5 {
		t.Errorf("cyclomatic = %d, want 5", m.CyclomaticComplexity)
	}
	// Nested decision points must cost more than flat ones.
	if m.CognitiveComplexity <= 3 {
		t.Errorf("cognitive = %d, want > 3", m.CognitiveComplexity)
	}
}

func TestAnalyzeGoParseFailureFallsBack(t *testing.T) {
	code := "package main\n\nfunc broken( {\n\tnot go at all\n"
	a := New()
	m := a.Analyze(code, "go", "broken.go")

	if m.CyclomaticComplexity != 1 {
		t.Errorf("cyclomatic = %d, want default 1", m.CyclomaticComplexity)
	}
	if m.CognitiveComplexity != 1 {
		t.Errorf("cognitive = %d, want default 1", m.CognitiveComplexity)
	}
	if m.MaintainabilityIndex != 50.0 {
		t.Errorf("maintainability = %f, want default 50.0", m.MaintainabilityIndex)
	}
	if m.LinesOfCode != 3 {
		t.Errorf("loc = %d, want 3 non-blank lines", m.LinesOfCode)
	}
}

func TestAnalyzeBraceLanguage(t *testing.T) {
	code := `function check(x) {
	// a comment line
	if (x > 0 && x < 10) {
		while (x--) {
			console.log(x);
		}
	}
	return x > 5 ? "big" : "small";
}
`
	a := New()
	m := a.Analyze(code, "javascript", "check.js")

	// 1 base + if + && + while + ?
	if m.CyclomaticComplexity != 5 {
		t.Errorf("cyclomatic = %d, want 5", m.CyclomaticComplexity)
	}
	// cognitive = cyclomatic + 2 * max brace depth (3)
	if m.CognitiveComplexity != 11 {
		t.Errorf("cognitive = %d, want 11", m.CognitiveComplexity)
	}
	if m.LinesOfCode != 8 {
		t.Errorf("loc = %d, want 8 (comment excluded)", m.LinesOfCode)
	}
}

func TestAnalyzeGenericFallback(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	a := New()
	m := a.Analyze(sb.String(), "lua", "script.lua")

	if m.LinesOfCode != 60 {
		t.Errorf("loc = %d, want 60", m.LinesOfCode)
	}
	if m.CyclomaticComplexity != 3 {
		t.Errorf("cyclomatic = %d, want 3 (60/20)", m.CyclomaticComplexity)
	}
	if m.MaintainabilityIndex != 94.0 {
		t.Errorf("maintainability = %f, want 94.0", m.MaintainabilityIndex)
	}
}

func TestAnalyzeNeverPanicsAndBounds(t *testing.T) {
	inputs := []string{
		"",
		"\x00\xff garbage",
		strings.Repeat("}", 500),
		strings.Repeat("if ", 1000),
		"def f(:\n  pass",
	}
	langs := []string{"go", "python", "javascript", "java", "cobol", ""}

	a := New()
	for _, code := range inputs {
		for _, lang := range langs {
			m := a.Analyze(code, lang, "fuzz.txt")
			if m.CyclomaticComplexity < 1 {
				t.Errorf("lang %q: cyclomatic = %d, want >= 1", lang, m.CyclomaticComplexity)
			}
			if m.CognitiveComplexity < 0 {
				t.Errorf("lang %q: cognitive = %d, want >= 0", lang, m.CognitiveComplexity)
			}
			if m.MaintainabilityIndex < 0 || m.MaintainabilityIndex > 100 {
				t.Errorf("lang %q: maintainability = %f, want [0,100]", lang, m.MaintainabilityIndex)
			}
		}
	}
}

// longGoFunction builds a single straight-line function body of the given
// total line count with no decision points.
func longGoFunction(totalLines int) string {
	var sb strings.Builder
	sb.WriteString("package main\n\nfunc straight() {\n")
	for i := 0; i < totalLines-5; i++ {
		fmt.Fprintf(&sb, "\t_ = %d\n", i)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func TestDetectCodeSmellsLongMethod(t *testing.T) {
	code := longGoFunction(150)
	a := New()

	smells := a.DetectCodeSmells(code, "go", "long.go")

	var typesSeen []string
	for _, s := range smells {
		typesSeen = append(typesSeen, s.SmellType)
	}
	if !contains(typesSeen, "long_method") {
		t.Errorf("expected long_method smell, got %v", typesSeen)
	}
	if contains(typesSeen, "too_many_parameters") {
		t.Errorf("unexpected too_many_parameters smell: %v", typesSeen)
	}

	m := a.Analyze(code, "go", "long.go")
	if m.CyclomaticComplexity != 1 {
		t.Errorf("cyclomatic = %d, want 1 for branch-free function", m.CyclomaticComplexity)
	}
}

func TestDetectCodeSmellsTooManyParameters(t *testing.T) {
	code := `package main

func process(a, b, c, d, e, f, g int) int {
	return a + b + c + d + e + f + g
}
`
	a := New()
	smells := a.DetectCodeSmells(code, "go", "params.go")

	found := false
	for _, s := range smells {
		if s.SmellType == "too_many_parameters" {
			found = true
			if s.LineStart != 3 {
				t.Errorf("line = %d, want 3", s.LineStart)
			}
		}
	}
	if !found {
		t.Error("expected too_many_parameters smell")
	}
}

func TestDetectCodeSmellsDeepNesting(t *testing.T) {
	code := `function deep(a) {
	if (a) {
		if (a > 1) {
			if (a > 2) {
				if (a > 3) {
					return a;
				}
			}
		}
	}
}
`
	a := New()
	smells := a.DetectCodeSmells(code, "javascript", "deep.js")

	found := false
	for _, s := range smells {
		if s.SmellType == "deep_nesting" {
			found = true
			if s.Severity != "high" {
				t.Errorf("severity = %s, want high", s.Severity)
			}
		}
	}
	if !found {
		t.Error("expected deep_nesting smell")
	}
}

func TestDetectCodeSmellsIdempotent(t *testing.T) {
	code := longGoFunction(120)
	a := New()

	first := a.DetectCodeSmells(code, "go", "same.go")
	second := a.DetectCodeSmells(code, "go", "same.go")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("smell detection is not idempotent: %v vs %v", first, second)
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
