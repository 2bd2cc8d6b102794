package security

import (
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

func TestScanEvalYieldsCodeInjection(t *testing.T) {
	code := "import os\n\nresult = eval(user_input)\n"

	findings := New().Scan(code, "python", "app.py")

	var match *types.SecurityFinding
	for i := range findings {
		if findings[i].VulnerabilityType == "Code Injection" {
			match = &findings[i]
			break
		}
	}
	if match == nil {
		t.Fatalf("expected a Code Injection finding, got %v", findings)
	}
	if match.CWE != "CWE-94" {
		t.Errorf("cwe = %s, want CWE-94", match.CWE)
	}
	if match.LineNumber != 3 {
		t.Errorf("line = %d, want 3", match.LineNumber)
	}
	if match.OWASPCategory != "A03:2021 – Injection" {
		t.Errorf("owasp = %s", match.OWASPCategory)
	}
	if len(match.References) == 0 || match.References[0] != "https://cwe.mitre.org/data/definitions/94.html" {
		t.Errorf("references = %v", match.References)
	}
}

func TestScanOSSystemYieldsCommandInjection(t *testing.T) {
	code := "import os\n\ndef run(cmd):\n    os.system(\"ls \" + cmd)\n"

	findings := New().Scan(code, "python", "run.py")

	var match *types.SecurityFinding
	for i := range findings {
		if findings[i].VulnerabilityType == "Command Injection" {
			match = &findings[i]
			break
		}
	}
	if match == nil {
		t.Fatalf("expected a Command Injection finding, got %v", findings)
	}
	if match.CWE != "CWE-78" {
		t.Errorf("cwe = %s, want CWE-78", match.CWE)
	}
	if match.LineNumber != 4 {
		t.Errorf("line = %d, want 4", match.LineNumber)
	}
	if match.Severity != types.SeverityCritical {
		t.Errorf("severity = %s, want critical", match.Severity)
	}
}

func TestScanCaseInsensitive(t *testing.T) {
	findings := New().Scan("EVAL( x )", "python", "a.py")
	if len(findings) == 0 {
		t.Error("expected case-insensitive match for EVAL(")
	}
}

func TestScanUnknownLanguageOnlyUniversalChecks(t *testing.T) {
	code := `api_key = "abcdef12345678901234567890"
digest = md5(data)
plain line
`
	findings := New().Scan(code, "fortran", "legacy.f90")

	wantTypes := map[string]bool{"Hardcoded Secret": false, "Weak Cryptography": false}
	for _, f := range findings {
		if _, ok := wantTypes[f.VulnerabilityType]; !ok {
			t.Errorf("unexpected finding type %q for unknown language", f.VulnerabilityType)
		}
		wantTypes[f.VulnerabilityType] = true
	}
	for typ, seen := range wantTypes {
		if !seen {
			t.Errorf("expected universal %s finding", typ)
		}
	}
}

func TestScanWeakCryptoTokens(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"h := md5.Sum(data)", "MD5 is cryptographically broken"},
		{"// switch from SHA-1 to SHA-256", "SHA-1 is deprecated for security use"},
		{"cipher = DES.new(key)", "DES has insufficient key length"},
		{"stream = RC4(key)", "RC4 is cryptographically broken"},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			findings := s.Scan(tt.line, "ruby", "crypto.rb")
			found := false
			for _, f := range findings {
				if f.Description == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("Scan(%q): missing weak-crypto finding %q", tt.line, tt.want)
			}
		})
	}
}

func TestScanGoRules(t *testing.T) {
	code := `tls := &tls.Config{InsecureSkipVerify: true}`
	findings := New().Scan(code, "go", "client.go")

	found := false
	for _, f := range findings {
		if f.VulnerabilityType == "SSL Verification Disabled" && f.CWE == "CWE-295" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected InsecureSkipVerify finding, got %v", findings)
	}
}

func TestScanNeverPanics(t *testing.T) {
	inputs := []string{"", "\x00\xff", strings.Repeat("eval(", 10000)}
	s := New()
	for _, code := range inputs {
		for _, lang := range []string{"python", "go", "", "unknown"} {
			_ = s.Scan(code, lang, "fuzz")
		}
	}
}

func TestScoreEmptyIsHundred(t *testing.T) {
	if got := Score(nil); got != 100.0 {
		t.Errorf("Score(nil) = %f, want 100", got)
	}
	if got := Score([]types.SecurityFinding{}); got != 100.0 {
		t.Errorf("Score([]) = %f, want 100", got)
	}
}

func TestScoreStrictlyDecreasesWithCriticals(t *testing.T) {
	critical := types.SecurityFinding{Severity: types.SeverityCritical}

	scores := []float64{
		Score(nil),
		Score([]types.SecurityFinding{critical}),
		Score([]types.SecurityFinding{critical, critical}),
	}

	want := []float64{100.0, 75.0, 50.0}
	for i := range scores {
		if scores[i] != want[i] {
			t.Errorf("score[%d] = %f, want %f", i, scores[i], want[i])
		}
	}
}

func TestScoreMonotonicNonIncreasing(t *testing.T) {
	severities := []types.Severity{
		types.SeverityInfo, types.SeverityLow, types.SeverityMedium,
		types.SeverityHigh, types.SeverityCritical, types.Severity("bogus"),
	}

	var findings []types.SecurityFinding
	prev := Score(findings)
	for _, sev := range severities {
		findings = append(findings, types.SecurityFinding{Severity: sev})
		got := Score(findings)
		if got > prev {
			t.Errorf("score increased from %f to %f after adding %s", prev, got, sev)
		}
		prev = got
	}
}

func TestScoreFloorsAtZero(t *testing.T) {
	findings := make([]types.SecurityFinding, 10)
	for i := range findings {
		findings[i] = types.SecurityFinding{Severity: types.SeverityCritical}
	}
	if got := Score(findings); got != 0 {
		t.Errorf("score = %f, want 0", got)
	}
}

func TestOWASPCategoryUnknown(t *testing.T) {
	if got := owaspCategory("CWE-9999"); got != "Unknown" {
		t.Errorf("owaspCategory(CWE-9999) = %q, want Unknown", got)
	}
}
