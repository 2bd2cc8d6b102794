package security

import (
	"regexp"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// Rule is one vulnerability pattern for a language. Patterns are matched
// line-by-line, case-insensitively; each match yields one finding.
type Rule struct {
	pattern     *regexp.Regexp
	Type        string
	CWE         string
	Severity    types.Severity
	Description string
	Remediation string
}

func rule(pattern, vulnType, cwe string, severity types.Severity, description, remediation string) Rule {
	return Rule{
		pattern:     regexp.MustCompile(`(?i)` + pattern),
		Type:        vulnType,
		CWE:         cwe,
		Severity:    severity,
		Description: description,
		Remediation: remediation,
	}
}

// languageRules holds the per-language vulnerability tables, compiled once at
// package init. Languages absent from this map still get the universal
// hardcoded-secret and weak-crypto checks.
var languageRules = map[string][]Rule{
	"python": {
		rule(`eval\s*\(`, "Code Injection", "CWE-94", types.SeverityCritical,
			"Use of eval() can lead to code injection",
			"Avoid eval(). Use ast.literal_eval() for safe evaluation or refactor to avoid dynamic code execution"),
		rule(`exec\s*\(`, "Code Injection", "CWE-94", types.SeverityCritical,
			"Use of exec() can lead to code injection",
			"Avoid exec(). Refactor code to avoid dynamic code execution"),
		rule(`pickle\.loads?\s*\(`, "Insecure Deserialization", "CWE-502", types.SeverityHigh,
			"Pickle can execute arbitrary code during deserialization",
			"Use JSON or other safe serialization formats. If pickle is necessary, validate and sanitize input"),
		rule(`subprocess\.(call|run|Popen).*shell\s*=\s*True`, "Command Injection", "CWE-78", types.SeverityCritical,
			"Shell=True in subprocess can lead to command injection",
			"Use shell=False and pass commands as list of arguments"),
		rule(`os\.(system|popen)\s*\(`, "Command Injection", "CWE-78", types.SeverityCritical,
			"os.system passes its argument to a shell and can lead to command injection",
			"Use subprocess with a list of arguments and shell=False"),
		rule(`password\s*=\s*['"][^'"]+['"]`, "Hardcoded Credentials", "CWE-798", types.SeverityHigh,
			"Hardcoded password detected",
			"Store credentials in environment variables or secure credential management system"),
		rule(`SECRET_KEY\s*=\s*['"][^'"]+['"]`, "Hardcoded Secret", "CWE-798", types.SeverityHigh,
			"Hardcoded secret key detected",
			"Store secret keys in environment variables"),
		rule(`requests\.(get|post|put|delete)\(.*verify\s*=\s*False`, "SSL Verification Disabled", "CWE-295", types.SeverityHigh,
			"SSL certificate verification is disabled",
			"Enable SSL verification or provide proper certificate path"),
		rule(`\.format\([^)]*user[^)]*\)`, "SQL Injection Risk", "CWE-89", types.SeverityHigh,
			"Potential SQL injection through string formatting",
			"Use parameterized queries or ORM"),
	},
	"javascript": {
		rule(`eval\s*\(`, "Code Injection", "CWE-94", types.SeverityCritical,
			"Use of eval() can lead to code injection",
			"Avoid eval(). Use JSON.parse() for JSON strings or refactor logic"),
		rule(`innerHTML\s*=`, "XSS Vulnerability", "CWE-79", types.SeverityHigh,
			"innerHTML can lead to XSS attacks",
			"Use textContent or sanitize input before setting innerHTML"),
		rule(`dangerouslySetInnerHTML`, "XSS Vulnerability", "CWE-79", types.SeverityHigh,
			"dangerouslySetInnerHTML can lead to XSS attacks",
			"Sanitize HTML content using DOMPurify or similar library"),
		rule(`document\.write\s*\(`, "XSS Vulnerability", "CWE-79", types.SeverityMedium,
			"document.write can lead to XSS attacks",
			"Use DOM manipulation methods instead"),
		rule(`Math\.random\s*\(`, "Weak Random", "CWE-330", types.SeverityMedium,
			"Math.random() is not cryptographically secure",
			"Use crypto.getRandomValues() for security-sensitive operations"),
		rule(`localStorage\.(setItem|getItem)`, "Sensitive Data Storage", "CWE-922", types.SeverityMedium,
			"Sensitive data may be stored in localStorage",
			"Avoid storing sensitive data in localStorage. Use secure server-side storage"),
	},
	"java": {
		rule(`Runtime\.getRuntime\(\)\.exec`, "Command Injection", "CWE-78", types.SeverityCritical,
			"Runtime.exec() can lead to command injection",
			"Validate and sanitize all inputs. Use ProcessBuilder with proper arguments"),
		rule(`Statement\s+.*=.*createStatement`, "SQL Injection", "CWE-89", types.SeverityCritical,
			"Using Statement can lead to SQL injection",
			"Use PreparedStatement with parameterized queries"),
		rule(`MessageDigest\.getInstance\(['"]MD5['"]`, "Weak Cryptography", "CWE-327", types.SeverityMedium,
			"MD5 is cryptographically broken",
			"Use SHA-256 or stronger hashing algorithm"),
		rule(`Random\s+`, "Weak Random", "CWE-330", types.SeverityMedium,
			"java.util.Random is not cryptographically secure",
			"Use SecureRandom for security-sensitive operations"),
	},
	"go": {
		rule(`exec\.Command\([^)]*\+`, "Command Injection", "CWE-78", types.SeverityCritical,
			"Building exec.Command arguments by concatenation can lead to command injection",
			"Pass arguments as separate parameters and validate user input"),
		rule(`InsecureSkipVerify\s*:\s*true`, "SSL Verification Disabled", "CWE-295", types.SeverityHigh,
			"TLS certificate verification is disabled",
			"Remove InsecureSkipVerify or scope it to test configurations only"),
		rule(`(?:fmt\.Sprintf|\+)\s*\(?[^)]*(?:SELECT|INSERT|UPDATE|DELETE)[^)]*%[sv]`, "SQL Injection Risk", "CWE-89", types.SeverityHigh,
			"Building SQL with string formatting can lead to SQL injection",
			"Use parameterized queries with placeholder arguments"),
		rule(`math/rand`, "Weak Random", "CWE-330", types.SeverityMedium,
			"math/rand is not cryptographically secure",
			"Use crypto/rand for security-sensitive operations"),
		rule(`password\s*(?::?=|:)\s*"[^"]+"`, "Hardcoded Credentials", "CWE-798", types.SeverityHigh,
			"Hardcoded password detected",
			"Store credentials in environment variables or a secret manager"),
	},
}

func init() {
	// TypeScript shares the JavaScript rule table.
	languageRules["typescript"] = languageRules["javascript"]
}

// secretShape is one universal hardcoded-secret pattern applied to every file.
type secretShape struct {
	pattern *regexp.Regexp
	label   string
}

var secretShapes = []secretShape{
	{regexp.MustCompile(`(?i)api[_-]?key\s*=\s*['"][a-zA-Z0-9]{20,}['"]`), "API Key"},
	{regexp.MustCompile(`(?i)access[_-]?token\s*=\s*['"][a-zA-Z0-9]{20,}['"]`), "Access Token"},
	{regexp.MustCompile(`(?i)private[_-]?key\s*=\s*['"].*['"]`), "Private Key"},
	{regexp.MustCompile(`(?i)aws[_-]?secret\s*=\s*['"][a-zA-Z0-9/+=]{40}['"]`), "AWS Secret"},
}

// weakCryptoTokens maps deprecated primitives to their findings text.
// Matched as whole words, case-insensitively, in every file.
var weakCryptoTokens = []struct {
	token       string
	pattern     *regexp.Regexp
	description string
}{
	{"MD5", regexp.MustCompile(`(?i)\bMD5\b`), "MD5 is cryptographically broken"},
	{"SHA-1", regexp.MustCompile(`(?i)\bSHA-1\b`), "SHA-1 is deprecated for security use"},
	{"DES", regexp.MustCompile(`(?i)\bDES\b`), "DES has insufficient key length"},
	{"RC4", regexp.MustCompile(`(?i)\bRC4\b`), "RC4 is cryptographically broken"},
}

// cweToOWASP maps CWE ids to OWASP Top-10 2021 categories. Unmapped CWEs
// report "Unknown".
var cweToOWASP = map[string]string{
	"CWE-79":  "A03:2021 – Injection",
	"CWE-89":  "A03:2021 – Injection",
	"CWE-94":  "A03:2021 – Injection",
	"CWE-78":  "A03:2021 – Injection",
	"CWE-502": "A08:2021 – Software and Data Integrity Failures",
	"CWE-798": "A02:2021 – Cryptographic Failures",
	"CWE-327": "A02:2021 – Cryptographic Failures",
	"CWE-330": "A02:2021 – Cryptographic Failures",
	"CWE-295": "A02:2021 – Cryptographic Failures",
	"CWE-922": "A01:2021 – Broken Access Control",
}
