package secrets

import (
	"regexp"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// secretPattern is one named credential shape.
type secretPattern struct {
	pattern     *regexp.Regexp
	name        string
	severity    types.Severity
	description string
}

// secretPatterns is the ordered table of credential shapes. Matching is
// case-insensitive and line-based.
var secretPatterns = []secretPattern{
	{regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`), "aws_access_key", types.SeverityCritical, "AWS Access Key ID"},
	{regexp.MustCompile(`(?i)aws_secret_access_key\s*=\s*['"]([A-Za-z0-9/+=]{40})['"]`), "aws_secret_key", types.SeverityCritical, "AWS Secret Access Key"},
	{regexp.MustCompile(`(?i)ghp_[A-Za-z0-9]{36}`), "github_token", types.SeverityCritical, "GitHub Personal Access Token"},
	{regexp.MustCompile(`(?i)api[_-]?key\s*[=:]\s*['"]([A-Za-z0-9_\-]{20,})['"]`), "generic_api_key", types.SeverityHigh, "Generic API Key"},
	{regexp.MustCompile(`-----BEGIN (RSA |DSA |EC )?PRIVATE KEY-----`), "private_key", types.SeverityCritical, "Private Key"},
	{regexp.MustCompile(`(?i)[a-zA-Z]{3,10}://[^:]+:([^@\s]+)@[^/\s]+`), "password_in_url", types.SeverityHigh, "Password in URL"},
	{regexp.MustCompile(`https://hooks\.slack\.com/services/T[A-Z0-9]+/B[A-Z0-9]+/[A-Za-z0-9]+`), "slack_webhook", types.SeverityHigh, "Slack Webhook URL"},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`), "jwt_token", types.SeverityMedium, "JWT Token"},
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), "google_api_key", types.SeverityHigh, "Google API Key"},
	{regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24,}`), "stripe_key", types.SeverityCritical, "Stripe Live Secret Key"},
	{regexp.MustCompile(`SK[a-z0-9]{32}`), "twilio_key", types.SeverityHigh, "Twilio API Key"},
	{regexp.MustCompile(`key-[0-9a-zA-Z]{32}`), "mailgun_key", types.SeverityHigh, "Mailgun API Key"},
	{regexp.MustCompile(`(?i)(postgres|mysql|mongodb)://[^:]+:([^@\s]+)@`), "database_url", types.SeverityHigh, "Database Connection String with Password"},
}

// falsePositivePatterns suppress placeholder-looking matches.
var falsePositivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)example\.com`),
	regexp.MustCompile(`(?i)localhost`),
	regexp.MustCompile(`127\.0\.0\.1`),
	regexp.MustCompile(`(?i)test[_-]?key`),
	regexp.MustCompile(`(?i)dummy[_-]?key`),
	regexp.MustCompile(`(?i)fake[_-]?key`),
	regexp.MustCompile(`(?i)placeholder`),
	regexp.MustCompile(`(?i)xxx+`),
	regexp.MustCompile(`\*\*\*+`),
}
