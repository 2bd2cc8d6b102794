// Package types contains shared data structures used across the review system.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

import "time"

// ReviewStatus is the lifecycle state of a review.
type ReviewStatus string

// Review lifecycle states. Completed and Failed are terminal; a review in a
// terminal state is never mutated again.
const (
	StatusPending    ReviewStatus = "pending"
	StatusInProgress ReviewStatus = "in_progress"
	StatusCompleted  ReviewStatus = "completed"
	StatusFailed     ReviewStatus = "failed"
)

// Terminal reports whether the status is an absorbing state.
func (s ReviewStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Severity classifies how serious an issue or finding is.
type Severity string

// Severity levels, highest first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// IssueCategory classifies what kind of problem a CodeIssue describes.
type IssueCategory string

// Issue categories.
const (
	CategorySecurity     IssueCategory = "security"
	CategoryQuality      IssueCategory = "quality"
	CategoryComplexity   IssueCategory = "complexity"
	CategoryStyle        IssueCategory = "style"
	CategoryPerformance  IssueCategory = "performance"
	CategoryBestPractice IssueCategory = "best_practice"
)

// Recommendation is the review-level merge verdict.
type Recommendation string

// Merge-readiness verdicts, matching GitHub review event names.
const (
	RecommendApprove        Recommendation = "APPROVE"
	RecommendComment        Recommendation = "COMMENT"
	RecommendRequestChanges Recommendation = "REQUEST_CHANGES"
)

// PullRequest represents a GitHub pull request with the data the analyzer needs.
type PullRequest struct {
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	State        string        `json:"state"`
	Author       string        `json:"author"`
	Repository   string        `json:"repository"`
	Owner        string        `json:"owner"`
	BaseRef      string        `json:"base_ref"`
	HeadRef      string        `json:"head_ref"`
	HeadSHA      string        `json:"head_sha"`
	ChangedFiles []ChangedFile `json:"changed_files"`
	Commits      []Commit      `json:"commits,omitempty"`
	Comments     []Comment     `json:"comments,omitempty"`
	Labels       []string      `json:"labels,omitempty"`
	Number       int           `json:"number"`
	Draft        bool          `json:"draft"`
}

// ChangedFile represents a file changed in a pull request.
type ChangedFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"` // "added", "modified", "removed", "renamed"
	Patch     string `json:"patch,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Commit is a single commit on a pull request.
type Commit struct {
	Date    time.Time `json:"date"`
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
}

// Comment is an issue or review comment on a pull request.
type Comment struct {
	CreatedAt time.Time `json:"created_at"`
	User      string    `json:"user"`
	Body      string    `json:"body"`
	Path      string    `json:"path,omitempty"`
	ID        int64     `json:"id"`
	Line      int       `json:"line,omitempty"`
}

// ComplexityMetrics holds per-file complexity measurements.
type ComplexityMetrics struct {
	CyclomaticComplexity int     `json:"cyclomatic_complexity"` // >= 1
	CognitiveComplexity  int     `json:"cognitive_complexity"`  // >= 0
	LinesOfCode          int     `json:"lines_of_code"`         // non-blank, non-comment lines
	MaintainabilityIndex float64 `json:"maintainability_index"` // clamped to [0,100]
}

// CodeIssue is a single problem identified in a file.
type CodeIssue struct {
	Category    IssueCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	FilePath    string        `json:"file_path"`
	Suggestion  string        `json:"suggestion,omitempty"`
	LineStart   int           `json:"line_start,omitempty"`
	LineEnd     int           `json:"line_end,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"` // [0,1]
}

// SecurityFinding is a vulnerability pattern match in a file.
type SecurityFinding struct {
	VulnerabilityType string   `json:"vulnerability_type"`
	CWE               string   `json:"cwe_id,omitempty"`
	OWASPCategory     string   `json:"owasp_category,omitempty"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	FilePath          string   `json:"file_path"`
	Remediation       string   `json:"remediation"`
	References        []string `json:"references,omitempty"`
	LineNumber        int      `json:"line_number,omitempty"`
}

// SecretFinding is a credential-shaped literal detected in source text.
// MaskedText is the only representation of the matched value; the raw
// secret never leaves the scanner.
type SecretFinding struct {
	SecretType     string   `json:"secret_type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	FilePath       string   `json:"file"`
	MaskedText     string   `json:"matched_text"`
	Recommendation string   `json:"recommendation"`
	Line           int      `json:"line"`
}

// CodeSmell is a structural quality problem detected heuristically.
type CodeSmell struct {
	SmellType   string   `json:"smell_type"`
	Description string   `json:"description"`
	FilePath    string   `json:"file_path"`
	Severity    Severity `json:"severity"`
	Suggestion  string   `json:"refactoring_suggestion"`
	LineStart   int      `json:"line_start"`
	LineEnd     int      `json:"line_end"`
}

// FileAnalysis is one file's analysis within a review.
type FileAnalysis struct {
	FilePath         string            `json:"file_path"`
	Language         string            `json:"language"`
	LinesAdded       int               `json:"lines_added"`
	LinesRemoved     int               `json:"lines_removed"`
	Complexity       ComplexityMetrics `json:"complexity"`
	Issues           []CodeIssue       `json:"issues"`
	SecurityFindings []SecurityFinding `json:"security_findings"`
	QualityScore     float64           `json:"quality_score"` // [0,100]
}

// ReviewSummary aggregates all file analyses in a review.
type ReviewSummary struct {
	TotalFiles            int            `json:"total_files"`
	TotalLinesChanged     int            `json:"total_lines_changed"`
	OverallQualityScore   float64        `json:"overall_quality_score"`
	CriticalIssues        int            `json:"critical_issues"`
	HighIssues            int            `json:"high_issues"`
	MediumIssues          int            `json:"medium_issues"`
	LowIssues             int            `json:"low_issues"`
	SecurityFindingsCount int            `json:"security_findings_count"`
	AverageComplexity     float64        `json:"average_complexity"`
	Recommendation        Recommendation `json:"recommendation"`
	Strengths             []string       `json:"strengths"`
	Weaknesses            []string       `json:"weaknesses"`
}

// Review is one analysis run over one pull request at one point in time.
type Review struct {
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ID           string         `json:"review_id"`
	Repository   string         `json:"repository"`
	Status       ReviewStatus   `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	AIInsights   string         `json:"ai_insights,omitempty"`
	FileAnalyses []FileAnalysis `json:"file_analyses"`
	Summary      *ReviewSummary `json:"summary,omitempty"`
	PRNumber     int            `json:"pr_number"`
}
