package review

// Analysis pipeline constants.
const (
	maxCodeChars  = 4000 // Code sent to the AI provider is truncated to this
	maxPatchChars = 1000 // Patch context sent to the AI provider is truncated to this

	maxAISuggestionIssues = 5 // At most this many AI suggestions become issues

	defaultWorkers = 4 // Concurrent file analyses per review

	// Quality score penalties.
	highComplexityThreshold  = 10
	complexityPenaltyPerUnit = 2.0
	maxComplexityPenalty     = 20.0
	lowMaintainability       = 50.0
	maintainabilityFactor    = 0.5

	// Recommendation thresholds.
	maxSecurityFindingsForApproval = 3
	maxHighIssuesForApproval       = 5
	maxMediumIssuesForApproval     = 10
)

// issueWeights is the quality-score deduction per issue severity.
var issueWeights = map[string]float64{
	"critical": 15,
	"high":     10,
	"medium":   5,
	"low":      2,
	"info":     1,
}

const defaultIssueWeight = 3.0

// findingWeights is the quality-score deduction per security finding severity.
var findingWeights = map[string]float64{
	"critical": 15,
	"high":     10,
	"medium":   5,
	"low":      2,
	"info":     1,
}

const defaultFindingWeight = 5.0
