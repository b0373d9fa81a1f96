// Package remote provides the client for the extension security-analysis
// service: submit an analysis, poll it to a terminal state, fetch results.
package remote

import "time"

// ScanResult is the security analysis report for one extension version.
// The cache persists it as an opaque blob; only the handful of fields used
// for filtering are denormalized into the cache index.
type ScanResult struct {
	ExtensionID       string    `json:"extension_id"`
	Publisher         string    `json:"publisher"`
	Name              string    `json:"name"`
	Version           string    `json:"version"`
	DisplayName       string    `json:"display_name,omitempty"`
	RiskLevel         string    `json:"risk_level"`
	SecurityScore     float64   `json:"security_score"`
	PublisherVerified bool      `json:"publisher_verified"`
	DependenciesCount int       `json:"dependencies_count"`
	RiskFactors       []string  `json:"risk_factors,omitempty"`
	Findings          []Finding `json:"findings,omitempty"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

// Finding is a single security finding within a scan result.
type Finding struct {
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Package     string `json:"package,omitempty"`
	Version     string `json:"version,omitempty"`
	FixedIn     string `json:"fixed_in,omitempty"`
}

// Risk levels reported by the analysis service.
const (
	RiskNone     = "none"
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// OutcomeKind classifies the result of a scan attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the analysis completed and results were fetched.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeError means the scan failed (network, server, analysis failure).
	OutcomeError
	// OutcomeNotFound means the service does not know the extension.
	OutcomeNotFound
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Outcome is the per-scan result handed back to the orchestrator.
// Failures are data here, never errors: nothing propagates past this
// boundary as an exception.
type Outcome struct {
	Kind   OutcomeKind
	Result *ScanResult
	Reason string
}

// Wire types for the three-step analysis workflow.

type submitRequest struct {
	Publisher string `json:"publisher"`
	Name      string `json:"name"`
}

type submitResponse struct {
	AnalysisID string `json:"analysis_id"`
}

type statusResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// Terminal and non-terminal analysis states.
const (
	statusQueued   = "queued"
	statusRunning  = "running"
	statusComplete = "complete"
	statusFailed   = "failed"
)
