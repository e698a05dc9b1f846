// Package model defines the shapes shared by every stage of the pipeline:
// the repository descriptor, the per-tool execution record, the unified
// metrics record, the rubric, evidence references, and the final scorecard.
package model

import "time"

// Language is a detected or configured programming language tag.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageUnknown    Language = "unknown"
)

// Repository is the immutable-after-capture descriptor of a fetched repository.
type Repository struct {
	SourceURL    string    `json:"source_url"`
	CommitSHA    string    `json:"commit_sha"`
	Language     Language  `json:"language"`
	ClonedAt     time.Time `json:"cloned_at"`
	SizeMB       float64   `json:"size_mb"`
}

// ToolState is the final state of one external tool invocation.
type ToolState string

const (
	ToolCompleted ToolState = "completed"
	ToolFailed    ToolState = "failed"
	ToolTimedOut  ToolState = "timed_out"
	ToolNotFound  ToolState = "not_found"
)

// ToolExecution is one record per external tool invocation, produced
// unconditionally even when the tool binary is absent.
type ToolExecution struct {
	ToolName   string        `json:"tool_name"`
	Version    string        `json:"version,omitempty"`
	CommandLine string       `json:"command_line"`
	ExitStatus int           `json:"exit_status"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	State      ToolState     `json:"state"`
}

// LintResults is the code-quality/lint subregion of the metrics record.
type LintResults struct {
	ToolUsed    string        `json:"tool_used"`
	Passed      *bool         `json:"passed"`
	IssuesCount int           `json:"issues_count"`
	Issues      []LintIssue   `json:"issues"`
}

// LintIssue is one normalized finding from a lint tool.
type LintIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Rule     string `json:"rule,omitempty"`
}

// SecurityAudit is the security-scan subregion of the metrics record.
type SecurityAudit struct {
	ToolUsed           string `json:"tool_used"`
	VulnerabilitiesFound int  `json:"vulnerabilities_found"`
	HighSeverityCount  int    `json:"high_severity_count"`
	Details            string `json:"details"`
}

// DependencyAudit mirrors SecurityAudit for dependency-scanning tools
// (govulncheck, npm audit, pip-audit) that report against a dependency
// graph rather than source files.
type DependencyAudit struct {
	ToolUsed             string `json:"tool_used"`
	VulnerabilitiesFound int    `json:"vulnerabilities_found"`
	Details              string `json:"details"`
}

// CodeQuality is `metrics.code_quality` (§3.4).
type CodeQuality struct {
	LintResults           LintResults     `json:"lint_results"`
	BuildSuccess          *bool           `json:"build_success"`
	BuildDetails          string          `json:"build_details"`
	SecurityAudit         SecurityAudit   `json:"security_audit"`
	DependencyAudit       DependencyAudit `json:"dependency_audit"`
	FormattingCompliance  *bool           `json:"formatting_compliance"`
}

// TestExecution is the test-run subregion of `metrics.testing`.
type TestExecution struct {
	Framework   string `json:"framework"`
	TestsRun    int    `json:"tests_run"`
	TestsPassed int    `json:"tests_passed"`
	TestsFailed int    `json:"tests_failed"`
	ToolUsed    string `json:"tool_used"`
}

// CoverageReport is the coverage subregion of `metrics.testing`.
type CoverageReport struct {
	Percentage *float64 `json:"percentage"`
	ToolUsed   string   `json:"tool_used"`
}

// Testing is `metrics.testing` (§3.4).
type Testing struct {
	TestExecution       TestExecution  `json:"test_execution"`
	CoverageReport      CoverageReport `json:"coverage_report"`
	TestFilesDetected   int            `json:"test_files_detected"`
	TestConfigDetected  bool           `json:"test_config_detected"`
	CoverageConfigDetected bool        `json:"coverage_config_detected"`
	CIPlatform          string         `json:"ci_platform"`
	CalculatedScore     *float64       `json:"calculated_score"`
}

// Documentation is `metrics.documentation` (§3.4).
type Documentation struct {
	ReadmePresent      bool    `json:"readme_present"`
	ReadmeQualityScore float64 `json:"readme_quality_score"`
	APIDocumentation   bool    `json:"api_documentation"`
	SetupInstructions  bool    `json:"setup_instructions"`
	UsageExamples      bool    `json:"usage_examples"`
}

// ExecutionError is one soft-failure entry in `execution.errors`.
type ExecutionError struct {
	Tool    string `json:"tool"`
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// Execution is the `execution` subregion of the metrics record.
type Execution struct {
	ToolsUsed       []string         `json:"tools_used"`
	Errors          []ExecutionError `json:"errors"`
	DurationSeconds float64          `json:"duration_seconds"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Metrics is `metrics` — the three scored dimensions.
type Metrics struct {
	CodeQuality   CodeQuality   `json:"code_quality"`
	Testing       Testing       `json:"testing"`
	Documentation Documentation `json:"documentation"`
}

// Record is the §3.4 unified, schema-conformant metrics record.
type Record struct {
	Repository Repository `json:"repository"`
	Metrics    Metrics    `json:"metrics"`
	Execution  Execution  `json:"execution"`
}

// EvaluationStatus is a checklist item's tri-state outcome (§3.7).
type EvaluationStatus string

const (
	StatusMet     EvaluationStatus = "met"
	StatusPartial EvaluationStatus = "partial"
	StatusUnmet   EvaluationStatus = "unmet"
)

// SourceType classifies how an evidence reference was produced (§3.6).
type SourceType string

const (
	SourceFileCheck  SourceType = "file_check"
	SourceCalculation SourceType = "calculation"
	SourceManual     SourceType = "manual"
)

// Evidence is one audit entry recording what was read and observed
// during a single criterion evaluation (§3.6).
type Evidence struct {
	ItemID     string     `json:"item_id"`
	SourceType SourceType `json:"source_type"`
	SourcePath string     `json:"source_path"`
	Description string    `json:"description"`
	Confidence float64    `json:"confidence"`
	RawData    string     `json:"raw_data"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ScoredItem is one evaluated checklist item (§3.7).
type ScoredItem struct {
	ID                string           `json:"id" console:"header:ID"`
	Name              string           `json:"name" console:"header:Name"`
	Dimension         string           `json:"dimension" console:"header:Dimension"`
	MaxPoints         float64          `json:"max_points" console:"format:score,header:Max Points"`
	EvaluationStatus  EvaluationStatus `json:"evaluation_status" console:"header:Status"`
	Score             float64          `json:"score" console:"format:score,header:Score"`
	EvidenceReferences []Evidence      `json:"evidence_references" console:"-"`
	EvaluationDetails map[string]string `json:"evaluation_details" console:"-"`
}

// DimensionBreakdown is one entry of a scorecard's `category_breakdowns`.
type DimensionBreakdown struct {
	Awarded    float64 `json:"awarded" console:"format:score,header:Awarded"`
	Max        float64 `json:"max" console:"format:score,header:Max"`
	Percentage float64 `json:"percentage" console:"format:percent,header:Percentage"`
	Grade      string  `json:"grade" console:"header:Grade"`
}

// EvaluationMetadata carries run-level bookkeeping for the scorecard.
type EvaluationMetadata struct {
	GeneratedAt   time.Time `json:"generated_at"`
	ToolsUsed     []string  `json:"tools_used"`
	DurationSeconds float64 `json:"duration_seconds"`
	RubricVersion string    `json:"rubric_version,omitempty"`
}

// Scorecard is the §3.8 final derived record consumed by downstream judges.
type Scorecard struct {
	RepositoryInfo    Repository                    `json:"repository_info"`
	ChecklistItems    []ScoredItem                  `json:"checklist_items"`
	TotalScore        float64                       `json:"total_score"`
	MaxPossibleScore  float64                       `json:"max_possible_score"`
	ScorePercentage   float64                       `json:"score_percentage"`
	CategoryBreakdowns map[string]DimensionBreakdown `json:"category_breakdowns"`
	EvaluationMetadata EvaluationMetadata            `json:"evaluation_metadata"`
	EvidenceSummary   []Evidence                    `json:"evidence_summary"`
}
