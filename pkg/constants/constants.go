// Package constants holds fixed values shared across the pipeline that are
// not meant to flow through configuration structs: defaults, thresholds and
// table orderings the design notes call out as fixed.
package constants

import "time"

// CLIExtensionPrefix is the prefix used in user-facing output to identify this tool.
const CLIExtensionPrefix = "reposcore"

// DefaultTimeoutSeconds is the global pipeline deadline when the caller does not override it.
const DefaultTimeoutSeconds = 300

// DefaultRepoSizeCapMB is the maximum repository size, in megabytes, the fetcher will clone.
const DefaultRepoSizeCapMB = 100

// MaxPossibleScore is the fixed ceiling every scorecard is normalized against.
const MaxPossibleScore = 100.0

// DefaultTimeout is DefaultTimeoutSeconds as a time.Duration, for direct use in context deadlines.
const DefaultTimeout = DefaultTimeoutSeconds * time.Second

// LanguageTieBreakOrder is the fixed ordering used to break ties when two or more
// languages share the largest byte share of a repository.
var LanguageTieBreakOrder = []string{"go", "rust", "java", "typescript", "javascript", "python"}

// VendorDirs are directory names excluded from language detection and size accounting.
var VendorDirs = []string{"node_modules", "vendor", "target", "build", "dist", ".git"}

// GradeThresholds maps the minimum percentage required for each letter grade, in descending order.
var GradeThresholds = []struct {
	Grade  string
	MinPct float64
}{
	{"A", 90},
	{"B", 80},
	{"C", 70},
	{"D", 60},
	{"F", 0},
}
