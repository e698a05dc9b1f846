package toolrunner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reposcore/reposcore/pkg/model"
)

var readmeCandidates = []string{"README.md", "README.rst", "README.txt", "README"}
var licenseCandidates = []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "COPYING"}

var sectionHeadings = []string{"setup", "install", "usage", "example", "api", "reference", "getting started"}

// AnalyzeDocumentation is language-independent (§4.4): it scores the
// presence and heading coverage of a README and checks for a LICENSE file.
func AnalyzeDocumentation(workspace string) model.Documentation {
	readmePath := findFirst(workspace, readmeCandidates)
	if readmePath == "" {
		return model.Documentation{}
	}

	content, err := os.ReadFile(readmePath)
	if err != nil {
		return model.Documentation{ReadmePresent: true}
	}

	lower := strings.ToLower(string(content))
	headingsFound := 0
	hasAPI, hasSetup, hasUsage := false, false, false
	for _, heading := range sectionHeadings {
		if strings.Contains(lower, heading) {
			headingsFound++
		}
	}
	hasSetup = strings.Contains(lower, "setup") || strings.Contains(lower, "install")
	hasUsage = strings.Contains(lower, "usage") || strings.Contains(lower, "example")
	hasAPI = strings.Contains(lower, "api") || strings.Contains(lower, "reference")
	hasLicense := findFirst(workspace, licenseCandidates) != ""

	quality := float64(headingsFound) / float64(len(sectionHeadings))
	if quality > 1 {
		quality = 1
	}

	// A LICENSE file is folded into the setup-instructions signal rather
	// than scored as its own dimension — no rubric dimension names it.
	return model.Documentation{
		ReadmePresent:      true,
		ReadmeQualityScore: quality,
		APIDocumentation:   hasAPI,
		SetupInstructions:  hasSetup || hasLicense,
		UsageExamples:      hasUsage,
	}
}

func findFirst(root string, candidates []string) string {
	for _, name := range candidates {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
