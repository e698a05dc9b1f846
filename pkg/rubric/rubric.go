// Package rubric loads and validates the declarative checklist configuration
// (§3.5, §6.3): a flat list of checklist items, each carrying its own
// met/partial/unmet criterion expressions and a metrics source path.
package rubric

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/reposcore/reposcore/pkg/logger"
)

var rubricLog = logger.New("rubric")

// Dimension is one of the three scored categories.
type Dimension string

const (
	DimensionCodeQuality  Dimension = "code_quality"
	DimensionTesting      Dimension = "testing"
	DimensionDocumentation Dimension = "documentation"
)

// MetricsMapping is the `metrics_mapping` block of a checklist item.
type MetricsMapping struct {
	SourcePath     string   `yaml:"source_path"`
	RequiredFields []string `yaml:"required_fields"`
}

// Item is one checklist item (§3.5).
type Item struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Dimension Dimension      `yaml:"dimension"`
	MaxPoints float64        `yaml:"max_points"`
	Met       []string       `yaml:"met"`
	Partial   []string       `yaml:"partial"`
	Unmet     []string       `yaml:"unmet"`
	MetricsMapping MetricsMapping `yaml:"metrics_mapping"`
}

// Rubric is the parsed checklist configuration.
type Rubric struct {
	ChecklistItems []Item `yaml:"checklist_items"`
}

// ParseError wraps a malformed rubric file (fatal per §7 rubric_parse_error).
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse rubric %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and validates a rubric file from disk.
func Load(path string) (*Rubric, error) {
	rubricLog.Printf("Loading rubric from %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes and validates rubric YAML already read into memory.
// Unknown top-level keys are ignored, per §6.3.
func Parse(data []byte, path string) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := validate(&r); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	rubricLog.Printf("Loaded rubric with %d checklist items", len(r.ChecklistItems))
	return &r, nil
}

func validate(r *Rubric) error {
	if len(r.ChecklistItems) == 0 {
		return fmt.Errorf("rubric has no checklist_items")
	}
	seen := make(map[string]bool, len(r.ChecklistItems))
	var total float64
	for _, item := range r.ChecklistItems {
		if item.ID == "" {
			return fmt.Errorf("checklist item missing id")
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate checklist item id %q", item.ID)
		}
		seen[item.ID] = true
		if item.MaxPoints < 0 {
			return fmt.Errorf("item %q: max_points must be >= 0", item.ID)
		}
		switch item.Dimension {
		case DimensionCodeQuality, DimensionTesting, DimensionDocumentation:
		default:
			return fmt.Errorf("item %q: unknown dimension %q", item.ID, item.Dimension)
		}
		if len(item.Met) == 0 && len(item.Partial) == 0 && len(item.Unmet) == 0 {
			return fmt.Errorf("item %q: at least one of met/partial/unmet must be non-empty", item.ID)
		}
		total += item.MaxPoints
	}
	if total != 100 {
		return fmt.Errorf("sum(max_points) must equal 100, got %v", total)
	}
	return nil
}
