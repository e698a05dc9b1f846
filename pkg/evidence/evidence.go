// Package evidence accumulates evidence references emitted by the
// checklist evaluator, grouped by dimension, and persists them as the
// evidence/ tree described in §6.2.
package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
)

var log = logger.New("evidence")

// Tracker accumulates evidence references as the checklist evaluator
// produces them, grouped by dimension; Persist names each file by item id
// and source type.
type Tracker struct {
	byDimension map[string][]model.Evidence
	order       []string
}

// NewTracker creates an empty evidence tracker.
func NewTracker() *Tracker {
	return &Tracker{byDimension: make(map[string][]model.Evidence)}
}

// Record appends one evidence reference under the given dimension.
func (t *Tracker) Record(dimension string, e model.Evidence) {
	if _, ok := t.byDimension[dimension]; !ok {
		t.order = append(t.order, dimension)
	}
	t.byDimension[dimension] = append(t.byDimension[dimension], e)
	log.Printf("recorded evidence item=%s source=%s dimension=%s confidence=%.2f", e.ItemID, e.SourceType, dimension, e.Confidence)
}

// Summary returns every recorded evidence reference in a stable order
// (dimension-of-first-appearance, then insertion order within dimension),
// for use by the scoring mapper's `evidence_summary`.
func (t *Tracker) Summary() []model.Evidence {
	var out []model.Evidence
	for _, dim := range t.order {
		out = append(out, t.byDimension[dim]...)
	}
	return out
}

// ManifestEntry is one row of evidence/manifest.json.
type ManifestEntry struct {
	Dimension  string `json:"dimension"`
	ItemID     string `json:"item_id"`
	SourceType string `json:"source_type"`
	File       string `json:"file"`
}

// Persist writes the evidence/<dimension>/<item_id>_<source_type>.json
// tree plus evidence/manifest.json under root, per §6.2.
func (t *Tracker) Persist(root string) error {
	var manifest []ManifestEntry

	dims := make([]string, 0, len(t.byDimension))
	for dim := range t.byDimension {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		dimDir := filepath.Join(root, dim)
		if err := os.MkdirAll(dimDir, 0o755); err != nil {
			return fmt.Errorf("failed to create evidence dir %s: %w", dimDir, err)
		}

		// A rubric item commonly carries several criteria in the same
		// status list (met/partial/unmet), each recorded with the same
		// (item_id, source_type) pair. Without disambiguation their
		// evidence files collide on name and Persist silently overwrites
		// all but the last, while manifest.json still lists every one.
		keyCounts := make(map[string]int, len(t.byDimension[dim]))
		for _, e := range t.byDimension[dim] {
			keyCounts[e.ItemID+"\x00"+string(e.SourceType)]++
		}
		seen := make(map[string]int, len(t.byDimension[dim]))

		for _, e := range t.byDimension[dim] {
			key := e.ItemID + "\x00" + string(e.SourceType)
			seen[key]++
			fileName := fmt.Sprintf("%s_%s.json", e.ItemID, e.SourceType)
			if keyCounts[key] > 1 {
				fileName = fmt.Sprintf("%s_%s_%d.json", e.ItemID, e.SourceType, seen[key])
			}
			filePath := filepath.Join(dimDir, fileName)
			data, err := json.MarshalIndent(e, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal evidence %s: %w", filePath, err)
			}
			if err := os.WriteFile(filePath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write evidence file %s: %w", filePath, err)
			}
			manifest = append(manifest, ManifestEntry{
				Dimension:  dim,
				ItemID:     e.ItemID,
				SourceType: string(e.SourceType),
				File:       filepath.Join(dim, fileName),
			})
		}
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evidence manifest: %w", err)
	}
	manifestPath := filepath.Join(root, "manifest.json")
	if err := os.WriteFile(manifestPath, append(manifestData, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write evidence manifest: %w", err)
	}
	log.Printf("persisted %d evidence files across %d dimensions to %s", len(manifest), len(dims), root)
	return nil
}
