// Package checklist evaluates a loaded rubric against a metrics record,
// producing scored items plus the evidence trail behind each one (§4.7).
package checklist

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/reposcore/reposcore/pkg/evidence"
	"github.com/reposcore/reposcore/pkg/expr"
	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/rubric"
)

var log = logger.New("checklist")

const (
	confidenceDefault      = 1.0
	confidenceMissingPath  = 0.7
	confidenceLengthOnNonArray = 0.5
	confidenceParseError   = 0.3
)

// Evaluate scores every item in r against record, in rubric file order,
// recording evidence into tracker. It never mutates record and never
// returns an error for a malformed criterion — per §4.6, a parse error is
// a soft, per-criterion failure recorded as evidence.
func Evaluate(r *rubric.Rubric, record *model.Record, tracker *evidence.Tracker) ([]model.ScoredItem, error) {
	recordValue, err := toValue(record)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metrics record for evaluation: %w", err)
	}

	items := make([]model.ScoredItem, 0, len(r.ChecklistItems))
	for _, item := range r.ChecklistItems {
		scored := evaluateItem(item, recordValue, tracker)
		items = append(items, scored)
	}
	return items, nil
}

func toValue(record *model.Record) (expr.Value, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return expr.Null, err
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return expr.Null, err
	}
	return expr.FromAny(decoded), nil
}

func evaluateItem(item rubric.Item, record expr.Value, tracker *evidence.Tracker) model.ScoredItem {
	basePath := splitPath(item.MetricsMapping.SourcePath)
	details := make(map[string]string)

	subtree, found := record.ResolvePath(basePath)
	if !found {
		log.Printf("item %s: source_path %q missing from metrics record", item.ID, item.MetricsMapping.SourcePath)
		ev := model.Evidence{
			ItemID:      item.ID,
			SourceType:  model.SourceCalculation,
			SourcePath:  item.MetricsMapping.SourcePath,
			Description: fmt.Sprintf("metrics subtree %q is missing from the record", item.MetricsMapping.SourcePath),
			Confidence:  confidenceMissingPath,
			RawData:     "null",
			Timestamp:   time.Now().UTC(),
		}
		tracker.Record(string(item.Dimension), ev)
		details["source_path_missing"] = "true"
		return buildScoredItem(item, model.StatusUnmet, []model.Evidence{ev}, details)
	}
	_ = subtree

	statusLists := []struct {
		status model.EvaluationStatus
		exprs  []string
	}{
		{model.StatusMet, item.Met},
		{model.StatusPartial, item.Partial},
		{model.StatusUnmet, item.Unmet},
	}

	var allEvidence []model.Evidence
	assigned := model.StatusUnmet
	haveAssignment := false

	for _, sl := range statusLists {
		if len(sl.exprs) == 0 {
			continue
		}
		anyTrue := false
		for _, src := range sl.exprs {
			ev, truth := evaluateCriterion(item, src, basePath, record)
			allEvidence = append(allEvidence, ev)
			if truth {
				anyTrue = true
			}
		}
		if anyTrue {
			assigned = sl.status
			haveAssignment = true
			break
		}
	}
	if !haveAssignment {
		assigned = model.StatusUnmet
	}

	for _, ev := range allEvidence {
		tracker.Record(string(item.Dimension), ev)
	}

	return buildScoredItem(item, assigned, allEvidence, details)
}

func evaluateCriterion(item rubric.Item, src string, basePath []string, record expr.Value) (model.Evidence, bool) {
	node, err := expr.Parse(src)
	if err != nil {
		log.Printf("item %s: criterion %q failed to parse: %v", item.ID, src, err)
		return model.Evidence{
			ItemID:      item.ID,
			SourceType:  model.SourceCalculation,
			SourcePath:  item.MetricsMapping.SourcePath,
			Description: fmt.Sprintf("criterion %q failed to parse: %v", src, err),
			Confidence:  confidenceParseError,
			RawData:     "",
			Timestamp:   time.Now().UTC(),
		}, false
	}

	result, reads, err := expr.Eval(node, record, basePath)
	confidence := confidenceDefault
	description := fmt.Sprintf("criterion %q", src)
	if err != nil {
		confidence = confidenceLengthOnNonArray
		description = fmt.Sprintf("criterion %q: %v", src, err)
	} else {
		missing := false
		for _, r := range reads {
			if !r.Found {
				missing = true
			}
		}
		if missing {
			confidence = confidenceMissingPath
		}
	}

	truth := err == nil && result.Kind == expr.KindBool && result.Bool

	paths := make([]string, 0, len(reads))
	for _, r := range reads {
		paths = append(paths, strings.Join(r.Segments, "."))
	}

	return model.Evidence{
		ItemID:      item.ID,
		SourceType:  model.SourceCalculation,
		SourcePath:  strings.Join(paths, "; "),
		Description: fmt.Sprintf("%s -> %v", description, truth),
		Confidence:  confidence,
		RawData:     renderReads(reads),
		Timestamp:   time.Now().UTC(),
	}, truth
}

func renderReads(reads []expr.PathRead) string {
	data, err := json.Marshal(reads)
	if err != nil {
		return ""
	}
	return string(data)
}

// buildScoredItem awards points per §4.7 rule 4: met -> max, partial ->
// max*0.5 rounded to one decimal, unmet -> 0.
func buildScoredItem(item rubric.Item, status model.EvaluationStatus, ev []model.Evidence, details map[string]string) model.ScoredItem {
	var score float64
	switch status {
	case model.StatusMet:
		score = item.MaxPoints
	case model.StatusPartial:
		score = roundToOneDecimal(item.MaxPoints * 0.5)
	case model.StatusUnmet:
		score = 0
	}
	return model.ScoredItem{
		ID:                 item.ID,
		Name:               item.Name,
		Dimension:          string(item.Dimension),
		MaxPoints:          item.MaxPoints,
		EvaluationStatus:   status,
		Score:              score,
		EvidenceReferences: ev,
		EvaluationDetails:  details,
	}
}

func roundToOneDecimal(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func splitPath(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}
