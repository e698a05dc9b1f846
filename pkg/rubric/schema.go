package rubric

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/reposcore/reposcore/pkg/logger"
)

var schemaLog = logger.New("rubric:schema")

//go:embed schemas/metrics_record_schema.json
var metricsRecordSchemaJSON string

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compiledErr    error
)

func getCompiledMetricsRecordSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compiledErr = compileSchema(metricsRecordSchemaJSON)
	})
	return compiledSchema, compiledErr
}

func compileSchema(schemaJSON string) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	const resourceURL = "http://reposcore.dev/schemas/metrics_record.json"
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// ValidateMetricsRecord validates a decoded metrics record (as produced by
// json.Marshal + json.Unmarshal of a model.Record, i.e. map[string]any)
// against the metrics record schema. A validation failure here is fatal
// per §7's schema_mismatch.
func ValidateMetricsRecord(record any) error {
	schema, err := getCompiledMetricsRecordSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON to normalize Go struct types into the
	// plain maps/slices the schema validator expects.
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics record: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("failed to unmarshal metrics record: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		schemaLog.Printf("metrics record failed schema validation: %v", err)
		return fmt.Errorf("metrics record failed schema validation: %w", err)
	}
	return nil
}
