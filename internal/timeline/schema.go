package timeline

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed schema.yaml
var schemaDocument []byte

const eventSchemaName = "TimelineEvent"

// Validator checks an untyped record against the known event shapes and
// returns the typed event, or an error if no shape matches.
type Validator interface {
	Validate(record json.RawMessage) (Event, error)
}

// SchemaValidator validates records against the embedded OpenAPI event
// schema. It is safe for concurrent use.
type SchemaValidator struct {
	schema *openapi3.Schema
}

// NewSchemaValidator loads and validates the embedded event schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(schemaDocument)
	if err != nil {
		return nil, fmt.Errorf("load event schema: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid event schema: %w", err)
	}
	ref, ok := doc.Components.Schemas[eventSchemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("event schema: %s not defined", eventSchemaName)
	}
	return &SchemaValidator{schema: ref.Value}, nil
}

var defaultValidator = sync.OnceValues(NewSchemaValidator)

// DefaultValidator returns the process-wide SchemaValidator.
func DefaultValidator() (*SchemaValidator, error) {
	return defaultValidator()
}

// Validate implements Validator.Validate.
func (v *SchemaValidator) Validate(record json.RawMessage) (Event, error) {
	var value any
	if err := json.Unmarshal(record, &value); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if value == nil {
		return nil, errors.New("record is null")
	}
	if err := v.schema.VisitJSON(value); err != nil {
		return nil, err
	}

	var w wireEvent
	if err := json.Unmarshal(record, &w); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", w.Type, err)
	}
	return fromWire(w)
}
