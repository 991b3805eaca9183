package plan

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a contract type into a JSON Schema document,
// inlined without $ref so it can be embedded directly in a
// structured-output prompt.
func SchemaFor(v any) (string, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(v)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("plan: marshal schema: %w", err)
	}
	return string(data), nil
}

// WeeklyPlanSchema returns the JSON Schema for the weekly plan contract.
func WeeklyPlanSchema() (string, error) {
	return SchemaFor(&WeeklyPlan{})
}

// FindingsSchema returns the JSON Schema for the findings contract.
func FindingsSchema() (string, error) {
	return SchemaFor(&Findings{})
}
