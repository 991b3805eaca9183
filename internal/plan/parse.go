package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseWeeklyPlan decodes and validates a weekly plan payload. Unknown
// fields are violations: the generating side must emit the contract
// exactly.
func ParseWeeklyPlan(data []byte) (WeeklyPlan, error) {
	var p WeeklyPlan
	if err := strictDecode(data, &p); err != nil {
		return WeeklyPlan{}, &SchemaViolationError{Stage: StageWeeklyPlan, Issues: []string{err.Error()}}
	}
	if err := ValidateWeeklyPlan(p); err != nil {
		return WeeklyPlan{}, err
	}
	return p, nil
}

// ParseFindings decodes and validates a findings payload. Both the
// wrapped object form and a bare array are accepted.
func ParseFindings(data []byte) (Findings, error) {
	trimmed := bytes.TrimSpace(data)
	var f Findings
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := strictDecode(trimmed, &f.Items); err != nil {
			return Findings{}, &SchemaViolationError{Stage: StageFindings, Issues: []string{err.Error()}}
		}
	} else if err := strictDecode(trimmed, &f); err != nil {
		return Findings{}, &SchemaViolationError{Stage: StageFindings, Issues: []string{err.Error()}}
	}
	if err := ValidateFindings(f); err != nil {
		return Findings{}, err
	}
	return f, nil
}

// ParseWeeklyPlanResponse extracts the JSON payload from a model
// response before decoding; models wrap payloads in prose or fences
// more often than not.
func ParseWeeklyPlanResponse(text string) (WeeklyPlan, error) {
	return ParseWeeklyPlan(ExtractJSON(text))
}

// ParseFindingsResponse extracts and decodes findings from a model
// response.
func ParseFindingsResponse(text string) (Findings, error) {
	return ParseFindings(ExtractJSON(text))
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed payload: %v", err)
	}
	return nil
}

// ExtractJSON returns the outermost JSON value in text, tolerating
// markdown fences and surrounding prose. Text without braces or
// brackets is returned unchanged.
func ExtractJSON(text string) []byte {
	s := strings.TrimSpace(text)
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return []byte(s)
	}
	end := strings.LastIndex(s, "}")
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	}
	if end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}
