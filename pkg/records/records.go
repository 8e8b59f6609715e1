// Package records defines the generic record representation flowing through
// the pipeline: a Record is a flat map of field name to value, produced by
// the JSON parser and consumed by the dataset operators and the typed schema
// projections.
//
// Values come from encoding/json with UseNumber enabled, so numeric fields
// are json.Number until a typed accessor converts them. Accessors come in
// two flavors:
//
//   - strict (String, Int64, Float64): the field must be present and of the
//     expected type; violations return a *FieldError. These back the
//     fail-the-extraction semantics for required fields.
//   - optional (OptString, OptFloat64): a missing or null field is returned
//     as a nil pointer, not an error. Type mismatches still fail.
package records

import (
	"encoding/json"
	"fmt"
)

// Record is a single parsed input record.
type Record map[string]any

// FieldError reports a required field that is absent or carries a value of
// the wrong type. It is the record-level schema violation: extractors treat
// it as fatal for the whole run.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the field as a string. Missing, null, or non-string values
// are a *FieldError.
func (r Record) String(field string) (string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", &FieldError{Field: field, Reason: "required string is missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

// Int64 returns the field as an int64. JSON numbers arrive as json.Number;
// anything that does not parse as an integer is a *FieldError.
func (r Record) Int64(field string) (int64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Reason: "required integer is missing"}
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &FieldError{Field: field, Reason: fmt.Sprintf("not an integer: %v", n)}
		}
		return i, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, &FieldError{Field: field, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
}

// Float64 returns the field as a float64, accepting json.Number and native
// float values.
func (r Record) Float64(field string) (float64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Reason: "required number is missing"}
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &FieldError{Field: field, Reason: fmt.Sprintf("not a number: %v", n)}
		}
		return f, nil
	case float64:
		return n, nil
	default:
		return 0, &FieldError{Field: field, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
}

// OptString returns the field as *string, with nil for a missing or null
// value. A present non-string value is still a *FieldError.
func (r Record) OptString(field string) (*string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &FieldError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return &s, nil
}

// OptFloat64 returns the field as *float64, with nil for a missing or null
// value.
func (r Record) OptFloat64(field string) (*float64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, &FieldError{Field: field, Reason: fmt.Sprintf("not a number: %v", n)}
		}
		return &f, nil
	case float64:
		f := n
		return &f, nil
	default:
		return nil, &FieldError{Field: field, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
}
