// Package schema describes record types as data and validates raw payloads
// against them. A Schema is a named, ordered list of typed fields; the
// validation functions turn decoded JSON into normalized values or a complete
// list of field violations.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the value type of a field.
type Kind int

const (
	String Kind = iota
	Ref
	Enum
	Date
	DateTime
	Int
	Number
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Ref:
		return "ref"
	case Enum:
		return "enum"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case Int:
		return "integer"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field describes one field of a record schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is applied on create when the field is absent. Nil means no
	// default.
	Default any
	// Enum lists the allowed values for Enum fields.
	Enum []string
	// MinLength is the minimum rune count for String fields.
	MinLength int
	// AllowEmpty permits "" for String fields.
	AllowEmpty bool
	// Positive requires Int/Number values > 0.
	Positive bool
	// NonNegative requires Int/Number values >= 0.
	NonNegative bool
}

// Schema is the typed field definition of one record type.
type Schema struct {
	Name   string
	Fields []Field
	index  map[string]int
}

// New builds a schema from its fields. Field order is the order violations
// are reported in.
func New(name string, fields ...Field) *Schema {
	s := &Schema{Name: name, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %q", name, f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

// Field returns the named field definition.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Values holds normalized field values keyed by field name.
type Values map[string]any

// FieldError is a single violation of a field constraint.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// ValidationError carries every violation found in a payload, in schema
// field order.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateCreate checks a create payload. Required fields must be present
// and valid, absent optional fields take their default, unknown fields are
// dropped.
func (s *Schema) ValidateCreate(input map[string]any) (Values, error) {
	return s.validate(input, true)
}

// ValidateUpdate checks a partial update payload. Every field is optional
// and only fields present in the input appear in the result.
func (s *Schema) ValidateUpdate(input map[string]any) (Values, error) {
	return s.validate(input, false)
}

func (s *Schema) validate(input map[string]any, create bool) (Values, error) {
	out := make(Values, len(s.Fields))
	var errs []FieldError

	for _, f := range s.Fields {
		raw, present := input[f.Name]
		if present && raw == nil && create {
			// null on create is treated as an omitted value
			present = false
		}

		if !present {
			if !create {
				continue
			}
			if f.Required {
				errs = append(errs, FieldError{
					Field:      f.Name,
					Constraint: "required",
					Message:    fmt.Sprintf("%q is required", f.Name),
				})
				continue
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}

		v, fe := f.normalize(raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		out[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return out, nil
}
