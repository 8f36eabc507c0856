// Package resource is the generic record engine. A Definition describes one
// record type as data; a Module runs the uniform operation set (list, count,
// search, get, create, update, transition, delete and the placeholder
// sub-resources) over it, and a Handler exposes the Module over HTTP.
package resource

import (
	"github.com/ehr/records/internal/platform/schema"
)

// Match selects how a search parameter compares against stored values.
type Match int

const (
	// Exact matches the whole value.
	Exact Match = iota
	// Substring matches case-insensitively anywhere in a string value.
	Substring
)

// SearchParam is a query parameter the search operation recognizes. When
// Fields lists more than one field, a record matches if any of them does.
type SearchParam struct {
	Name   string
	Fields []string
	Match  Match
	// Kind converts the raw query string before comparing. Only String, Bool,
	// Int and Number are meaningful; the zero value compares as a string.
	Kind schema.Kind
}

// Transition is a named state change exposed as PATCH /{path}/:id/{name}.
// Set is written as-is, without validation or a check of the current state.
type Transition struct {
	Name string
	Set  map[string]any
}

// Definition binds a record schema to its collection and HTTP path.
type Definition struct {
	Name         string
	Path         string
	Collection   string
	Schema       *schema.Schema
	SearchParams []SearchParam
	Transitions  []Transition
}

// Transition returns the named transition.
func (d *Definition) Transition(name string) (Transition, bool) {
	for _, t := range d.Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}
