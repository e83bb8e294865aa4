// Package annotations decides whether a proposed annotation may be posted
// to a managed table.
//
// Paired tables take (class, value) annotations that must follow the
// table's taxonomy: value must be a direct child of class, annotations are
// built from a root class downward, and most classes take a single value
// per entity. List tables take a single tag from a fixed list.
//
// Nothing here performs I/O. Existing annotations are passed in, or fetched
// through the injected Lookup by Engine.
package annotations

import (
	"context"
	"time"
)

// Pair is a (class, value) annotation. Class is empty for list tables.
type Pair struct {
	Class string `json:"class,omitempty"`
	Value string `json:"value"`
}

// String renders the pair in the "class: value" form users type.
func (p Pair) String() string {
	if p.Class == "" {
		return p.Value
	}
	return p.Class + ": " + p.Value
}

// Record is an annotation already committed for an entity.
type Record struct {
	ID        string    `json:"id"`
	Table     string    `json:"table"`
	EntityID  int64     `json:"entity_id"`
	Class     string    `json:"class,omitempty"`
	Value     string    `json:"value"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Pair returns the record's (class, value).
func (r Record) Pair() Pair { return Pair{Class: r.Class, Value: r.Value} }

// Lookup fetches the annotations currently attached to an entity in a table.
type Lookup interface {
	Annotations(ctx context.Context, table string, entity int64) ([]Record, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, table string, entity int64) ([]Record, error)

// Annotations calls f.
func (f LookupFunc) Annotations(ctx context.Context, table string, entity int64) ([]Record, error) {
	return f(ctx, table, entity)
}

// Classes whose values are free text instead of taxonomy labels.
const (
	ClassNeuronIdentity = "neuron identity"
	ClassFreeform       = "freeform"
)

// Classes that may hold several values on one entity.
const (
	ClassPublication           = "publication"
	ClassOtherNeurotransmitter = "other neurotransmitter"
)

var openClasses = map[string]bool{
	ClassNeuronIdentity: true,
	ClassFreeform:       true,
}

var multipleValuesAllowed = map[string]bool{
	ClassOtherNeurotransmitter: true,
	ClassNeuronIdentity:        true,
	ClassFreeform:              true,
	ClassPublication:           true,
}

// IsOpenClass reports whether class takes free-text values.
func IsOpenClass(class string) bool { return openClasses[class] }

// AllowsMultipleValues reports whether an entity may carry several values
// under class.
func AllowsMultipleValues(class string) bool { return multipleValuesAllowed[class] }
