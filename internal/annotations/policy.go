package annotations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
)

// CheckPost decides whether pair may be added to entity in table, given the
// annotations the entity already has. Records from other tables are
// ignored. The pair is validated first; then, for paired tables:
//
//  1. the exact pair must not already exist;
//  2. the class must not already hold a different value, unless it allows
//     multiple values;
//  3. the class must be a root class or already be a value on the entity.
//
// The answer holds only for the given snapshot; the store has to re-check
// inside its commit to make it stick.
func CheckPost(table *rules.Table, entity int64, pair Pair, existing []Record) error {
	if table.Kind == rules.KindList {
		return checkListPost(table, entity, pair, existing)
	}
	if pair.Class == "" {
		return &NotPairedError{Table: table.Name, Kind: table.Kind}
	}
	if err := ValidatePair(table.Tree, pair.Class, pair.Value); err != nil {
		return err
	}

	var (
		sameClass  string
		haveParent bool
	)
	for _, r := range existing {
		if r.Table != "" && r.Table != table.Name {
			continue
		}
		if r.Class == pair.Class && r.Value == pair.Value {
			return &DuplicateAnnotationError{Entity: entity, Pair: pair}
		}
		if r.Class == pair.Class && sameClass == "" {
			sameClass = r.Value
		}
		if r.Value == pair.Class {
			haveParent = true
		}
	}

	if sameClass != "" && !AllowsMultipleValues(pair.Class) {
		return &RedundantAnnotationError{Entity: entity, Class: pair.Class, Existing: sameClass}
	}
	if !table.Tree.IsRootClass(pair.Class) && !haveParent {
		return &MissingParentAnnotationError{Entity: entity, MissingAnnotation: pair.Class}
	}
	return nil
}

func checkListPost(table *rules.Table, entity int64, pair Pair, existing []Record) error {
	if pair.Class != "" {
		return &NotPairedError{Table: table.Name, Kind: table.Kind}
	}
	if !table.HasTerm(pair.Value) {
		return &UnknownLabelError{Label: pair.Value}
	}
	for _, r := range existing {
		if (r.Table == "" || r.Table == table.Name) && r.Value == pair.Value {
			return &DuplicateAnnotationError{Entity: entity, Pair: pair}
		}
	}
	return nil
}

// PlanPost returns what has to be posted, root first, for pair to be
// accepted on entity: pair preceded by whichever of its ancestors the entity
// is missing. Each missing class is placed under the class GuessClass finds
// for it, so an ambiguous ancestor fails with *AmbiguousClassError. Any other
// policy failure, of pair or of an ancestor, is returned as CheckPost
// reports it.
func PlanPost(table *rules.Table, entity int64, pair Pair, existing []Record) ([]Pair, error) {
	chain := []Pair{pair}
	seen := make(map[string]bool)
	for {
		err := CheckPost(table, entity, chain[0], existing)
		if err == nil {
			break
		}
		var missing *MissingParentAnnotationError
		if !errors.As(err, &missing) || seen[missing.MissingAnnotation] {
			return nil, err
		}
		seen[missing.MissingAnnotation] = true

		class, err := GuessClass(table.Tree, missing.MissingAnnotation)
		if err != nil {
			return nil, err
		}
		chain = append([]Pair{{Class: class, Value: missing.MissingAnnotation}}, chain...)
	}

	// Replay the chain so each step sees the ones posted before it.
	acc := append([]Record(nil), existing...)
	for _, p := range chain {
		if err := CheckPost(table, entity, p, acc); err != nil {
			return nil, err
		}
		acc = append(acc, Record{Table: table.Name, EntityID: entity, Class: p.Class, Value: p.Value})
	}
	return chain, nil
}

// CheckDelete decides whether target may be removed from entity. In a
// paired table a value that other live annotations use as their class
// cannot go while they remain.
func CheckDelete(table *rules.Table, entity int64, target Record, existing []Record) error {
	if table.Kind == rules.KindList {
		return nil
	}
	var deps []Pair
	for _, r := range existing {
		if r.ID == target.ID || (r.Table != "" && r.Table != table.Name) {
			continue
		}
		if r.Class == target.Value {
			deps = append(deps, r.Pair())
		}
	}
	if len(deps) > 0 && !hasOtherParent(existing, target) {
		return &DependentAnnotationError{Entity: entity, Value: target.Value, Dependents: deps}
	}
	return nil
}

// hasOtherParent reports whether another live record carries the same value,
// which keeps the dependents anchored after target is removed.
func hasOtherParent(existing []Record, target Record) bool {
	for _, r := range existing {
		if r.ID != target.ID && r.Value == target.Value {
			return true
		}
	}
	return false
}

// IsAllowedToPost is the boolean form of CheckPost.
func IsAllowedToPost(table *rules.Table, entity int64, pair Pair, existing []Record) bool {
	return CheckPost(table, entity, pair, existing) == nil
}

// --- Engine ---

// Proposal is an annotation someone wants to post.
type Proposal struct {
	Source rules.Source
	Entity int64
	Raw    string // "value", "class: value", "class > value" or "class, value"
}

// Engine resolves tables, parses input and checks proposals against the
// annotations fetched through its Lookup.
type Engine struct {
	registry *rules.Registry
	lookup   Lookup
}

// NewEngine creates an Engine.
func NewEngine(registry *rules.Registry, lookup Lookup) *Engine {
	return &Engine{registry: registry, lookup: lookup}
}

// Registry returns the engine's table registry.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// Prepare resolves the proposal's table and parses and validates its input,
// without looking at existing annotations.
func (e *Engine) Prepare(p Proposal) (*rules.Table, Pair, error) {
	table, err := e.registry.Resolve(p.Source)
	if err != nil {
		return nil, Pair{}, err
	}
	pair, err := ValidateAnnotation(table, p.Raw)
	if err != nil {
		return table, Pair{}, err
	}
	return table, pair, nil
}

// Check runs the full posting policy for a proposal and returns the parsed
// pair. Rule violations are returned as the typed errors of this package;
// lookup failures are wrapped.
func (e *Engine) Check(ctx context.Context, p Proposal) (Pair, error) {
	table, pair, err := e.Prepare(p)
	if err != nil {
		return pair, err
	}
	existing, err := e.lookup.Annotations(ctx, table.Name, p.Entity)
	if err != nil {
		return pair, fmt.Errorf("fetching annotations for segment %d: %w", p.Entity, err)
	}
	return pair, CheckPost(table, p.Entity, pair, existing)
}
