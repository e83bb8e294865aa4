package annotations

import (
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/taxonomy"
)

// ValidatePair checks that value may be used under class. Open classes
// accept free text subject to the free-text rules; every other class must
// be a parent of value somewhere in the taxonomy.
func ValidatePair(tax *taxonomy.Taxonomy, class, value string) error {
	if IsOpenClass(class) {
		return validateFreeText(tax, class, value)
	}

	if !tax.Has(class) {
		return &UnknownClassError{Class: class}
	}
	if !tax.Has(value) {
		return &UnknownLabelError{Label: value}
	}
	if tax.IsChildOf(class, value) {
		return nil
	}
	return &WrongClassError{
		Class:         class,
		Value:         value,
		ActualClasses: classNames(tax.ParentLabels(value)),
	}
}

// IsValidPair is the boolean form of ValidatePair.
func IsValidPair(tax *taxonomy.Taxonomy, class, value string) bool {
	return ValidatePair(tax, class, value) == nil
}

// validateFreeText keeps free text from duplicating taxonomy labels or
// encoding boolean logic.
func validateFreeText(tax *taxonomy.Taxonomy, class, value string) error {
	if strings.TrimSpace(value) == "" {
		return &TypeMismatchError{Reason: "free-text annotation is empty"}
	}
	if tax.Has(value) {
		return &FreeTextError{Class: class, Value: value, Rule: RuleShadowsLabel}
	}
	lower := strings.ToLower(value)
	if strings.Contains(lower, " and ") ||
		strings.HasPrefix(lower, "and ") ||
		strings.HasSuffix(lower, " and") {
		return &FreeTextError{Class: class, Value: value, Rule: RuleContainsAnd}
	}
	if strings.HasPrefix(lower, "not ") {
		return &FreeTextError{Class: class, Value: value, Rule: RuleStartsWithNot}
	}
	return nil
}

// ValidateAnnotation parses raw input for a table and checks its validity.
// For list tables the input must be one of the table's terms and the
// returned pair has no class.
func ValidateAnnotation(table *rules.Table, raw string) (Pair, error) {
	if table.Kind == rules.KindList {
		term := strings.TrimSpace(raw)
		if term == "" {
			return Pair{}, &TypeMismatchError{Reason: "empty annotation"}
		}
		if !table.HasTerm(term) {
			return Pair{}, &UnknownLabelError{Label: term}
		}
		return Pair{Value: term}, nil
	}

	p, err := ParseString(table.Tree, raw)
	if err != nil {
		return Pair{}, err
	}
	if err := ValidatePair(table.Tree, p.Class, p.Value); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// ValidateExplicitPair validates a pair given as separate class and value
// fields against a paired table.
func ValidateExplicitPair(table *rules.Table, class, value string) (Pair, error) {
	if table.Kind != rules.KindHierarchy {
		return Pair{}, &NotPairedError{Table: table.Name, Kind: table.Kind}
	}
	p, err := ParsePair([]string{class, value})
	if err != nil {
		return Pair{}, err
	}
	if err := ValidatePair(table.Tree, p.Class, p.Value); err != nil {
		return Pair{}, err
	}
	return p, nil
}
