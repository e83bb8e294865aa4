package annotations

import (
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/taxonomy"
)

// Separators that split "class<sep>value", in priority order.
var separators = []string{":", ">", ","}

// noClassLabel stands in for the parent of a root in error messages.
const noClassLabel = "<no class>"

// GuessClass returns the class of a bare annotation. It fails when the label
// is unknown, occurs under several parents, or is a root.
func GuessClass(tax *taxonomy.Taxonomy, label string) (string, error) {
	nodes := tax.Nodes(label)
	switch {
	case len(nodes) == 0:
		return "", &UnknownLabelError{Label: label}
	case len(nodes) > 1:
		return "", &AmbiguousClassError{Label: label, Candidates: classNames(tax.ParentLabels(label))}
	case tax.IsRoot(nodes[0]):
		return "", &NoClassError{Label: label}
	}
	return tax.Label(tax.Parent(nodes[0])), nil
}

// ParseString turns user input into a pair. Input without a separator is a
// bare value whose class is guessed from the taxonomy. Otherwise the string
// is split on the first separator present, trying ":" then ">" then ",".
func ParseString(tax *taxonomy.Taxonomy, s string) (Pair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pair{}, &TypeMismatchError{Reason: "empty annotation"}
	}

	if class, value, found := cutSeparator(s); found {
		return ParsePair([]string{class, value})
	}

	class, err := GuessClass(tax, s)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Class: class, Value: s}, nil
}

// SplitPair parses "class<sep>value" without consulting a taxonomy. Input
// without a separator is returned as a bare value with no class.
func SplitPair(s string) (Pair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pair{}, &TypeMismatchError{Reason: "empty annotation"}
	}
	if class, value, found := cutSeparator(s); found {
		return ParsePair([]string{class, value})
	}
	return Pair{Value: s}, nil
}

func cutSeparator(s string) (class, value string, found bool) {
	for _, sep := range separators {
		if class, value, found = strings.Cut(s, sep); found {
			return class, value, true
		}
	}
	return "", "", false
}

// ParsePair accepts an explicit (class, value) pair. Both sides are trimmed
// and must be non-empty.
func ParsePair(elems []string) (Pair, error) {
	if len(elems) != 2 {
		return Pair{}, &TypeMismatchError{Reason: "a pair needs exactly two elements"}
	}
	p := Pair{Class: strings.TrimSpace(elems[0]), Value: strings.TrimSpace(elems[1])}
	if p.Class == "" || p.Value == "" {
		return Pair{}, &TypeMismatchError{Reason: "class and value must both be non-empty"}
	}
	return p, nil
}

func classNames(parents []string) []string {
	out := make([]string, len(parents))
	for i, p := range parents {
		if p == "" {
			p = noClassLabel
		}
		out[i] = p
	}
	return out
}
