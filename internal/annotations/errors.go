package annotations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
)

// HelpURL documents the annotation scheme. Rule errors point users at it.
const HelpURL = "https://banc.community/Annotations-(cell-types,-etc.)"

var helpMsg = "See the annotation scheme described at " + HelpURL

// --- Lookup errors ---

// UnknownClassError: the class of a pair is not a label in the taxonomy.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("annotation class %q not recognized. %s", e.Class, helpMsg)
}

// UnknownLabelError: the annotation is not a label in the taxonomy (or not
// a term of a list table).
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("annotation %q not recognized. %s", e.Label, helpMsg)
}

// AmbiguousClassError: a bare annotation occurs under several classes, so
// the caller must name the class explicitly.
type AmbiguousClassError struct {
	Label      string
	Candidates []string
}

func (e *AmbiguousClassError) Error() string {
	return fmt.Sprintf("class of %q could not be guessed because it has multiple possible classes (%s). %s",
		e.Label, quoteList(e.Candidates), helpMsg)
}

// NoClassError: a bare annotation is a root label and therefore has no class.
type NoClassError struct {
	Label string
}

func (e *NoClassError) Error() string {
	return fmt.Sprintf("%q is a base annotation with no class. %s", e.Label, helpMsg)
}

// TypeMismatchError: the input has the wrong shape, e.g. an empty string or
// a pair without exactly two elements.
type TypeMismatchError struct {
	Reason string
}

func (e *TypeMismatchError) Error() string {
	return "annotation must be a string or a (class, value) pair: " + e.Reason
}

// NotPairedError: a pair was supplied for a table that takes single tags,
// or the reverse.
type NotPairedError struct {
	Table string
	Kind  rules.Kind
}

func (e *NotPairedError) Error() string {
	if e.Kind == rules.KindList {
		return fmt.Sprintf("table %q does not use paired annotations", e.Table)
	}
	return fmt.Sprintf("table %q only accepts (class, value) pairs", e.Table)
}

// --- Validity errors ---

// WrongClassError: the value exists but not under the requested class.
// ActualClasses lists where the value does occur so the caller can fix the
// input.
type WrongClassError struct {
	Class         string
	Value         string
	ActualClasses []string
}

func (e *WrongClassError) Error() string {
	if len(e.ActualClasses) == 1 {
		return fmt.Sprintf("annotation %q belongs to class %q but you specified class %q. %s",
			e.Value, e.ActualClasses[0], e.Class, helpMsg)
	}
	return fmt.Sprintf("annotation %q belongs to classes [%s] but you specified class %q. %s",
		e.Value, quoteList(e.ActualClasses), e.Class, helpMsg)
}

// Free-text rule names.
const (
	RuleShadowsLabel  = "shadows-label"
	RuleContainsAnd   = "contains-and"
	RuleStartsWithNot = "starts-with-not"
)

// FreeTextError: a value for an open class breaks one of the free-text rules.
type FreeTextError struct {
	Class string
	Value string
	Rule  string
}

func (e *FreeTextError) Error() string {
	switch e.Rule {
	case RuleShadowsLabel:
		return fmt.Sprintf("the term %q is a class, not an identity. %s", e.Value, helpMsg)
	case RuleContainsAnd:
		return `an annotation may not contain " and ". Consider using "&" instead.`
	case RuleStartsWithNot:
		return `an annotation may not start with "not ". Try to rephrase the annotation.`
	default:
		return fmt.Sprintf("free-text annotation %q rejected by rule %s", e.Value, e.Rule)
	}
}

// --- Posting policy errors ---

// DuplicateAnnotationError: the entity already carries this exact annotation.
type DuplicateAnnotationError struct {
	Entity int64
	Pair   Pair
}

func (e *DuplicateAnnotationError) Error() string {
	if e.Pair.Class == "" {
		return fmt.Sprintf("segment %d already has the annotation %q", e.Entity, e.Pair.Value)
	}
	return fmt.Sprintf("segment %d already has this exact annotation pair (%s)", e.Entity, e.Pair)
}

// RedundantAnnotationError: the entity already has a different value under
// the same class and the class allows only one.
type RedundantAnnotationError struct {
	Entity   int64
	Class    string
	Existing string
}

func (e *RedundantAnnotationError) Error() string {
	return fmt.Sprintf("segment %d already has an annotation with class %q (%q). %s",
		e.Entity, e.Class, e.Existing, helpMsg)
}

// MissingParentAnnotationError: the class of the proposed pair is neither a
// root class nor an annotation the entity already has. Posting
// MissingAnnotation first would make the proposal acceptable.
type MissingParentAnnotationError struct {
	Entity            int64
	MissingAnnotation string
}

func (e *MissingParentAnnotationError) Error() string {
	return fmt.Sprintf("segment %d must be annotated with %q before this term can be used as an annotation class. %s",
		e.Entity, e.MissingAnnotation, helpMsg)
}

// DependentAnnotationError: deleting Value would orphan annotations on the
// entity that use it as their class.
type DependentAnnotationError struct {
	Entity     int64
	Value      string
	Dependents []Pair
}

func (e *DependentAnnotationError) Error() string {
	deps := make([]string, len(e.Dependents))
	for i, p := range e.Dependents {
		deps[i] = p.String()
	}
	return fmt.Sprintf("segment %d has annotations that depend on %q (%s); delete those first",
		e.Entity, e.Value, quoteList(deps))
}

// --- Classification ---

// Kind returns a short stable label for a rule error, used in metrics and
// tool responses. Errors that are not rule errors map to "other".
func Kind(err error) string {
	var (
		unknownTable *rules.UnknownTableError
		unknownClass *UnknownClassError
		unknownLabel *UnknownLabelError
		ambiguous    *AmbiguousClassError
		noClass      *NoClassError
		mismatch     *TypeMismatchError
		notPaired    *NotPairedError
		wrongClass   *WrongClassError
		freeText     *FreeTextError
		duplicate    *DuplicateAnnotationError
		redundant    *RedundantAnnotationError
		missing      *MissingParentAnnotationError
		dependents   *DependentAnnotationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknownTable):
		return "unknown_table"
	case errors.As(err, &unknownClass):
		return "unknown_class"
	case errors.As(err, &unknownLabel):
		return "unknown_label"
	case errors.As(err, &ambiguous):
		return "ambiguous_class"
	case errors.As(err, &noClass):
		return "no_class"
	case errors.As(err, &mismatch):
		return "type_mismatch"
	case errors.As(err, &notPaired):
		return "not_paired"
	case errors.As(err, &wrongClass):
		return "wrong_class"
	case errors.As(err, &freeText):
		return "free_text"
	case errors.As(err, &duplicate):
		return "duplicate"
	case errors.As(err, &redundant):
		return "redundant"
	case errors.As(err, &missing):
		return "missing_parent"
	case errors.As(err, &dependents):
		return "has_dependents"
	default:
		return "other"
	}
}

// IsRuleError reports whether err is one of the deterministic rule errors
// (as opposed to an I/O or programming failure).
func IsRuleError(err error) bool {
	k := Kind(err)
	return k != "" && k != "other"
}

// Suggest returns the corrective action implied by a rule error, or "" if
// there is none.
func Suggest(err error) string {
	var (
		missing    *MissingParentAnnotationError
		wrongClass *WrongClassError
		ambiguous  *AmbiguousClassError
		freeText   *FreeTextError
		redundant  *RedundantAnnotationError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("post %q to this segment first", missing.MissingAnnotation)
	case errors.As(err, &wrongClass):
		var opts []string
		for _, c := range wrongClass.ActualClasses {
			if c != "" && c != noClassLabel {
				opts = append(opts, Pair{Class: c, Value: wrongClass.Value}.String())
			}
		}
		if len(opts) == 0 {
			return ""
		}
		return "did you mean " + quoteList(opts) + "?"
	case errors.As(err, &ambiguous):
		var opts []string
		for _, c := range ambiguous.Candidates {
			opts = append(opts, Pair{Class: c, Value: ambiguous.Label}.String())
		}
		return "name the class explicitly, e.g. " + quoteList(opts)
	case errors.As(err, &freeText):
		if freeText.Rule == RuleContainsAnd {
			return `use "&" instead of "and"`
		}
		return ""
	case errors.As(err, &redundant):
		return fmt.Sprintf("delete %q from this segment first if it is wrong", redundant.Existing)
	default:
		return ""
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
