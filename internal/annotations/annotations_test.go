package annotations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/taxonomy"
)

// --- Helpers ---

const segid = int64(720575941535411994)

// exampleTable is the three-level hierarchy used throughout these tests,
// plus a label ("shared") that occurs under two parents and the open and
// multi-valued classes.
func exampleTable() *rules.Table {
	return rules.NewHierarchyTable("cell_info", []taxonomy.Entry{
		taxonomy.Branch("primary class",
			taxonomy.Branch("afferent",
				taxonomy.Branch("sensory neuron", taxonomy.Leaf("shared")),
			),
			taxonomy.Branch("efferent", taxonomy.Leaf("motor neuron")),
		),
		taxonomy.Branch("body part", taxonomy.Leaf("shared")),
		taxonomy.Branch("other neurotransmitter",
			taxonomy.Leaf("dopaminergic"),
			taxonomy.Leaf("serotonergic"),
		),
		taxonomy.Branch("publication",
			taxonomy.Leaf("Lee et al. 2024"),
			taxonomy.Leaf("Guo et al. 2024"),
		),
		taxonomy.Leaf("neuron identity"),
		taxonomy.Leaf("freeform"),
	})
}

func record(table string, class, value string) Record {
	return Record{Table: table, EntityID: segid, Class: class, Value: value}
}

// memLookup is an in-memory Lookup keyed by (table, entity).
type memLookup struct {
	records []Record
	err     error
}

func (m *memLookup) Annotations(_ context.Context, table string, entity int64) ([]Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Record
	for _, r := range m.records {
		if r.Table == table && r.EntityID == entity {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- GuessClass ---

func TestGuessClass(t *testing.T) {
	tree := exampleTable().Tree

	got, err := GuessClass(tree, "afferent")
	if err != nil {
		t.Fatalf("GuessClass: %v", err)
	}
	if got != "primary class" {
		t.Errorf("class = %q, want primary class", got)
	}
}

func TestGuessClass_Errors(t *testing.T) {
	tree := exampleTable().Tree

	_, err := GuessClass(tree, "primary class")
	var noClass *NoClassError
	if !errors.As(err, &noClass) {
		t.Errorf("root label: error = %v, want *NoClassError", err)
	}

	_, err = GuessClass(tree, "shared")
	var ambiguous *AmbiguousClassError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("multi-parent label: error = %v, want *AmbiguousClassError", err)
	}
	if diff := cmp.Diff([]string{"sensory neuron", "body part"}, ambiguous.Candidates); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}

	_, err = GuessClass(tree, "foo")
	var unknown *UnknownLabelError
	if !errors.As(err, &unknown) {
		t.Errorf("unknown label: error = %v, want *UnknownLabelError", err)
	}
}

// --- ParseString / ParsePair ---

func TestParseString(t *testing.T) {
	tree := exampleTable().Tree

	tests := []struct {
		in   string
		want Pair
	}{
		{"afferent", Pair{"primary class", "afferent"}},
		{"  motor neuron ", Pair{"efferent", "motor neuron"}},
		{"primary class: afferent", Pair{"primary class", "afferent"}},
		{"primary class > afferent", Pair{"primary class", "afferent"}},
		{"primary class, afferent", Pair{"primary class", "afferent"}},
		{"primary class:afferent", Pair{"primary class", "afferent"}},
		// ":" has priority over ">" and "," even when it comes later.
		{"a > b: c", Pair{"a > b", "c"}},
		{"a, b > c", Pair{"a, b", "c"}},
		{"neuron identity: foo: bar", Pair{"neuron identity", "foo: bar"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseString(tree, tt.in)
			if err != nil {
				t.Fatalf("ParseString(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseString(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseString_Errors(t *testing.T) {
	tree := exampleTable().Tree

	tests := []struct {
		in   string
		kind string
	}{
		{"", "type_mismatch"},
		{"   ", "type_mismatch"},
		{": afferent", "type_mismatch"},
		{"primary class:", "type_mismatch"},
		{"foo", "unknown_label"},
		{"shared", "ambiguous_class"},
		{"primary class", "no_class"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseString(tree, tt.in)
			if got := Kind(err); got != tt.kind {
				t.Errorf("Kind(ParseString(%q)) = %q (%v), want %q", tt.in, got, err, tt.kind)
			}
		})
	}
}

func TestParsePair(t *testing.T) {
	got, err := ParsePair([]string{" primary class ", "afferent "})
	if err != nil {
		t.Fatalf("ParsePair: %v", err)
	}
	if got != (Pair{"primary class", "afferent"}) {
		t.Errorf("ParsePair = %+v", got)
	}

	for _, elems := range [][]string{nil, {"one"}, {"a", "b", "c"}} {
		_, err := ParsePair(elems)
		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("ParsePair(%q): error = %v, want *TypeMismatchError", elems, err)
		}
	}
}

// --- ValidatePair ---

func TestValidatePair_SameLeafUnderTwoParents(t *testing.T) {
	tree := exampleTable().Tree

	if err := ValidatePair(tree, "sensory neuron", "shared"); err != nil {
		t.Errorf("sensory neuron > shared: %v", err)
	}
	if err := ValidatePair(tree, "body part", "shared"); err != nil {
		t.Errorf("body part > shared: %v", err)
	}

	err := ValidatePair(tree, "afferent", "shared")
	var wrong *WrongClassError
	if !errors.As(err, &wrong) {
		t.Fatalf("afferent > shared: error = %v, want *WrongClassError", err)
	}
	if diff := cmp.Diff([]string{"sensory neuron", "body part"}, wrong.ActualClasses); diff != "" {
		t.Errorf("actual classes mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "belongs to classes") {
		t.Errorf("message should list the actual classes, got: %s", err)
	}
}

func TestValidatePair_ReportsActualClass(t *testing.T) {
	tree := exampleTable().Tree

	err := ValidatePair(tree, "primary class", "motor neuron")
	var wrong *WrongClassError
	if !errors.As(err, &wrong) {
		t.Fatalf("error = %v, want *WrongClassError", err)
	}
	if diff := cmp.Diff([]string{"efferent"}, wrong.ActualClasses); diff != "" {
		t.Errorf("actual classes mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), `belongs to class "efferent"`) {
		t.Errorf("message should name efferent, got: %s", err)
	}
	if s := Suggest(err); !strings.Contains(s, "efferent: motor neuron") {
		t.Errorf("Suggest = %q, want it to offer efferent: motor neuron", s)
	}
}

func TestValidatePair_RootAsValue(t *testing.T) {
	tree := exampleTable().Tree

	err := ValidatePair(tree, "afferent", "primary class")
	var wrong *WrongClassError
	if !errors.As(err, &wrong) {
		t.Fatalf("error = %v, want *WrongClassError", err)
	}
	if diff := cmp.Diff([]string{"<no class>"}, wrong.ActualClasses); diff != "" {
		t.Errorf("actual classes mismatch (-want +got):\n%s", diff)
	}
	if Suggest(err) != "" {
		t.Errorf("Suggest for a root value should be empty, got %q", Suggest(err))
	}
}

func TestValidatePair_Unknowns(t *testing.T) {
	tree := exampleTable().Tree

	if k := Kind(ValidatePair(tree, "nope", "afferent")); k != "unknown_class" {
		t.Errorf("unknown class: kind = %q", k)
	}
	if k := Kind(ValidatePair(tree, "primary class", "nope")); k != "unknown_label" {
		t.Errorf("unknown value: kind = %q", k)
	}
}

func TestValidatePair_FreeText(t *testing.T) {
	tree := exampleTable().Tree

	tests := []struct {
		class, value string
		rule         string // "" means valid
	}{
		{"freeform", "weird arbor", ""},
		{"neuron identity", "DNa02", ""},
		{"freeform", "black & white", ""},
		{"freeform", "candy", ""},
		{"freeform", "A and B", RuleContainsAnd},
		{"freeform", "A AND B", RuleContainsAnd},
		{"freeform", "and then", RuleContainsAnd},
		{"freeform", "this and", RuleContainsAnd},
		{"freeform", "not flying", RuleStartsWithNot},
		{"neuron identity", "Not a DN", RuleStartsWithNot},
		{"freeform", "afferent", RuleShadowsLabel},
		{"neuron identity", "sensory neuron", RuleShadowsLabel},
	}
	for _, tt := range tests {
		t.Run(tt.class+":"+tt.value, func(t *testing.T) {
			err := ValidatePair(tree, tt.class, tt.value)
			if tt.rule == "" {
				if err != nil {
					t.Errorf("expected valid, got %v", err)
				}
				return
			}
			var ft *FreeTextError
			if !errors.As(err, &ft) {
				t.Fatalf("error = %v, want *FreeTextError", err)
			}
			if ft.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", ft.Rule, tt.rule)
			}
		})
	}
}

func TestIsValidPair(t *testing.T) {
	tree := exampleTable().Tree
	if !IsValidPair(tree, "primary class", "afferent") {
		t.Error("primary class: afferent should be valid")
	}
	if IsValidPair(tree, "afferent", "primary class") {
		t.Error("afferent: primary class should be invalid")
	}
}

// --- ValidateAnnotation ---

func TestValidateAnnotation_ListTable(t *testing.T) {
	table := rules.NewListTable("proofreading_notes", []string{"merge monster", "spans neck"})

	got, err := ValidateAnnotation(table, " merge monster ")
	if err != nil {
		t.Fatalf("ValidateAnnotation: %v", err)
	}
	if got != (Pair{Value: "merge monster"}) {
		t.Errorf("pair = %+v", got)
	}
	if k := Kind(mustErr(ValidateAnnotation(table, "n mjr mrg rrrs"))); k != "unknown_label" {
		t.Errorf("garbled term kind = %q", k)
	}
	if k := Kind(mustErr(ValidateAnnotation(table, ""))); k != "type_mismatch" {
		t.Errorf("empty term kind = %q", k)
	}
}

func TestValidateExplicitPair(t *testing.T) {
	if _, err := ValidateExplicitPair(exampleTable(), "primary class", "afferent"); err != nil {
		t.Errorf("ValidateExplicitPair: %v", err)
	}
	list := rules.NewListTable("notes", []string{"x"})
	if k := Kind(mustErr(ValidateExplicitPair(list, "a", "x"))); k != "not_paired" {
		t.Errorf("list table kind = %q, want not_paired", k)
	}
}

func mustErr(_ Pair, err error) error { return err }

// --- CheckPost ---

func TestCheckPost_ExampleScenario(t *testing.T) {
	table := exampleTable()
	var existing []Record

	// Root class on a fresh entity.
	p1 := Pair{"primary class", "afferent"}
	if err := CheckPost(table, segid, p1, existing); err != nil {
		t.Fatalf("post %s: %v", p1, err)
	}
	existing = append(existing, record("cell_info", p1.Class, p1.Value))

	// Parent now present.
	p2 := Pair{"afferent", "sensory neuron"}
	if err := CheckPost(table, segid, p2, existing); err != nil {
		t.Fatalf("post %s: %v", p2, err)
	}
	existing = append(existing, record("cell_info", p2.Class, p2.Value))

	// Same pair again.
	err := CheckPost(table, segid, p2, existing)
	var dup *DuplicateAnnotationError
	if !errors.As(err, &dup) {
		t.Fatalf("repeat %s: error = %v, want *DuplicateAnnotationError", p2, err)
	}

	// Different value under an already used single-value class.
	err = CheckPost(table, segid, Pair{"primary class", "efferent"}, existing)
	var red *RedundantAnnotationError
	if !errors.As(err, &red) {
		t.Fatalf("primary class: efferent: error = %v, want *RedundantAnnotationError", err)
	}
	if red.Existing != "afferent" {
		t.Errorf("Existing = %q, want afferent", red.Existing)
	}
}

func TestCheckPost_RootFirstOrdering(t *testing.T) {
	table := exampleTable()
	child := Pair{"afferent", "sensory neuron"}

	err := CheckPost(table, segid, child, nil)
	var missing *MissingParentAnnotationError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingParentAnnotationError", err)
	}
	if missing.MissingAnnotation != "afferent" {
		t.Errorf("MissingAnnotation = %q, want afferent", missing.MissingAnnotation)
	}
	if s := Suggest(err); !strings.Contains(s, `"afferent"`) {
		t.Errorf("Suggest = %q, want it to mention afferent", s)
	}

	existing := []Record{record("cell_info", "primary class", "afferent")}
	if err := CheckPost(table, segid, child, existing); err != nil {
		t.Errorf("after parent is posted: %v", err)
	}
}

func TestCheckPost_DuplicateIsOrderIndependent(t *testing.T) {
	table := exampleTable()
	pair := Pair{"body part", "shared"}
	existing := []Record{
		record("cell_info", "body part", "shared"),
		record("cell_info", "primary class", "afferent"),
	}
	reversed := []Record{existing[1], existing[0]}

	for _, ex := range [][]Record{existing, reversed} {
		var dup *DuplicateAnnotationError
		if err := CheckPost(table, segid, pair, ex); !errors.As(err, &dup) {
			t.Errorf("error = %v, want *DuplicateAnnotationError", err)
		}
	}
}

func TestCheckPost_MultipleValueClasses(t *testing.T) {
	table := exampleTable()

	tests := []struct {
		class, first, second string
	}{
		{"freeform", "odd arbor", "weird soma"},
		{"neuron identity", "DNa01", "DNa02"},
		{"publication", "Lee et al. 2024", "Guo et al. 2024"},
		{"other neurotransmitter", "dopaminergic", "serotonergic"},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			existing := []Record{record("cell_info", tt.class, tt.first)}
			if err := CheckPost(table, segid, Pair{tt.class, tt.second}, existing); err != nil {
				t.Errorf("second value under %q rejected: %v", tt.class, err)
			}
			var dup *DuplicateAnnotationError
			if err := CheckPost(table, segid, Pair{tt.class, tt.first}, existing); !errors.As(err, &dup) {
				t.Errorf("exact repeat under %q: error = %v, want duplicate", tt.class, err)
			}
		})
	}
}

func TestCheckPost_FreeTextRules(t *testing.T) {
	table := exampleTable()
	for _, value := range []string{"A and B", "not flying", "afferent"} {
		err := CheckPost(table, segid, Pair{"freeform", value}, nil)
		var ft *FreeTextError
		if !errors.As(err, &ft) {
			t.Errorf("freeform: %q: error = %v, want *FreeTextError", value, err)
		}
	}
}

func TestCheckPost_InvalidPairRejectedBeforePolicy(t *testing.T) {
	table := exampleTable()
	err := CheckPost(table, segid, Pair{"primary class", "sensory neuron"}, nil)
	var wrong *WrongClassError
	if !errors.As(err, &wrong) {
		t.Errorf("error = %v, want *WrongClassError", err)
	}
}

func TestCheckPost_IgnoresOtherTables(t *testing.T) {
	table := exampleTable()
	existing := []Record{record("neuron_information", "primary class", "efferent")}

	if err := CheckPost(table, segid, Pair{"primary class", "afferent"}, existing); err != nil {
		t.Errorf("record from another table should not count: %v", err)
	}
	err := CheckPost(table, segid, Pair{"efferent", "motor neuron"}, existing)
	var missing *MissingParentAnnotationError
	if !errors.As(err, &missing) {
		t.Errorf("parent from another table should not count: error = %v", err)
	}
}

func TestCheckPost_ListTable(t *testing.T) {
	table := rules.NewListTable("proofreading_notes", []string{"merge monster", "spans neck"})
	existing := []Record{{Table: "proofreading_notes", EntityID: segid, Value: "spans neck"}}

	if err := CheckPost(table, segid, Pair{Value: "merge monster"}, existing); err != nil {
		t.Errorf("new note rejected: %v", err)
	}
	if k := Kind(CheckPost(table, segid, Pair{Value: "spans neck"}, existing)); k != "duplicate" {
		t.Errorf("repeat note kind = %q, want duplicate", k)
	}
	if k := Kind(CheckPost(table, segid, Pair{Value: "glia"}, existing)); k != "unknown_label" {
		t.Errorf("unknown note kind = %q, want unknown_label", k)
	}
	if k := Kind(CheckPost(table, segid, Pair{Class: "x", Value: "spans neck"}, nil)); k != "not_paired" {
		t.Errorf("paired input kind = %q, want not_paired", k)
	}
	if !IsAllowedToPost(table, segid, Pair{Value: "merge monster"}, nil) {
		t.Error("IsAllowedToPost should be true for a fresh note")
	}
}

// --- Engine ---

func TestEngine_Check(t *testing.T) {
	lookup := &memLookup{records: []Record{
		record("cell_info", "primary class", "afferent"),
	}}
	reg := rules.NewRegistry(exampleTable())
	engine := NewEngine(reg, lookup)
	ctx := context.Background()

	pair, err := engine.Check(ctx, Proposal{Source: rules.Named("cell_info"), Entity: segid, Raw: "afferent > sensory neuron"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pair != (Pair{"afferent", "sensory neuron"}) {
		t.Errorf("pair = %+v", pair)
	}

	_, err = engine.Check(ctx, Proposal{Source: rules.Named(""), Entity: segid, Raw: "efferent"})
	if k := Kind(err); k != "redundant" {
		t.Errorf("default-table redundant post: kind = %q (%v)", k, err)
	}

	_, err = engine.Check(ctx, Proposal{Source: rules.Named("nope"), Entity: segid, Raw: "afferent"})
	if k := Kind(err); k != "unknown_table" {
		t.Errorf("unknown table kind = %q", k)
	}
}

func TestEngine_Check_LookupFailure(t *testing.T) {
	boom := errors.New("database is down")
	engine := NewEngine(rules.NewRegistry(exampleTable()), &memLookup{err: boom})

	_, err := engine.Check(context.Background(), Proposal{Entity: segid, Raw: "afferent"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped lookup error", err)
	}
	if IsRuleError(err) {
		t.Error("lookup failure must not be classified as a rule error")
	}
}

func TestEngine_InlineSource(t *testing.T) {
	inline := rules.NewListTable("scratch", []string{"ok"})
	engine := NewEngine(rules.NewRegistry(exampleTable()), LookupFunc(
		func(context.Context, string, int64) ([]Record, error) { return nil, nil },
	))

	pair, err := engine.Check(context.Background(), Proposal{Source: rules.Inline{Table: inline}, Entity: 1, Raw: "ok"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pair.Value != "ok" {
		t.Errorf("pair = %+v", pair)
	}
}

// --- SplitPair / CheckDelete ---

func TestSplitPair(t *testing.T) {
	tests := []struct {
		in   string
		want Pair
	}{
		{"sensory neuron", Pair{Value: "sensory neuron"}},
		{"afferent > sensory neuron", Pair{"afferent", "sensory neuron"}},
		{" primary class:afferent ", Pair{"primary class", "afferent"}},
	}
	for _, tt := range tests {
		got, err := SplitPair(tt.in)
		if err != nil {
			t.Fatalf("SplitPair(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("SplitPair(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if k := Kind(mustErr(SplitPair("  "))); k != "type_mismatch" {
		t.Errorf("empty input kind = %q", k)
	}
}

func TestCheckDelete(t *testing.T) {
	table := exampleTable()
	root := Record{ID: "1", Table: "cell_info", Class: "primary class", Value: "afferent"}
	child := Record{ID: "2", Table: "cell_info", Class: "afferent", Value: "sensory neuron"}
	existing := []Record{root, child}

	err := CheckDelete(table, segid, root, existing)
	var dep *DependentAnnotationError
	if !errors.As(err, &dep) {
		t.Fatalf("error = %v, want *DependentAnnotationError", err)
	}
	if diff := cmp.Diff([]Pair{child.Pair()}, dep.Dependents); diff != "" {
		t.Errorf("dependents mismatch (-want +got):\n%s", diff)
	}
	if Kind(err) != "has_dependents" {
		t.Errorf("kind = %q", Kind(err))
	}

	if err := CheckDelete(table, segid, child, existing); err != nil {
		t.Errorf("leaf delete rejected: %v", err)
	}

	// A second record with the same value keeps the child anchored.
	twin := Record{ID: "3", Table: "cell_info", Class: "freeform", Value: "afferent"}
	if err := CheckDelete(table, segid, root, append(existing, twin)); err != nil {
		t.Errorf("delete with remaining twin rejected: %v", err)
	}

	list := rules.NewListTable("proofreading_notes", []string{"merge monster"})
	if err := CheckDelete(list, segid, Record{ID: "9", Value: "merge monster"}, nil); err != nil {
		t.Errorf("list delete rejected: %v", err)
	}
}

func TestPlanPost(t *testing.T) {
	table := exampleTable()

	tests := []struct {
		name     string
		pair     Pair
		existing []Record
		want     []Pair
	}{
		{
			name: "fresh segment gets the whole chain",
			pair: Pair{Class: "sensory neuron", Value: "shared"},
			want: []Pair{
				{Class: "primary class", Value: "afferent"},
				{Class: "afferent", Value: "sensory neuron"},
				{Class: "sensory neuron", Value: "shared"},
			},
		},
		{
			name:     "existing ancestors are not reposted",
			pair:     Pair{Class: "sensory neuron", Value: "shared"},
			existing: []Record{record("cell_info", "primary class", "afferent")},
			want: []Pair{
				{Class: "afferent", Value: "sensory neuron"},
				{Class: "sensory neuron", Value: "shared"},
			},
		},
		{
			name: "root class needs nothing",
			pair: Pair{Class: "primary class", Value: "efferent"},
			want: []Pair{{Class: "primary class", Value: "efferent"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanPost(table, segid, tt.pair, tt.existing)
			if err != nil {
				t.Fatalf("PlanPost: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("chain mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanPost_Errors(t *testing.T) {
	table := exampleTable()

	// The ancestor conflicts with a value already on the segment.
	existing := []Record{record("cell_info", "primary class", "efferent")}
	_, err := PlanPost(table, segid, Pair{Class: "afferent", Value: "sensory neuron"}, existing)
	var redundant *RedundantAnnotationError
	if !errors.As(err, &redundant) {
		t.Errorf("error = %v, want *RedundantAnnotationError", err)
	}

	// The requested pair itself is a duplicate.
	existing = []Record{record("cell_info", "primary class", "afferent")}
	_, err = PlanPost(table, segid, Pair{Class: "primary class", Value: "afferent"}, existing)
	var dup *DuplicateAnnotationError
	if !errors.As(err, &dup) {
		t.Errorf("error = %v, want *DuplicateAnnotationError", err)
	}

	// "x" sits under two classes, so its own class cannot be guessed.
	ambiguous := rules.NewHierarchyTable("t", []taxonomy.Entry{
		taxonomy.Branch("a", taxonomy.Branch("x", taxonomy.Leaf("y"))),
		taxonomy.Branch("b", taxonomy.Leaf("x")),
	})
	_, err = PlanPost(ambiguous, segid, Pair{Class: "x", Value: "y"}, nil)
	var amb *AmbiguousClassError
	if !errors.As(err, &amb) {
		t.Fatalf("error = %v, want *AmbiguousClassError", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, amb.Candidates); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}
