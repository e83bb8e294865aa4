package taxonomy

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeYAML_PreservesOrderAndDepth(t *testing.T) {
	doc := `
"primary class":
  "afferent":
    "sensory neuron": {}
  "efferent":
    "motor neuron": {}
"hemilineage":
  "0A": {}
  "12B":
"freeform": {}
`
	got, err := DecodeYAML([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}

	want := []Entry{
		Branch("primary class",
			Branch("afferent", Leaf("sensory neuron")),
			Branch("efferent", Leaf("motor neuron")),
		),
		Branch("hemilineage", Leaf("0A"), Leaf("12B")),
		Leaf("freeform"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML_Empty(t *testing.T) {
	got, err := DecodeYAML([]byte(""))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestDecodeYAML_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"sequence value", "a:\n  - b\n", "expected a mapping"},
		{"scalar value", "a: b\n", "expected a mapping"},
		{"integer key", "a:\n  1: {}\n", "labels must be strings"},
		{"syntax", "a: [\n", "parsing taxonomy yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestDecodeTermsYAML(t *testing.T) {
	got, err := DecodeTermsYAML([]byte("- spans neck\n- \"merge monster\"\n"))
	if err != nil {
		t.Fatalf("DecodeTermsYAML: %v", err)
	}
	if diff := cmp.Diff([]string{"spans neck", "merge monster"}, got); diff != "" {
		t.Errorf("terms mismatch (-want +got):\n%s", diff)
	}
}
