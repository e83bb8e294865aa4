// Package taxonomy builds the label hierarchy that governs paired
// (class, value) annotations.
//
// Nodes are stored in an arena and addressed by NodeID; parent and child
// links are indices into that arena. A label may occur in several places
// in the hierarchy, so the LabelIndex maps each label to every node that
// carries it. A Taxonomy is immutable once built.
package taxonomy

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// NodeID addresses a node inside a Taxonomy.
type NodeID int

// NoParent is the parent of every root node.
const NoParent NodeID = -1

// Entry is one position in a nested hierarchy definition. An entry with no
// children is a leaf.
type Entry struct {
	Label    string
	Children []Entry
}

// Leaf is shorthand for an Entry without children.
func Leaf(label string) Entry { return Entry{Label: label} }

// Branch is shorthand for an Entry with children.
func Branch(label string, children ...Entry) Entry {
	return Entry{Label: label, Children: children}
}

type node struct {
	label    string
	parent   NodeID
	children []NodeID
}

// LabelIndex maps a label to every node carrying it.
type LabelIndex map[string][]NodeID

// Taxonomy is a forest of labeled nodes plus the index over their labels.
type Taxonomy struct {
	nodes []node
	roots []NodeID
	index LabelIndex
}

// Build converts a nested definition into a Taxonomy. Nodes are created in
// declaration order, parents before their children.
func Build(entries []Entry) *Taxonomy {
	t := &Taxonomy{index: make(LabelIndex)}
	for _, e := range entries {
		t.roots = append(t.roots, t.add(e, NoParent))
	}
	return t
}

func (t *Taxonomy) add(e Entry, parent NodeID) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{label: e.Label, parent: parent})
	t.index[e.Label] = append(t.index[e.Label], id)
	if parent != NoParent {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	for _, c := range e.Children {
		t.add(c, id)
	}
	return id
}

// Len returns the number of nodes.
func (t *Taxonomy) Len() int { return len(t.nodes) }

// Label returns the label of a node.
func (t *Taxonomy) Label(id NodeID) string { return t.nodes[id].label }

// Parent returns the parent of a node, or NoParent for roots.
func (t *Taxonomy) Parent(id NodeID) NodeID { return t.nodes[id].parent }

// Children returns a node's children in declaration order.
// The returned slice must not be modified.
func (t *Taxonomy) Children(id NodeID) []NodeID { return t.nodes[id].children }

// IsRoot reports whether the node has no parent.
func (t *Taxonomy) IsRoot(id NodeID) bool { return t.nodes[id].parent == NoParent }

// Roots returns the top-level nodes in declaration order.
func (t *Taxonomy) Roots() []NodeID { return t.roots }

// Nodes returns every node carrying label. The returned slice must not be
// modified.
func (t *Taxonomy) Nodes(label string) []NodeID { return t.index[label] }

// Has reports whether label occurs anywhere in the taxonomy.
func (t *Taxonomy) Has(label string) bool { return len(t.index[label]) > 0 }

// Index returns a copy of the label index.
func (t *Taxonomy) Index() LabelIndex {
	out := make(LabelIndex, len(t.index))
	for label, ids := range t.index {
		out[label] = append([]NodeID(nil), ids...)
	}
	return out
}

// Labels returns every distinct label, sorted.
func (t *Taxonomy) Labels() []string {
	out := make([]string, 0, len(t.index))
	for label := range t.index {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// RootClasses returns the labels carried by exactly one node which is a
// root, in declaration order. Only these labels may start an annotation
// chain on a fresh entity.
func (t *Taxonomy) RootClasses() []string {
	var out []string
	for _, id := range t.roots {
		label := t.nodes[id].label
		if len(t.index[label]) == 1 {
			out = append(out, label)
		}
	}
	return out
}

// IsRootClass reports whether label is one of RootClasses.
func (t *Taxonomy) IsRootClass(label string) bool {
	ids := t.index[label]
	return len(ids) == 1 && t.IsRoot(ids[0])
}

// ParentLabels returns the parent label of every occurrence of label, in
// index order. Roots contribute an empty string.
func (t *Taxonomy) ParentLabels(label string) []string {
	ids := t.index[label]
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p := t.nodes[id].parent; p != NoParent {
			out = append(out, t.nodes[p].label)
		} else {
			out = append(out, "")
		}
	}
	return out
}

// IsChildOf reports whether some node labeled value is a direct child of
// some node labeled class. The comparison is by node, not by string, so the
// same value may be valid under one occurrence of a class label and not
// under another branch that happens to reuse a label.
func (t *Taxonomy) IsChildOf(class, value string) bool {
	classNodes := t.index[class]
	if len(classNodes) == 0 {
		return false
	}
	for _, v := range t.index[value] {
		p := t.nodes[v].parent
		if p == NoParent {
			continue
		}
		for _, c := range classNodes {
			if p == c {
				return true
			}
		}
	}
	return false
}

// Render writes the hierarchy as an indented tree, one node per line.
// Roots whose label occurs more than once are skipped, matching RootClasses.
func (t *Taxonomy) Render(w io.Writer) error {
	for _, id := range t.roots {
		if len(t.index[t.nodes[id].label]) != 1 {
			continue
		}
		if _, err := fmt.Fprintln(w, t.nodes[id].label); err != nil {
			return err
		}
		if err := t.renderChildren(w, id, ""); err != nil {
			return err
		}
	}
	return nil
}

func (t *Taxonomy) renderChildren(w io.Writer, id NodeID, prefix string) error {
	children := t.nodes[id].children
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, branch, t.nodes[c].label); err != nil {
			return err
		}
		if err := t.renderChildren(w, c, prefix+next); err != nil {
			return err
		}
	}
	return nil
}

// String renders the taxonomy into a string.
func (t *Taxonomy) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}
