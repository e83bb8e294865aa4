// Package rules holds the managed annotation tables and the taxonomies
// that govern them.
//
// The rule assets live in data/ and are embedded into the binary. The
// manifest (tables.yaml) names every managed table and the files its rules
// are assembled from.
package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/taxonomy"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// ManifestFile is the name of the table manifest inside a rules FS.
const ManifestFile = "tables.yaml"

// --- Table kinds ---

// Kind distinguishes paired (class, value) tables from single-tag tables.
type Kind string

const (
	// KindHierarchy tables take (class, value) pairs checked against a taxonomy.
	KindHierarchy Kind = "hierarchy"
	// KindList tables take a single tag from a fixed list.
	KindList Kind = "list"
)

// Table is one managed annotation table.
type Table struct {
	Name  string
	Kind  Kind
	Tree  *taxonomy.Taxonomy // set for KindHierarchy
	Terms []string           // set for KindList
}

// NewHierarchyTable builds a paired table from a nested definition.
func NewHierarchyTable(name string, entries []taxonomy.Entry) *Table {
	return &Table{Name: name, Kind: KindHierarchy, Tree: taxonomy.Build(entries)}
}

// NewListTable builds a single-tag table.
func NewListTable(name string, terms []string) *Table {
	return &Table{Name: name, Kind: KindList, Terms: append([]string(nil), terms...)}
}

// HasTerm reports whether term is allowed in a list table.
func (t *Table) HasTerm(term string) bool {
	for _, s := range t.Terms {
		if s == term {
			return true
		}
	}
	return false
}

// UnknownTableError is returned when a table name has no rules.
type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("no annotation rules found for table %q", e.Name)
}

// --- Source: which rules a caller wants ---

// Source selects the rules to validate against: either a registered table
// by name or a table supplied directly by the caller.
type Source interface {
	isSource()
}

// Named selects a registered table.
type Named string

// Inline supplies a table directly.
type Inline struct {
	Table *Table
}

func (Named) isSource()  {}
func (Inline) isSource() {}

// --- Registry ---

// Registry is the immutable set of managed tables.
type Registry struct {
	tables       map[string]*Table
	order        []string
	defaultTable string
}

type manifest struct {
	Tables []struct {
		Name  string   `yaml:"name"`
		Files []string `yaml:"files"`
	} `yaml:"tables"`
	Default string `yaml:"default"`
}

// NewRegistry builds a registry from already constructed tables. The first
// table is the default.
func NewRegistry(tables ...*Table) *Registry {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, dup := r.tables[t.Name]; !dup {
			r.order = append(r.order, t.Name)
		}
		r.tables[t.Name] = t
	}
	if len(r.order) > 0 {
		r.defaultTable = r.order[0]
	}
	return r
}

// Load reads a manifest and its rule files from fsys.
//
// A table whose files decode to mappings is a hierarchy; the top-level keys
// of every file are concatenated as roots. A table whose single file is a
// sequence is a list table.
func Load(fsys fs.FS) (*Registry, error) {
	raw, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}

	r := &Registry{tables: make(map[string]*Table, len(m.Tables))}
	for _, spec := range m.Tables {
		if spec.Name == "" || len(spec.Files) == 0 {
			return nil, fmt.Errorf("%s: every table needs a name and at least one file", ManifestFile)
		}
		if _, dup := r.tables[spec.Name]; dup {
			return nil, fmt.Errorf("%s: table %q listed twice", ManifestFile, spec.Name)
		}
		t, err := loadTable(fsys, spec.Name, spec.Files)
		if err != nil {
			return nil, err
		}
		r.tables[spec.Name] = t
		r.order = append(r.order, spec.Name)
	}

	r.defaultTable = m.Default
	if r.defaultTable == "" && len(r.order) > 0 {
		r.defaultTable = r.order[0]
	}
	if _, ok := r.tables[r.defaultTable]; !ok && r.defaultTable != "" {
		return nil, fmt.Errorf("%s: default table %q is not defined", ManifestFile, r.defaultTable)
	}
	return r, nil
}

func loadTable(fsys fs.FS, name string, files []string) (*Table, error) {
	var (
		entries []taxonomy.Entry
		terms   []string
		kind    Kind
	)
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("table %q: reading %s: %w", name, file, err)
		}
		var probe yaml.Node
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("table %q: parsing %s: %w", name, file, err)
		}

		fileKind := KindHierarchy
		if len(probe.Content) > 0 && probe.Content[0].Kind == yaml.SequenceNode {
			fileKind = KindList
		}
		if kind != "" && kind != fileKind {
			return nil, fmt.Errorf("table %q: %s mixes list and hierarchy rules", name, path.Base(file))
		}
		kind = fileKind

		switch fileKind {
		case KindList:
			ts, err := taxonomy.DecodeTermsYAML(data)
			if err != nil {
				return nil, fmt.Errorf("table %q: %s: %w", name, file, err)
			}
			terms = append(terms, ts...)
		default:
			es, err := taxonomy.DecodeYAML(data)
			if err != nil {
				return nil, fmt.Errorf("table %q: %s: %w", name, file, err)
			}
			entries = append(entries, es...)
		}
	}

	if kind == KindList {
		return NewListTable(name, terms), nil
	}
	return NewHierarchyTable(name, entries), nil
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
})

// Default returns the registry built from the embedded rule files. It is
// loaded once and shared.
func Default() (*Registry, error) {
	return loadDefault()
}

// Table returns the named table.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, &UnknownTableError{Name: name}
	}
	return t, nil
}

// Resolve turns a Source into a table. A nil source or an empty Named
// source selects the default table.
func (r *Registry) Resolve(src Source) (*Table, error) {
	switch s := src.(type) {
	case nil:
		return r.Table(r.defaultTable)
	case Inline:
		if s.Table == nil {
			return nil, fmt.Errorf("inline rules source has no table")
		}
		return s.Table, nil
	case Named:
		if s == "" {
			return r.Table(r.defaultTable)
		}
		return r.Table(string(s))
	default:
		return nil, fmt.Errorf("unsupported rules source %T", src)
	}
}

// Names returns table names in manifest order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// DefaultTable returns the name of the default table.
func (r *Registry) DefaultTable() string { return r.defaultTable }
