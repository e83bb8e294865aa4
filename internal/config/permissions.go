package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Permissions maps table name to chat user to the author id that user posts
// as. The file is JSON, e.g.
//
//	{"cell_info": {"alice": 12, "bob": 40}}
//
// YAML is accepted too.
type Permissions map[string]map[string]int64

// LoadPermissions reads a permissions file. An empty path yields nil, which
// allows everyone.
func LoadPermissions(path string) (Permissions, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading permissions: %w", err)
	}
	var p Permissions
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing permissions %s: %w", path, err)
	}
	if p == nil {
		p = Permissions{}
	}
	return p, nil
}

// Lists reports whether the permissions cover table at all. A table missing
// from the file is a configuration problem rather than a user's. Nil
// permissions cover every table.
func (p Permissions) Lists(table string) bool {
	if p == nil {
		return true
	}
	_, ok := p[table]
	return ok
}

// Allowed reports whether user may edit table and returns the author id to
// record. With nil permissions every user is allowed and recorded under
// their own name.
func (p Permissions) Allowed(table, user string) (author string, ok bool) {
	if p == nil {
		return user, true
	}
	id, ok := p[table][user]
	if !ok {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}
