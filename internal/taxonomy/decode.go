package taxonomy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a nested YAML mapping into entries, keeping the key
// order of the document. A key mapped to {} or to nothing is a leaf.
func DecodeYAML(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing taxonomy yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return decodeMapping(doc.Content[0], "")
}

func decodeMapping(n *yaml.Node, path string) ([]Entry, error) {
	switch {
	case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null":
		return nil, nil
	case n.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("taxonomy: %s: line %d: expected a mapping of subclasses", where(path), n.Line)
	case len(n.Content) == 0:
		return nil, nil
	}

	entries := make([]Entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
			return nil, fmt.Errorf("taxonomy: %s: line %d: labels must be strings", where(path), key.Line)
		}
		children, err := decodeMapping(val, path+"/"+key.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Label: key.Value, Children: children})
	}
	return entries, nil
}

// DecodeTermsYAML decodes a YAML sequence of strings.
func DecodeTermsYAML(data []byte) ([]string, error) {
	var terms []string
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("parsing term list yaml: %w", err)
	}
	return terms, nil
}

func where(path string) string {
	if path == "" {
		return "top level"
	}
	return path
}
