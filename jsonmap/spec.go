package jsonmap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseSpec decodes a rule specification written as a JSON or YAML mapping
// of destination names to dotted paths. Rules are returned in document
// order.
func ParseSpec(data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SpecError{Reason: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, &SpecError{Reason: "expected a single document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &SpecError{Reason: fmt.Sprintf("expected an object, got %s", nodeKind(root))}
	}

	rules := make([]Rule, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
			return nil, &SpecError{Reason: fmt.Sprintf("line %d: key must be a string", key.Line)}
		}
		if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
			return nil, &SpecError{Key: key.Value, Reason: fmt.Sprintf("line %d: path must be a string", val.Line)}
		}
		rules = append(rules, Rule{Dest: key.Value, Path: val.Value})
	}
	return rules, nil
}

// CompileSpec parses and compiles a JSON or YAML rule specification.
func CompileSpec(data []byte, opts ...Option) (*RuleTable, error) {
	rules, err := ParseSpec(data)
	if err != nil {
		return nil, err
	}
	return CompileRules(rules, opts...), nil
}

// MustCompileSpec is like CompileSpec but panics on a malformed
// specification. It is meant for specifications embedded in the binary.
func MustCompileSpec(data []byte, opts ...Option) *RuleTable {
	t, err := CompileSpec(data, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "array"
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "null"
		}
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
