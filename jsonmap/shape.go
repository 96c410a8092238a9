package jsonmap

import (
	"fmt"
	"strings"
)

// Shape classifies a decoded JSON value.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeObject
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "scalar"
	}
}

// ShapeOf reports the shape of v. Anything that is not a JSON object or
// array, including nil, is a scalar.
func ShapeOf(v any) Shape {
	switch v.(type) {
	case map[string]any:
		return ShapeObject
	case []any:
		return ShapeArray
	default:
		return ShapeScalar
	}
}

// MergeStrategy decides how the fields of a nested object result are folded
// into the parent record.
type MergeStrategy int

const (
	// MergeOuterName writes every nested field under the parent rule's
	// destination name. Nested fields are visited in sorted key order, so
	// the last key wins.
	MergeOuterName MergeStrategy = iota
	// MergeNestedKeys keeps the destination names produced by the nested
	// projection.
	MergeNestedKeys
)

func (s MergeStrategy) String() string {
	switch s {
	case MergeOuterName:
		return "outer"
	case MergeNestedKeys:
		return "nested"
	default:
		return fmt.Sprintf("MergeStrategy(%d)", int(s))
	}
}

// ParseMergeStrategy parses the names produced by MergeStrategy.String.
func ParseMergeStrategy(name string) (MergeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "outer":
		return MergeOuterName, nil
	case "nested":
		return MergeNestedKeys, nil
	default:
		return 0, fmt.Errorf("jsonmap: unknown merge strategy %q", name)
	}
}
