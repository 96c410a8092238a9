// Package jsonmap reshapes nested JSON documents into flat records.
//
// A RuleTable is compiled once from a flat specification that maps a
// destination field name to a dotted source path:
//
//	{
//	  "id":    "meta.id",
//	  "issue": "issues.code"
//	}
//
// Projecting a document walks the table one path segment per level of object
// nesting. Leaf rules copy the matched value verbatim. When a rule descends
// into a list, the list is lifted: every projected element becomes its own
// row and the fields collected at the enclosing level are broadcast onto it.
// Given the table above,
//
//	{"meta": {"id": 7}, "issues": [{"code": "A"}, {"code": "B"}]}
//
// projects to
//
//	[{"id": 7, "issue": "A"}, {"id": 7, "issue": "B"}]
//
// Array indices never appear in paths; arrays are traversed transparently
// with the same rules. At most one list may be lifted per object level; two
// sibling lists fail with ErrParallelListMapping rather than being combined.
//
// # Values
//
// Documents use the encoding/json shapes: map[string]any, []any, string,
// json.Number or float64, bool and nil. ProjectJSON decodes with UseNumber so
// numeric literals survive a round trip unchanged. Projection never mutates
// its input; every produced value is a copy.
//
// # Concurrency
//
// A compiled RuleTable is immutable and may be shared by any number of
// goroutines projecting documents concurrently.
package jsonmap
