package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Project reshapes doc according to the table. The result is either a flat
// object (map[string]any) or a list of flat objects ([]any).
func (t *RuleTable) Project(doc any) (any, error) {
	out, ok, err := t.project(t.rules, doc, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindEmpty, nil)
	}
	return out, nil
}

// ProjectJSON decodes data, preserving numeric literals as json.Number, and
// projects it with the table.
func (t *RuleTable) ProjectJSON(data []byte) (any, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return t.Project(doc)
}

// Decode parses a single JSON document using json.Number for numbers.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("jsonmap: decode document: %w", err)
	}
	return doc, nil
}

// project returns ok=false when every rule is already exhausted, meaning the
// caller should treat the value at this position as a leaf.
func (t *RuleTable) project(rules []rule, v any, path []string) (any, bool, error) {
	if exhausted(rules) {
		return nil, false, nil
	}

	switch ShapeOf(v) {
	case ShapeArray:
		out, err := t.projectArray(rules, v.([]any), path)
		return out, true, err
	case ShapeObject:
		out, err := t.projectObject(rules, v.(map[string]any), path)
		return out, true, err
	default:
		return nil, false, newError(KindInvalidInput, path)
	}
}

func (t *RuleTable) projectArray(rules []rule, items []any, path []string) ([]any, error) {
	out := make([]any, 0, len(items))
	for i, item := range items {
		itemPath := appendPath(path, strconv.Itoa(i))
		res, ok, err := t.project(rules, item, itemPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			// The rules are unchanged from the enclosing call, which already
			// checked that they are not exhausted.
			return nil, newError(KindMapInternalReturnedInvalidData, itemPath)
		}
		switch ShapeOf(res) {
		case ShapeObject:
			out = append(out, res)
		case ShapeArray:
			out = append(out, res.([]any)...)
		default:
			return nil, newError(KindExpectedArrayOrObject, itemPath)
		}
	}
	return out, nil
}

func (t *RuleTable) projectObject(rules []rule, obj map[string]any, path []string) (any, error) {
	record := make(map[string]any)
	var (
		pending     []any
		havePending bool
	)

	for _, segment := range heads(rules) {
		dest := destFor(rules, segment)
		matched, ok := obj[segment]
		if !ok {
			continue
		}
		segPath := appendPath(path, segment)

		if ShapeOf(matched) == ShapeScalar {
			record[dest] = matched
			continue
		}

		res, ok, err := t.project(descend(rules, segment), matched, segPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			record[dest] = clone(matched)
			continue
		}

		switch ShapeOf(res) {
		case ShapeObject:
			t.merge(record, dest, res.(map[string]any))
		case ShapeArray:
			if havePending {
				return nil, newError(KindParallelListMapping, segPath)
			}
			pending, havePending = res.([]any), true
		default:
			return nil, newError(KindMapInternalReturnedInvalidData, segPath)
		}
	}

	if !havePending {
		return record, nil
	}
	return lift(pending, record), nil
}

// merge folds a nested object result into record.
func (t *RuleTable) merge(record map[string]any, dest string, nested map[string]any) {
	switch t.strategy {
	case MergeNestedKeys:
		for k, v := range nested {
			record[k] = v
		}
	default:
		keys := make([]string, 0, len(nested))
		for k := range nested {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			record[dest] = nested[k]
		}
	}
}

// lift broadcasts the fields of record onto a copy of every list item.
func lift(items []any, record map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		row := make(map[string]any, len(record))
		if obj, ok := item.(map[string]any); ok {
			for k, v := range obj {
				row[k] = v
			}
		}
		for k, v := range record {
			row[k] = clone(v)
		}
		out = append(out, row)
	}
	return out
}

// clone deep-copies objects and arrays. Scalars are immutable and returned
// as is.
func clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}

func appendPath(path []string, segment string) []string {
	return append(path[:len(path):len(path)], segment)
}
