package jsonmap

import (
	"sort"
	"strings"
)

// PathSeparator splits a source path into segments.
const PathSeparator = "."

// Rule maps a dotted source path to a destination field name.
type Rule struct {
	Dest string `json:"dest"`
	Path string `json:"path"`
}

// rule is the compiled form of a Rule. Projection narrows a table by slicing
// path, so the backing arrays are shared but never written.
type rule struct {
	dest string
	path []string
}

// RuleTable is a compiled set of rules. It is immutable after compilation.
type RuleTable struct {
	rules    []rule
	strategy MergeStrategy
}

// Option configures compilation.
type Option func(*RuleTable)

// WithMergeStrategy selects how nested object results are folded into their
// parent record. The default is MergeOuterName.
func WithMergeStrategy(s MergeStrategy) Option {
	return func(t *RuleTable) { t.strategy = s }
}

// Compile builds a RuleTable from a flat destination -> path specification.
// Entries are compiled in sorted destination order so that duplicate paths
// resolve the same way on every run.
func Compile(spec map[string]string, opts ...Option) *RuleTable {
	dests := make([]string, 0, len(spec))
	for dest := range spec {
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	rules := make([]Rule, 0, len(dests))
	for _, dest := range dests {
		rules = append(rules, Rule{Dest: dest, Path: spec[dest]})
	}
	return CompileRules(rules, opts...)
}

// CompileRules builds a RuleTable from rules in the given order. When two
// rules share a path, the later one replaces the earlier destination.
func CompileRules(rules []Rule, opts ...Option) *RuleTable {
	t := &RuleTable{strategy: MergeOuterName}
	for _, opt := range opts {
		opt(t)
	}

	index := make(map[string]int, len(rules))
	for _, r := range rules {
		if i, ok := index[r.Path]; ok {
			t.rules[i].dest = r.Dest
			continue
		}
		index[r.Path] = len(t.rules)
		t.rules = append(t.rules, rule{
			dest: r.Dest,
			path: strings.Split(r.Path, PathSeparator),
		})
	}
	return t
}

// Len reports the number of distinct source paths in the table.
func (t *RuleTable) Len() int { return len(t.rules) }

// MergeStrategy reports the strategy the table was compiled with.
func (t *RuleTable) MergeStrategy() MergeStrategy { return t.strategy }

// Rules returns the compiled rules in compile order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, Rule{Dest: r.dest, Path: strings.Join(r.path, PathSeparator)})
	}
	return out
}

// exhausted reports whether every remaining path has been fully consumed.
func exhausted(rules []rule) bool {
	for _, r := range rules {
		if len(r.path) > 0 {
			return false
		}
	}
	return true
}

// heads returns the distinct first segments of rules in first-discovery order.
func heads(rules []rule) []string {
	seen := make(map[string]struct{}, len(rules))
	var out []string
	for _, r := range rules {
		if len(r.path) == 0 {
			continue
		}
		if _, ok := seen[r.path[0]]; ok {
			continue
		}
		seen[r.path[0]] = struct{}{}
		out = append(out, r.path[0])
	}
	return out
}

// destFor returns the destination of the first rule starting with segment.
func destFor(rules []rule, segment string) string {
	for _, r := range rules {
		if len(r.path) > 0 && r.path[0] == segment {
			return r.dest
		}
	}
	return ""
}

// descend keeps the rules starting with segment and strips that segment.
func descend(rules []rule, segment string) []rule {
	var out []rule
	for _, r := range rules {
		if len(r.path) > 0 && r.path[0] == segment {
			out = append(out, rule{dest: r.dest, path: r.path[1:]})
		}
	}
	return out
}
