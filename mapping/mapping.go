// Package mapping implements the Mapping(name) column source: named,
// first-match-wins classification rules compiled from the filter DSL.
package mapping

import "github.com/mvexel/cosmo/dsl"

// Rule is one compiled (filter, value) alternative within a Mapping.
type Rule struct {
	Filter *dsl.Ast
	Value  string
}

// Mapping evaluates a tag set against an ordered rule list, returning the
// first rule whose filter matches, falling back to Default.
type Mapping struct {
	Name    string
	Rules   []Rule
	Default string
	HasDef  bool
}

// Evaluate returns the mapped value and true if either a rule matched or a
// default was configured; returns false (treated as null by the builder)
// otherwise.
func (m *Mapping) Evaluate(tags map[string]string) (string, bool) {
	for _, r := range m.Rules {
		if dsl.Evaluate(r.Filter, tags) {
			return r.Value, true
		}
	}
	if m.HasDef {
		return m.Default, true
	}
	return "", false
}

// RawRule is the YAML-facing shape of one mapping rule before compilation.
type RawRule struct {
	Filter string `yaml:"filter"`
	Value  string `yaml:"value"`
}

// RawMapping is the YAML-facing shape of a named mapping before compilation.
type RawMapping struct {
	Rules   []RawRule `yaml:"rules"`
	Default *string   `yaml:"default"`
}

// Compile turns a RawMapping into a Mapping, compiling every rule's filter
// expression. A malformed filter is a config-time error, never a runtime one.
func Compile(name string, raw RawMapping) (*Mapping, error) {
	m := &Mapping{Name: name}
	for _, rr := range raw.Rules {
		ast, err := dsl.Parse(rr.Filter)
		if err != nil {
			return nil, err
		}
		m.Rules = append(m.Rules, Rule{Filter: ast, Value: rr.Value})
	}
	if raw.Default != nil {
		m.Default = *raw.Default
		m.HasDef = true
	}
	return m, nil
}
