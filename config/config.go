// Package config loads the user-facing YAML filter/column/geometry
// configuration and compiles it into the immutable view the pipeline
// consumes. Loading uses gopkg.in/yaml.v3 for YAML decoding.
package config

import (
	"os"
	"strings"

	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/dsl"
	"github.com/mvexel/cosmo/expr"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/mapping"
	"gopkg.in/yaml.v3"
)

// RawColumn is the YAML-facing shape of a declared output column.
type RawColumn struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Source string `yaml:"source"`
}

// RawWaySetting decodes either a bare geometry-mode string ("linestring",
// "polygon", "centroid" — enabled with that mode) or a bool (true enables
// with the default linestring mode, false disables), matching the original
// implementation's untagged WaySetting enum.
type RawWaySetting struct {
	Enabled bool
	Mode    string
}

// UnmarshalYAML implements yaml.v3's node-based unmarshaler for the
// bool-or-string untagged shape.
func (w *RawWaySetting) UnmarshalYAML(value *yaml.Node) error {
	var asBool bool
	if err := value.Decode(&asBool); err == nil {
		w.Enabled = asBool
		w.Mode = "linestring"
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrConfig, "way setting must be a bool or a geometry mode string")
	}
	w.Enabled = true
	w.Mode = asString
	return nil
}

// RawGeometry is the YAML-facing shape of the geometry policy.
type RawGeometry struct {
	Node      *bool         `yaml:"node"`
	Way       RawWaySetting `yaml:"way"`
	ClosedWay string        `yaml:"closed_way"`
	Relation  *bool         `yaml:"relation"`
}

// RawConfig is the top-level YAML document passed via --filters. It
// describes exactly one table's filter/columns/geometry, plus any named
// mappings its columns reference; multi-table extraction in one invocation
// is out of scope.
type RawConfig struct {
	Filter   string                        `yaml:"filter"`
	Columns  []RawColumn                   `yaml:"columns"`
	Geometry RawGeometry                   `yaml:"geometry"`
	Mappings map[string]mapping.RawMapping `yaml:"mappings"`
}

// Load reads and parses the YAML filter configuration at path.
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrIo, "reading filter config %s", path)
	}
	var raw RawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "parsing filter config %s: %v", path, err)
	}
	return &raw, nil
}

// CompiledColumn pairs a declared ColumnSpec with the projection that fills it.
type CompiledColumn struct {
	Spec   feature.ColumnSpec
	Source feature.ColumnSource
}

// Compiled is the immutable, pure view the pipeline evaluates against every
// element: filter predicate, declared columns, geometry policy, and
// compiled mappings/expressions.
type Compiled struct {
	Filter   *dsl.Ast
	Columns  []CompiledColumn
	Geometry feature.GeometryConfig
	Mappings map[string]*mapping.Mapping
	AllTags  bool
}

// Compile turns a RawConfig into a Compiled view, failing fast with
// cosmoerr.ErrConfig on any malformed filter, column type, source, or
// geometry mode — configuration compilation always happens before any work
// starts.
func Compile(raw *RawConfig, allTags bool) (*Compiled, error) {
	filterAst, err := dsl.Parse(raw.Filter)
	if err != nil {
		return nil, cosmoerr.Wrap(err, "compiling filter")
	}

	mappings := make(map[string]*mapping.Mapping, len(raw.Mappings))
	for name, rawMapping := range raw.Mappings {
		m, err := mapping.Compile(name, rawMapping)
		if err != nil {
			return nil, cosmoerr.Wrapf(err, "compiling mapping %q", name)
		}
		mappings[name] = m
	}

	columns := make([]CompiledColumn, 0, len(raw.Columns))
	for _, rc := range raw.Columns {
		colType, err := parseColumnType(rc.Type)
		if err != nil {
			return nil, cosmoerr.Wrapf(err, "column %q", rc.Name)
		}
		source, err := parseColumnSource(rc.Source)
		if err != nil {
			return nil, cosmoerr.Wrapf(err, "column %q", rc.Name)
		}
		if source.Kind == feature.SourceMapping {
			if _, ok := mappings[source.Name]; !ok {
				return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "column %q references unknown mapping %q", rc.Name, source.Name)
			}
		}
		if source.Kind == feature.SourceExpr {
			if _, err := expr.Compile(source.Program); err != nil {
				return nil, cosmoerr.Wrapf(err, "column %q expression", rc.Name)
			}
		}
		columns = append(columns, CompiledColumn{
			Spec:   feature.ColumnSpec{Name: rc.Name, Type: colType},
			Source: source,
		})
	}

	geometry, err := compileGeometry(raw.Geometry)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Filter:   filterAst,
		Columns:  columns,
		Geometry: geometry,
		Mappings: mappings,
		AllTags:  allTags,
	}, nil
}

func parseColumnType(s string) (feature.ColumnType, error) {
	switch strings.ToLower(s) {
	case "string":
		return feature.ColumnString, nil
	case "integer", "int":
		return feature.ColumnInteger, nil
	case "float":
		return feature.ColumnFloat, nil
	case "json":
		return feature.ColumnJSON, nil
	default:
		return 0, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unknown column type %q", s)
	}
}

// parseColumnSource dispatches on the source string's prefix:
// "tag:<key>", "meta:<field>", "all_tags", "all_meta", "refs",
// "mapping:<name>", "expr:<program>".
func parseColumnSource(s string) (feature.ColumnSource, error) {
	switch {
	case s == "all_tags":
		return feature.ColumnSource{Kind: feature.SourceAllTags}, nil
	case s == "all_meta":
		return feature.ColumnSource{Kind: feature.SourceAllMeta}, nil
	case s == "refs":
		return feature.ColumnSource{Kind: feature.SourceRefs}, nil
	case strings.HasPrefix(s, "tag:"):
		return feature.ColumnSource{Kind: feature.SourceTag, Key: strings.TrimPrefix(s, "tag:")}, nil
	case strings.HasPrefix(s, "meta:"):
		return feature.ColumnSource{Kind: feature.SourceMeta, Field: strings.TrimPrefix(s, "meta:")}, nil
	case strings.HasPrefix(s, "mapping:"):
		return feature.ColumnSource{Kind: feature.SourceMapping, Name: strings.TrimPrefix(s, "mapping:")}, nil
	case strings.HasPrefix(s, "expr:"):
		return feature.ColumnSource{Kind: feature.SourceExpr, Program: strings.TrimPrefix(s, "expr:")}, nil
	default:
		return feature.ColumnSource{}, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unknown column source %q", s)
	}
}

func parseWayMode(s string) (feature.WayGeometryMode, error) {
	switch strings.ToLower(s) {
	case "", "linestring":
		return feature.WayLinestring, nil
	case "polygon":
		return feature.WayPolygon, nil
	case "centroid":
		return feature.WayCentroid, nil
	default:
		return 0, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unknown geometry mode %q", s)
	}
}

func compileGeometry(raw RawGeometry) (feature.GeometryConfig, error) {
	node := true
	if raw.Node != nil {
		node = *raw.Node
	}
	relation := true
	if raw.Relation != nil {
		relation = *raw.Relation
	}

	wayMode, err := parseWayMode(raw.Way.Mode)
	if err != nil {
		return feature.GeometryConfig{}, err
	}
	way := feature.WaySetting{Enabled: raw.Way.Enabled, Mode: wayMode}
	if raw.Way.Mode == "" && !raw.Way.Enabled {
		// geometry.way was never specified at all; default to enabled linestream
		way = feature.WaySetting{Enabled: true, Mode: feature.WayLinestring}
	}

	closedWayMode := raw.ClosedWay
	if closedWayMode == "" {
		closedWayMode = "polygon"
	}
	closedWay, err := parseWayMode(closedWayMode)
	if err != nil {
		return feature.GeometryConfig{}, err
	}

	return feature.GeometryConfig{
		Node:      node,
		Way:       way,
		ClosedWay: closedWay,
		Relation:  relation,
	}, nil
}
