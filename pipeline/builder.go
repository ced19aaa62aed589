// Package pipeline implements the feature builder, the per-element block
// processor, and the two-pass streaming driver that ties storage,
// filtering, and sinks together.
package pipeline

import (
	"encoding/json"
	"strconv"

	"github.com/mvexel/cosmo/config"
	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/expr"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/mapping"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Builder projects a matched element's tags, metadata, and optional member
// refs into a FeatureRow, following the column sources and geometry policy
// a Compiled config declares.
type Builder struct {
	columns      []config.CompiledColumn
	mappings     map[string]*mapping.Mapping
	allTagsExtra bool
	geometry     feature.GeometryConfig
	exprPrograms map[string]*expr.Program
}

// NewBuilder pre-compiles every Expr column's template exactly once so
// per-element evaluation never re-parses a program.
func NewBuilder(compiled *config.Compiled) (*Builder, error) {
	programs := make(map[string]*expr.Program)
	for _, col := range compiled.Columns {
		if col.Source.Kind == feature.SourceExpr {
			p, err := expr.Compile(col.Source.Program)
			if err != nil {
				return nil, cosmoerr.Wrapf(err, "compiling expression for column %q", col.Spec.Name)
			}
			programs[col.Spec.Name] = p
		}
	}
	return &Builder{
		columns:      compiled.Columns,
		mappings:     compiled.Mappings,
		allTagsExtra: compiled.AllTags,
		geometry:     compiled.Geometry,
		exprPrograms: programs,
	}, nil
}

// Build assembles a FeatureRow for a matched element. refs is nil for nodes
// and populated with member node ids for ways.
func (b *Builder) Build(geometry orb.Geometry, tags map[string]string, meta feature.MetadataFields, refs []int64) feature.FeatureRow {
	row := feature.NewFeatureRow(geometry)

	for _, col := range b.columns {
		value, ok := b.project(col, tags, meta, refs)
		if ok {
			row.Columns[col.Spec.Name] = value
		}
	}

	if b.allTagsExtra {
		tagsAny := make(map[string]interface{}, len(tags))
		for k, v := range tags {
			tagsAny[k] = v
		}
		row.Extras["tags"] = tagsAny
	}

	return row
}

func (b *Builder) project(col config.CompiledColumn, tags map[string]string, meta feature.MetadataFields, refs []int64) (feature.ColumnValue, bool) {
	switch col.Source.Kind {
	case feature.SourceTag:
		raw, present := tags[col.Source.Key]
		if !present {
			return feature.ColumnValue{}, false
		}
		return parseColumnValue(raw, col.Spec.Type)

	case feature.SourceMeta:
		cv := meta.Value(col.Source.Field)
		if cv.Null {
			return feature.ColumnValue{}, false
		}
		if cv.Type == col.Spec.Type {
			return cv, true
		}
		return parseColumnValue(stringifyColumnValue(cv), col.Spec.Type)

	case feature.SourceAllTags:
		tagsAny := make(map[string]interface{}, len(tags))
		for k, v := range tags {
			tagsAny[k] = v
		}
		return feature.JSONValue(tagsAny), true

	case feature.SourceAllMeta:
		return feature.JSONValue(meta.AsMap()), true

	case feature.SourceRefs:
		if refs == nil {
			return feature.ColumnValue{}, false
		}
		return feature.JSONValue(refs), true

	case feature.SourceMapping:
		m, ok := b.mappings[col.Source.Name]
		if !ok {
			return feature.ColumnValue{}, false
		}
		value, matched := m.Evaluate(tags)
		if !matched {
			return feature.ColumnValue{}, false
		}
		return parseColumnValue(value, col.Spec.Type)

	case feature.SourceExpr:
		program := b.exprPrograms[col.Spec.Name]
		if program == nil {
			return feature.ColumnValue{}, false
		}
		return feature.StringValue(program.Evaluate(tags, meta)), true

	default:
		return feature.ColumnValue{}, false
	}
}

// parseColumnValue converts a raw string representation into a column's
// declared type. A value that fails to parse into its declared type is
// dropped (not emitted as a column at all) rather than coerced or
// defaulted.
func parseColumnValue(raw string, declared feature.ColumnType) (feature.ColumnValue, bool) {
	switch declared {
	case feature.ColumnString:
		return feature.StringValue(raw), true
	case feature.ColumnInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return feature.ColumnValue{}, false
		}
		return feature.IntegerValue(n), true
	case feature.ColumnFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return feature.ColumnValue{}, false
		}
		return feature.FloatValue(f), true
	case feature.ColumnJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return feature.ColumnValue{}, false
		}
		return feature.JSONValue(v), true
	default:
		return feature.ColumnValue{}, false
	}
}

func stringifyColumnValue(v feature.ColumnValue) string {
	switch v.Type {
	case feature.ColumnString:
		return v.Str
	case feature.ColumnInteger:
		return strconv.FormatInt(v.Int, 10)
	case feature.ColumnFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case feature.ColumnJSON:
		b, err := json.Marshal(v.JSON)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// BuildWayGeometry synthesizes a way's geometry from its resolved node
// coordinates, branching on whether the way is closed and on the configured
// way/closed-way modes.
func BuildWayGeometry(cfg feature.GeometryConfig, coords []orb.Point) orb.Geometry {
	ls := orb.LineString(coords)
	if isClosed(coords) {
		switch cfg.ClosedWay {
		case feature.WayPolygon:
			return orb.Polygon{orb.Ring(ls)}
		case feature.WayCentroid:
			return centroidOrFirst(ls, coords)
		default:
			return ls
		}
	}

	switch cfg.Way.Mode {
	case feature.WayPolygon:
		return orb.Polygon{orb.Ring(ls)}
	case feature.WayCentroid:
		return centroidOrFirst(ls, coords)
	default:
		return ls
	}
}

func isClosed(coords []orb.Point) bool {
	return len(coords) >= 2 && coords[0] == coords[len(coords)-1]
}

func centroidOrFirst(ls orb.LineString, coords []orb.Point) orb.Point {
	ring := orb.Ring(ls)
	centroid, area := planar.CentroidArea(ring)
	if area == 0 {
		return coords[0]
	}
	return centroid
}
