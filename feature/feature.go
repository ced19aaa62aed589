// Package feature holds the in-memory record types produced by the feature
// builder and consumed by data sinks: typed columns, geometry, and free-form
// extras.
package feature

import (
	"github.com/paulmach/orb"
)

// ColumnType enumerates the declared type of a column. Compiling the config
// does not check a column's declared type against its source: the builder
// converts tag, meta and mapping values to the declared type when it builds a
// row (dropping values that do not parse), expr columns always hold a string,
// and all_tags/all_meta/refs columns always hold JSON, whatever the declared
// type.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInteger
	ColumnFloat
	ColumnJSON
)

func (t ColumnType) String() string {
	switch t {
	case ColumnString:
		return "string"
	case ColumnInteger:
		return "integer"
	case ColumnFloat:
		return "float"
	case ColumnJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ColumnValue is a tagged union over the value kinds a column can hold. It is
// deliberately a small struct rather than `any` so sinks coerce with a single
// switch instead of repeated type assertions.
type ColumnValue struct {
	Type ColumnType
	Str  string
	Int  int64
	Flt  float64
	JSON interface{}
	// Null marks the absence of a value (e.g. a missing tag); the payload
	// fields above are zero and must be ignored when Null is true.
	Null bool
}

// NullValue returns the ColumnValue representing a missing projection.
func NullValue() ColumnValue { return ColumnValue{Null: true} }

// StringValue wraps s as a string-typed column value.
func StringValue(s string) ColumnValue { return ColumnValue{Type: ColumnString, Str: s} }

// IntegerValue wraps n as an integer-typed column value.
func IntegerValue(n int64) ColumnValue { return ColumnValue{Type: ColumnInteger, Int: n} }

// FloatValue wraps f as a float-typed column value.
func FloatValue(f float64) ColumnValue { return ColumnValue{Type: ColumnFloat, Flt: f} }

// JSONValue wraps v as a json-typed column value.
func JSONValue(v interface{}) ColumnValue { return ColumnValue{Type: ColumnJSON, JSON: v} }

// ColumnSpec declares a single output column's name and type.
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// ColumnSourceKind enumerates where a column's value is projected from.
type ColumnSourceKind int

const (
	SourceTag ColumnSourceKind = iota
	SourceMeta
	SourceAllTags
	SourceAllMeta
	SourceRefs
	SourceMapping
	SourceExpr
)

// ColumnSource describes how the builder should compute a column's value for
// a given element. Key/Field/Name/Program are mutually exclusive based on
// Kind.
type ColumnSource struct {
	Kind    ColumnSourceKind
	Key     string // SourceTag
	Field   string // SourceMeta: one of id, version, timestamp, user, uid, changeset, visible
	Name    string // SourceMapping: name of the compiled mapping
	Program string // SourceExpr: compiled expression program text
}

// WayGeometryMode is the geometry kind produced for a way.
type WayGeometryMode int

const (
	WayLinestring WayGeometryMode = iota
	WayPolygon
	WayCentroid
)

// WaySetting is either disabled or enabled with a specific geometry mode.
type WaySetting struct {
	Enabled bool
	Mode    WayGeometryMode
}

// GeometryConfig governs which element kinds produce geometry and how way
// geometry is synthesized.
type GeometryConfig struct {
	Node      bool
	Way       WaySetting
	ClosedWay WayGeometryMode
	Relation  bool
}

// FeatureRow is the transient record the builder produces and a sink
// consumes: geometry, typed columns keyed by name, and free-form extras that
// take precedence over column values on name collision.
type FeatureRow struct {
	Geometry orb.Geometry
	Columns  map[string]ColumnValue
	Extras   map[string]interface{}
}

// NewFeatureRow allocates an empty row ready for column assignment.
func NewFeatureRow(geometry orb.Geometry) FeatureRow {
	return FeatureRow{
		Geometry: geometry,
		Columns:  make(map[string]ColumnValue),
		Extras:   make(map[string]interface{}),
	}
}
