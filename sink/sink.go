// Package sink implements the DataSink contract and its three concrete
// serializers (GeoJSON, GeoJSONL, GeoParquet). Sinks are single-threaded —
// the pipeline's writer goroutine holds exclusive access for the lifetime
// of a pass.
package sink

import (
	"encoding/json"
	"strconv"

	"github.com/mvexel/cosmo/feature"
)

func marshalCompact(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// DataSink is the narrow interface the pipeline writes feature rows
// through.
type DataSink interface {
	AddFeature(row feature.FeatureRow) error
	Finish() error
}

// toProperties merges a row's declared columns and its extras object into a
// single properties map, extras winning on name collision.
func toProperties(row feature.FeatureRow) map[string]interface{} {
	props := make(map[string]interface{}, len(row.Columns)+len(row.Extras))
	for name, v := range row.Columns {
		props[name] = columnValueToInterface(v)
	}
	for name, v := range row.Extras {
		props[name] = v
	}
	return props
}

func columnValueToInterface(v feature.ColumnValue) interface{} {
	if v.Null {
		return nil
	}
	switch v.Type {
	case feature.ColumnString:
		return v.Str
	case feature.ColumnInteger:
		return v.Int
	case feature.ColumnFloat:
		return v.Flt
	case feature.ColumnJSON:
		return v.JSON
	default:
		return nil
	}
}

// coerceString implements the declared-String coercion rule: String kept,
// Integer/Float rendered as decimal text, Json serialized, Null -> nil.
func coerceString(v feature.ColumnValue) interface{} {
	if v.Null {
		return nil
	}
	switch v.Type {
	case feature.ColumnString:
		return v.Str
	case feature.ColumnInteger:
		return strconv.FormatInt(v.Int, 10)
	case feature.ColumnFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case feature.ColumnJSON:
		return marshalCompact(v.JSON)
	default:
		return nil
	}
}

// coerceInt64 implements the declared-Integer coercion rule: Integer kept,
// Float truncates toward zero, String parses (silently null on failure),
// Json -> null.
func coerceInt64(v feature.ColumnValue) (int64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Type {
	case feature.ColumnInteger:
		return v.Int, true
	case feature.ColumnFloat:
		return int64(v.Flt), true
	case feature.ColumnString:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// coerceFloat64 implements the declared-Float coercion rule: Float kept,
// Integer widens, String parses (silently null on failure), Json -> null.
func coerceFloat64(v feature.ColumnValue) (float64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Type {
	case feature.ColumnFloat:
		return v.Flt, true
	case feature.ColumnInteger:
		return float64(v.Int), true
	case feature.ColumnString:
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
