package sink

import (
	"encoding/json"
	"os"

	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/feature"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/segmentio/parquet-go"
)

const (
	geoMetadataKey      = "geo"
	geoMetadataVersion  = "1.0.0"
	geometryColumnName  = "geometry"
	geometryColumnCRS   = "EPSG:4326"
	defaultParquetBatch = 10000
)

// geoMetadata is the "geo" key-value metadata payload required by the
// GeoParquet 1.0.0 spec, mirroring the shape the planetlabs/gpq reference
// implementation attaches via Writer.SetKeyValueMetadata.
type geoMetadata struct {
	Version       string                       `json:"version"`
	PrimaryColumn string                       `json:"primary_column"`
	Columns       map[string]geoMetadataColumn `json:"columns"`
}

type geoMetadataColumn struct {
	Encoding      string   `json:"encoding"`
	GeometryTypes []string `json:"geometry_types"`
	CRS           string   `json:"crs,omitempty"`
}

// GeoParquetSink batches rows into a columnar GeoParquet 1.0.0 file: a
// not-null WKB geometry column, one nullable column per declared output
// column, and a not-null JSON properties column carrying extras.
type GeoParquetSink struct {
	file      *os.File
	schema    *parquet.Schema
	columns   []feature.ColumnSpec
	batchSize int
	pending   []parquet.Row
	writer    *parquet.GenericWriter[any]
	closed    bool
	geomTypes map[string]bool
}

// NewGeoParquetSink creates path and prepares a GeoParquet writer for the
// given declared columns. batchSize <= 0 uses the spec default of 10,000
// buffered rows per flush.
func NewGeoParquetSink(path string, columns []feature.ColumnSpec, batchSize int) (*GeoParquetSink, error) {
	if path == "-" {
		return nil, cosmoerr.Wrap(cosmoerr.ErrConfig, "geoparquet output cannot target stdout")
	}
	if batchSize <= 0 {
		batchSize = defaultParquetBatch
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrIo, "creating geoparquet output %s", path)
	}

	schema := buildSchema(columns)
	w := parquet.NewGenericWriter[any](f, schema)

	return &GeoParquetSink{
		file:      f,
		schema:    schema,
		columns:   columns,
		batchSize: batchSize,
		pending:   make([]parquet.Row, 0, batchSize),
		writer:    w,
		geomTypes: make(map[string]bool),
	}, nil
}

// buildSchema constructs the dynamic parquet.Schema: a not-null WKB
// "geometry" byte-array leaf, one nullable leaf per declared column typed
// per feature.ColumnType, and a not-null "properties" JSON-as-string leaf
// carrying any extras the row attached beyond its declared columns.
func buildSchema(columns []feature.ColumnSpec) *parquet.Schema {
	group := parquet.Group{
		geometryColumnName: parquet.Leaf(parquet.ByteArrayType),
		"properties":       parquet.String(),
	}
	for _, col := range columns {
		group[col.Name] = parquet.Optional(leafNodeFor(col.Type))
	}
	return parquet.NewSchema("feature", group)
}

func leafNodeFor(t feature.ColumnType) parquet.Node {
	switch t {
	case feature.ColumnInteger:
		return parquet.Leaf(parquet.Int64Type)
	case feature.ColumnFloat:
		return parquet.Leaf(parquet.DoubleType)
	default:
		// String and Json columns both land as UTF8 text; Json values are
		// written in their compact serialized form (see coerceString).
		return parquet.String()
	}
}

func (s *GeoParquetSink) AddFeature(row feature.FeatureRow) error {
	geomBytes, err := wkb.Marshal(row.Geometry)
	if err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "encoding geometry as wkb")
	}
	s.geomTypes[row.Geometry.GeoJSONType()] = true

	propsJSON := marshalCompact(toProperties(row))

	values := make(parquet.Row, 0, len(s.columns)+2)
	for _, leaf := range s.schema.Fields() {
		switch leaf.Name() {
		case geometryColumnName:
			values = append(values, parquet.ValueOf(geomBytes))
		case "properties":
			values = append(values, parquet.ValueOf(propsJSON))
		default:
			values = append(values, valueForColumn(row, leaf.Name(), columnTypeByName(s.columns, leaf.Name())))
		}
	}
	s.pending = append(s.pending, values)

	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

func columnTypeByName(columns []feature.ColumnSpec, name string) feature.ColumnType {
	for _, c := range columns {
		if c.Name == name {
			return c.Type
		}
	}
	return feature.ColumnString
}

// valueForColumn coerces a row's column value into the declared column's
// physical parquet representation, returning the null value when absent.
func valueForColumn(row feature.FeatureRow, name string, declared feature.ColumnType) parquet.Value {
	v, ok := row.Columns[name]
	if !ok || v.Null {
		return parquet.Value{}
	}
	switch declared {
	case feature.ColumnInteger:
		n, ok := coerceInt64(v)
		if !ok {
			return parquet.Value{}
		}
		return parquet.ValueOf(n)
	case feature.ColumnFloat:
		f, ok := coerceFloat64(v)
		if !ok {
			return parquet.Value{}
		}
		return parquet.ValueOf(f)
	default:
		text, ok := coerceString(v).(string)
		if !ok {
			return parquet.Value{}
		}
		return parquet.ValueOf(text)
	}
}

func (s *GeoParquetSink) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	if _, err := s.writer.WriteRows(s.pending); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geoparquet row batch")
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *GeoParquetSink) Finish() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.flush(); err != nil {
		return err
	}

	types := make([]string, 0, len(s.geomTypes))
	for t := range s.geomTypes {
		types = append(types, t)
	}
	meta := geoMetadata{
		Version:       geoMetadataVersion,
		PrimaryColumn: geometryColumnName,
		Columns: map[string]geoMetadataColumn{
			geometryColumnName: {
				Encoding:      "WKB",
				GeometryTypes: types,
				CRS:           geometryColumnCRS,
			},
		},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "marshaling geo metadata")
	}
	s.writer.SetKeyValueMetadata(geoMetadataKey, string(metaJSON))

	if err := s.writer.Close(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "closing geoparquet writer")
	}
	if err := s.file.Close(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "closing geoparquet output")
	}
	return nil
}
