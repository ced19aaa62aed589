package sink

import (
	"bufio"
	"os"

	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/feature"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONLSink writes one GeoJSON Feature object per line with no wrapping
// array, so it can stream to stdout and be consumed incrementally.
type GeoJSONLSink struct {
	file   *os.File // nil when writing to stdout
	w      *bufio.Writer
	closed bool
}

// NewGeoJSONLSink opens path for line-delimited GeoJSON output. A path of
// "-" writes to stdout instead of creating a file.
func NewGeoJSONLSink(path string) (*GeoJSONLSink, error) {
	if path == "-" {
		return &GeoJSONLSink{w: bufio.NewWriter(os.Stdout)}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrIo, "creating geojsonl output %s", path)
	}
	return &GeoJSONLSink{file: f, w: bufio.NewWriter(f)}, nil
}

func (s *GeoJSONLSink) AddFeature(row feature.FeatureRow) error {
	gj := geojson.NewFeature(row.Geometry)
	for name, value := range toProperties(row) {
		gj.Properties[name] = value
	}
	data, err := gj.MarshalJSON()
	if err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "marshaling geojsonl feature")
	}
	if _, err := s.w.Write(data); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geojsonl feature")
	}
	if _, err := s.w.WriteString("\n"); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geojsonl newline")
	}
	return nil
}

func (s *GeoJSONLSink) Finish() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "flushing geojsonl output")
	}
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "closing geojsonl output")
	}
	return nil
}
