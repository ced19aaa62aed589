package sink

import (
	"bufio"
	"os"

	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/feature"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONSink streams a single RFC-7946 FeatureCollection to a file.
// Unsuitable for stdout: the collection's closing brackets are only valid
// once Finish has run, so a consumer reading incrementally from a pipe would
// see an indefinitely unterminated document.
type GeoJSONSink struct {
	file   *os.File
	w      *bufio.Writer
	wrote  int
	closed bool
}

// NewGeoJSONSink creates the output file and writes the FeatureCollection
// preamble immediately.
func NewGeoJSONSink(path string) (*GeoJSONSink, error) {
	if path == "-" {
		return nil, cosmoerr.Wrap(cosmoerr.ErrConfig, "geojson output cannot target stdout; use geojsonl")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrIo, "creating geojson output %s", path)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		f.Close()
		return nil, cosmoerr.Wrap(cosmoerr.ErrIo, "writing geojson preamble")
	}
	return &GeoJSONSink{file: f, w: w}, nil
}

func (s *GeoJSONSink) AddFeature(row feature.FeatureRow) error {
	gj := geojson.NewFeature(row.Geometry)
	for name, value := range toProperties(row) {
		gj.Properties[name] = value
	}
	data, err := gj.MarshalJSON()
	if err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "marshaling geojson feature")
	}
	if s.wrote > 0 {
		if _, err := s.w.WriteString(","); err != nil {
			return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geojson separator")
		}
	}
	if _, err := s.w.Write(data); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geojson feature")
	}
	s.wrote++
	return nil
}

func (s *GeoJSONSink) Finish() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if _, err := s.w.WriteString("]}"); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "writing geojson closing brackets")
	}
	if err := s.w.Flush(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "flushing geojson output")
	}
	if err := s.file.Close(); err != nil {
		return cosmoerr.Wrap(cosmoerr.ErrSink, "closing geojson output")
	}
	return nil
}
