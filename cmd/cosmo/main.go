// Command cosmo extracts a filtered set of nodes and ways from an OSM PBF
// file into a GeoJSON, GeoJSONL, or GeoParquet feature table, driven by a
// YAML filter/column/geometry configuration file. Matching relations are
// counted but produce no features.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/mvexel/cosmo/config"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/pipeline"
	"github.com/mvexel/cosmo/sink"
	"github.com/mvexel/cosmo/storage"
)

const version = "v0.1.0"

var cli struct {
	Input           string      `help:"Input OSM PBF file." short:"i" required:"" type:"existingfile"`
	Output          string      `help:"Output file (.geojson, .geojsonl, .parquet); \"-\" streams geojsonl to stdout." short:"o" required:""`
	Filters         string      `help:"Filter/column/geometry configuration file (YAML)." short:"f" required:"" type:"existingfile"`
	Format          string      `help:"Output format: geojson, geojsonl, geoparquet. Auto-detected from --output's extension when omitted."`
	NodeCacheMode   string      `help:"Node cache backend: auto, sparse, dense, memory." name:"node-cache-mode" default:"auto"`
	NodeCache       string      `help:"Node cache file path (dense mode only); a temp file is used and removed if omitted." name:"node-cache"`
	NodeCacheMax    uint64      `help:"Dense cache capacity; node ids must be below this value." name:"node-cache-max-nodes" default:"11000000000"`
	Threads         int         `help:"Decode parallelism. Defaults to all available cores." short:"t"`
	AllTags         bool        `help:"Attach every tag as a 'tags' JSON extra on each row." name:"all-tags"`
	Verbose         bool        `help:"Enable debug logging." short:"v"`
	Version         versionFlag `help:"Print version information and quit." name:"version"`
}

type versionFlag string

func (versionFlag) Decode(*kong.DecodeContext) error { return nil }
func (versionFlag) IsBool() bool                     { return true }
func (versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	kong.Parse(&cli,
		kong.Name("cosmo"),
		kong.Description("Extract filtered features from an OSM PBF file."),
		kong.Vars{"version": version},
	)

	if cli.Verbose {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
	}

	if err := run(); err != nil {
		sigolo.Errorf("%+v", err)
		os.Exit(1)
	}
}

func run() error {
	threads := cli.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	raw, err := config.Load(cli.Filters)
	if err != nil {
		return err
	}
	compiled, err := config.Compile(raw, cli.AllTags)
	if err != nil {
		return err
	}

	builder, err := pipeline.NewBuilder(compiled)
	if err != nil {
		return err
	}
	table := pipeline.Table{Filter: compiled.Filter, Geometry: compiled.Geometry, Builder: builder}

	format := cli.Format
	if format == "" {
		format = detectFormat(cli.Output)
	}

	columns := make([]feature.ColumnSpec, 0, len(compiled.Columns))
	for _, c := range compiled.Columns {
		columns = append(columns, c.Spec)
	}

	dataSink, err := openSink(format, cli.Output, columns)
	if err != nil {
		return err
	}

	mode, err := storage.ParseMode(cli.NodeCacheMode)
	if err != nil {
		return err
	}

	sigolo.Infof("cosmo %s: %s -> %s (%s)", version, cli.Input, cli.Output, format)

	matchCount, err := pipeline.Run(context.Background(), cli.Input, []pipeline.Table{table}, dataSink, mode, cli.NodeCache, cli.NodeCacheMax, threads)
	if err != nil {
		return err
	}

	sigolo.Infof("Wrote %d matching features", matchCount)
	return nil
}

func detectFormat(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".geojson":
		return "geojson"
	case ".geojsonl", ".ndjson", ".jsonl":
		return "geojsonl"
	case ".parquet":
		return "geoparquet"
	default:
		return "geojsonl"
	}
}

func openSink(format, output string, columns []feature.ColumnSpec) (sink.DataSink, error) {
	switch format {
	case "geojson":
		return sink.NewGeoJSONSink(output)
	case "geojsonl":
		return sink.NewGeoJSONLSink(output)
	case "geoparquet", "parquet":
		return sink.NewGeoParquetSink(output, columns, 0)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
