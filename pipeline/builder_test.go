package pipeline

import (
	"testing"

	"github.com/mvexel/cosmo/config"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/mapping"
	"github.com/paulmach/orb"
)

func mustBuilder(t *testing.T, raw *config.RawConfig, allTags bool) *Builder {
	t.Helper()
	compiled, err := config.Compile(raw, allTags)
	if err != nil {
		t.Fatalf("config.Compile failed: %v", err)
	}
	b, err := NewBuilder(compiled)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b
}

func TestBuildProjectsTagColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "species", Type: "string", Source: "tag:species"}},
	}
	b := mustBuilder(t, raw, false)
	row := b.Build(orb.Point{1, 2}, map[string]string{"species": "oak"}, feature.MetadataFields{}, nil)
	if row.Columns["species"].Str != "oak" {
		t.Errorf("species column = %+v, want oak", row.Columns["species"])
	}
}

func TestBuildDropsUnparsableTypedColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "lanes", Type: "integer", Source: "tag:lanes"}},
	}
	b := mustBuilder(t, raw, false)
	row := b.Build(orb.Point{0, 0}, map[string]string{"lanes": "not-a-number"}, feature.MetadataFields{}, nil)
	if _, ok := row.Columns["lanes"]; ok {
		t.Errorf("unparsable typed column should be dropped, got %+v", row.Columns["lanes"])
	}
}

func TestBuildMetaColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "id", Type: "integer", Source: "meta:id"}},
	}
	b := mustBuilder(t, raw, false)
	meta := feature.MetadataFields{ID: 42}
	row := b.Build(orb.Point{0, 0}, nil, meta, nil)
	if row.Columns["id"].Int != 42 {
		t.Errorf("id column = %+v, want 42", row.Columns["id"])
	}
}

func TestBuildRefsColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "members", Type: "json", Source: "refs"}},
	}
	b := mustBuilder(t, raw, false)
	row := b.Build(orb.LineString{{0, 0}, {1, 1}}, nil, feature.MetadataFields{}, []int64{1, 2, 3})
	if row.Columns["members"].Type != feature.ColumnJSON {
		t.Fatalf("members column should be json, got %+v", row.Columns["members"])
	}

	rowNoRefs := b.Build(orb.Point{0, 0}, nil, feature.MetadataFields{}, nil)
	if _, ok := rowNoRefs.Columns["members"]; ok {
		t.Errorf("refs column should be absent for a node")
	}
}

func TestBuildMappingColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "class", Type: "string", Source: "mapping:road_class"}},
		Mappings: map[string]mapping.RawMapping{
			"road_class": {
				Rules: []mapping.RawRule{{Filter: "highway=motorway", Value: "major"}},
			},
		},
	}
	b := mustBuilder(t, raw, false)
	row := b.Build(orb.Point{0, 0}, map[string]string{"highway": "motorway"}, feature.MetadataFields{}, nil)
	if row.Columns["class"].Str != "major" {
		t.Errorf("class column = %+v, want major", row.Columns["class"])
	}

	rowNoMatch := b.Build(orb.Point{0, 0}, map[string]string{"highway": "residential"}, feature.MetadataFields{}, nil)
	if _, ok := rowNoMatch.Columns["class"]; ok {
		t.Errorf("class column should be absent with no matching rule and no default")
	}
}

func TestBuildExprColumn(t *testing.T) {
	raw := &config.RawConfig{
		Columns: []config.RawColumn{{Name: "label", Type: "string", Source: "expr:${tag:name} (${meta:id})"}},
	}
	b := mustBuilder(t, raw, false)
	row := b.Build(orb.Point{0, 0}, map[string]string{"name": "Central Park"}, feature.MetadataFields{ID: 7}, nil)
	if row.Columns["label"].Str != "Central Park (7)" {
		t.Errorf("label column = %q, want %q", row.Columns["label"].Str, "Central Park (7)")
	}
}

func TestBuildAllTagsExtra(t *testing.T) {
	raw := &config.RawConfig{}
	b := mustBuilder(t, raw, true)
	row := b.Build(orb.Point{0, 0}, map[string]string{"a": "b"}, feature.MetadataFields{}, nil)
	tagsExtra, ok := row.Extras["tags"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected tags extra, got %+v", row.Extras)
	}
	if tagsExtra["a"] != "b" {
		t.Errorf("tags extra = %+v, want a=b", tagsExtra)
	}
}

func TestBuildWayGeometryOpenWayLinestring(t *testing.T) {
	cfg := feature.GeometryConfig{Way: feature.WaySetting{Enabled: true, Mode: feature.WayLinestring}}
	coords := []orb.Point{{0, 0}, {1, 0}, {1, 1}}
	geom := BuildWayGeometry(cfg, coords)
	if _, ok := geom.(orb.LineString); !ok {
		t.Errorf("open way should stay a linestring, got %T", geom)
	}
}

func TestBuildWayGeometryClosedWayPolygon(t *testing.T) {
	cfg := feature.GeometryConfig{ClosedWay: feature.WayPolygon}
	coords := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	geom := BuildWayGeometry(cfg, coords)
	if _, ok := geom.(orb.Polygon); !ok {
		t.Errorf("closed way should become a polygon, got %T", geom)
	}
}

func TestBuildWayGeometryClosedWayCentroid(t *testing.T) {
	cfg := feature.GeometryConfig{ClosedWay: feature.WayCentroid}
	coords := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	geom := BuildWayGeometry(cfg, coords)
	pt, ok := geom.(orb.Point)
	if !ok {
		t.Fatalf("closed way with centroid mode should become a point, got %T", geom)
	}
	if pt[0] != 1 || pt[1] != 1 {
		t.Errorf("centroid = %v, want (1,1)", pt)
	}
}
