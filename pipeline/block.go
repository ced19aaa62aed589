package pipeline

import (
	"github.com/mvexel/cosmo/dsl"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/storage"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// elementCounts tallies matched elements by feature.ElementKind. Processor's
// Handle methods are only ever called from the single scan goroutine driving
// a pass, so plain increments (no atomics) are safe.
type elementCounts [3]uint64

func (c *elementCounts) add(kind feature.ElementKind) {
	c[kind]++
}

// Snapshot returns the tally keyed by kind, for a caller to log a per-kind
// breakdown once a pass finishes.
func (c elementCounts) Snapshot() map[feature.ElementKind]uint64 {
	return map[feature.ElementKind]uint64{
		feature.ElementNode:     c[feature.ElementNode],
		feature.ElementWay:      c[feature.ElementWay],
		feature.ElementRelation: c[feature.ElementRelation],
	}
}

// Table is one compiled filter/columns/geometry table the block processor
// evaluates every element against. A single run can extract several tables
// from the same pass.
type Table struct {
	Filter   *dsl.Ast
	Geometry feature.GeometryConfig
	Builder  *Builder
}

// Processor dispatches decoded elements to every table's filter and, on a
// match, asks that table's Builder for a FeatureRow. osmpbf.Scanner flattens
// PBF blocks into a single element stream rather than exposing block
// boundaries, so Processor operates one element at a time instead of one
// decoded block at a time: stable order, no duplicates, and exactly one row
// per matching element per table still hold over that stream.
type Processor struct {
	tables    []Table
	nodeStore storage.Reader // nil when no table requests way geometry
	counts    elementCounts
}

// NewProcessor builds a block processor for the given tables. nodeStore may
// be nil only if no table enables way geometry.
func NewProcessor(tables []Table, nodeStore storage.Reader) *Processor {
	return &Processor{tables: tables, nodeStore: nodeStore}
}

// Counts reports how many matched elements HandleNode/HandleWay/
// HandleRelation saw, broken down by feature.ElementKind, for a caller to
// log a per-kind breakdown once a pass finishes.
func (p *Processor) Counts() map[feature.ElementKind]uint64 {
	return p.counts.Snapshot()
}

// HandleNode evaluates every table against a node, emitting a point feature
// row per match.
func (p *Processor) HandleNode(n *osm.Node) []feature.FeatureRow {
	tags := feature.TagMap(n.Tags)
	meta := feature.MetadataFromNode(n)
	geom := orb.Point{n.Lon, n.Lat}

	var rows []feature.FeatureRow
	for _, t := range p.tables {
		if !t.Geometry.Node {
			continue
		}
		if !dsl.Evaluate(t.Filter, tags) {
			continue
		}
		p.counts.add(feature.ElementNode)
		rows = append(rows, t.Builder.Build(geom, tags, meta, nil))
	}
	return rows
}

// HandleWay evaluates every table against a way, resolving its member node
// coordinates from nodeStore and synthesizing line/polygon/centroid geometry
// per each table's policy. A way whose resolved coordinate count drops below
// two (unresolved members, e.g. a way crossing an extract boundary) produces
// no row for any table.
func (p *Processor) HandleWay(w *osm.Way) []feature.FeatureRow {
	needsGeometry := false
	for _, t := range p.tables {
		if t.Geometry.Way.Enabled {
			needsGeometry = true
			break
		}
	}
	if !needsGeometry {
		return nil
	}

	tags := feature.TagMap(w.Tags)
	meta := feature.MetadataFromWay(w)

	refs := make([]int64, len(w.Nodes))
	coords := make([]orb.Point, 0, len(w.Nodes))
	for i, wn := range w.Nodes {
		refs[i] = int64(wn.ID)
		lon, lat, ok := p.nodeStore.Get(uint64(wn.ID))
		if !ok {
			continue
		}
		coords = append(coords, orb.Point{lon, lat})
	}
	if len(coords) < 2 {
		return nil
	}

	var rows []feature.FeatureRow
	for _, t := range p.tables {
		if !t.Geometry.Way.Enabled {
			continue
		}
		if !dsl.Evaluate(t.Filter, tags) {
			continue
		}
		p.counts.add(feature.ElementWay)
		geom := BuildWayGeometry(t.Geometry, coords)
		rows = append(rows, t.Builder.Build(geom, tags, meta, refs))
	}
	return rows
}

// HandleRelation counts matching relations against every table's filter but
// never emits geometry for them: multipolygon/route assembly from member
// ways is out of scope.
func (p *Processor) HandleRelation(r *osm.Relation, onMatch func(table *Table)) {
	tags := feature.TagMap(r.Tags)
	for i := range p.tables {
		t := &p.tables[i]
		if !t.Geometry.Relation {
			continue
		}
		if dsl.Evaluate(t.Filter, tags) {
			p.counts.add(feature.ElementRelation)
			onMatch(t)
		}
	}
}
