package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func TestNewFeatureRowInitializesMaps(t *testing.T) {
	row := NewFeatureRow(orb.Point{1, 2})
	if row.Columns == nil || row.Extras == nil {
		t.Fatal("NewFeatureRow should initialize non-nil Columns and Extras maps")
	}
	row.Columns["id"] = IntegerValue(42)
	if row.Columns["id"].Int != 42 {
		t.Errorf("Columns[id].Int = %d, want 42", row.Columns["id"].Int)
	}
}

func TestMetadataValueMissingFieldsAreNull(t *testing.T) {
	m := MetadataFields{ID: 7}
	if v := m.Value("version"); !v.Null {
		t.Errorf("Value(version) should be null when Version is nil")
	}
	if v := m.Value("id"); v.Null || v.Int != 7 {
		t.Errorf("Value(id) = %+v, want IntegerValue(7)", v)
	}
	if v := m.Value("bogus"); !v.Null {
		t.Errorf("Value(bogus) should be null for unknown field")
	}
}

func TestMetadataValueVisible(t *testing.T) {
	v := true
	m := MetadataFields{ID: 1, Visible: &v}
	got := m.Value("visible")
	if got.Null || got.Str != "true" {
		t.Errorf("Value(visible) = %+v, want StringValue(true)", got)
	}
}

func TestTagMapFlattensTags(t *testing.T) {
	tags := osm.Tags{{Key: "highway", Value: "primary"}, {Key: "lanes", Value: "2"}}
	m := TagMap(tags)
	if m["highway"] != "primary" || m["lanes"] != "2" {
		t.Errorf("tag map mismatch: %+v", m)
	}
}
