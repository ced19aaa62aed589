package feature

import (
	"time"

	"github.com/paulmach/osm"
)

// MetadataFields mirrors the OSM element metadata the Meta/AllMeta column
// sources project from. A nil pointer field projects as null. The
// constructors below leave Timestamp nil for a zero time and User nil for an
// empty name; they always set Visible, Version, Changeset and UID, to the
// decoder's zero values when the extract carries no metadata.
type MetadataFields struct {
	ID        int64
	Visible   *bool
	Version   *int
	Changeset *int64
	Timestamp *string // RFC-3339
	UID       *int64
	User      *string
}

func formatTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// MetadataFromNode builds MetadataFields from a decoded node (dense or
// regular; paulmach/osm/osmpbf expands both into *osm.Node).
func MetadataFromNode(n *osm.Node) MetadataFields {
	return MetadataFields{
		ID:        int64(n.ID),
		Visible:   boolPtr(n.Visible),
		Version:   intPtr(n.Version),
		Changeset: int64Ptr(int64(n.ChangesetID)),
		Timestamp: formatTimestamp(n.Timestamp),
		UID:       int64Ptr(int64(n.UserID)),
		User:      stringPtrOrNil(n.User),
	}
}

// MetadataFromWay builds MetadataFields from a decoded way.
func MetadataFromWay(w *osm.Way) MetadataFields {
	return MetadataFields{
		ID:        int64(w.ID),
		Visible:   boolPtr(w.Visible),
		Version:   intPtr(w.Version),
		Changeset: int64Ptr(int64(w.ChangesetID)),
		Timestamp: formatTimestamp(w.Timestamp),
		UID:       int64Ptr(int64(w.UserID)),
		User:      stringPtrOrNil(w.User),
	}
}

// MetadataFromRelation builds MetadataFields from a decoded relation.
func MetadataFromRelation(r *osm.Relation) MetadataFields {
	return MetadataFields{
		ID:        int64(r.ID),
		Visible:   boolPtr(r.Visible),
		Version:   intPtr(r.Version),
		Changeset: int64Ptr(int64(r.ChangesetID)),
		Timestamp: formatTimestamp(r.Timestamp),
		UID:       int64Ptr(int64(r.UserID)),
		User:      stringPtrOrNil(r.User),
	}
}

func boolPtr(b bool) *bool       { return &b }
func intPtr(i int) *int          { return &i }
func int64Ptr(i int64) *int64    { return &i }
func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value looks up a single metadata field by name for the Meta(field) column
// source: one of id, version, timestamp, user, uid, changeset, visible.
func (m MetadataFields) Value(field string) ColumnValue {
	switch field {
	case "id":
		return IntegerValue(m.ID)
	case "version":
		if m.Version == nil {
			return NullValue()
		}
		return IntegerValue(int64(*m.Version))
	case "timestamp":
		if m.Timestamp == nil {
			return NullValue()
		}
		return StringValue(*m.Timestamp)
	case "user":
		if m.User == nil {
			return NullValue()
		}
		return StringValue(*m.User)
	case "uid":
		if m.UID == nil {
			return NullValue()
		}
		return IntegerValue(*m.UID)
	case "changeset":
		if m.Changeset == nil {
			return NullValue()
		}
		return IntegerValue(*m.Changeset)
	case "visible":
		if m.Visible == nil {
			return NullValue()
		}
		return StringValue(boolString(*m.Visible))
	default:
		return NullValue()
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AsMap renders all populated metadata fields as a plain map, used by the
// AllMeta column source's Json payload.
func (m MetadataFields) AsMap() map[string]interface{} {
	out := map[string]interface{}{"id": m.ID}
	if m.Version != nil {
		out["version"] = *m.Version
	}
	if m.Timestamp != nil {
		out["timestamp"] = *m.Timestamp
	}
	if m.User != nil {
		out["user"] = *m.User
	}
	if m.UID != nil {
		out["uid"] = *m.UID
	}
	if m.Changeset != nil {
		out["changeset"] = *m.Changeset
	}
	if m.Visible != nil {
		out["visible"] = *m.Visible
	}
	return out
}

// TagMap flattens an osm.Tags slice into a plain string map.
func TagMap(tags osm.Tags) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}
