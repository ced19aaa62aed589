package storage

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-7
}

func TestSparseStorePutGet(t *testing.T) {
	w := NewSparse()
	if err := w.Put(1, 13.37, 52.5); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := w.Put(2, -122.4, 37.7); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	defer r.Close()

	lon, lat, ok := r.Get(1)
	if !ok || !almostEqual(lon, 13.37) || !almostEqual(lat, 52.5) {
		t.Errorf("Get(1) = (%f, %f, %v), want (13.37, 52.5, true)", lon, lat, ok)
	}

	if _, _, ok := r.Get(99); ok {
		t.Errorf("Get(99) should not be found")
	}
}

func TestSparseStoreRejectsUnsortedIds(t *testing.T) {
	w := NewSparse()
	if err := w.Put(5, 0, 0); err != nil {
		t.Fatalf("Put(5) failed: %v", err)
	}
	if err := w.Put(3, 0, 0); err == nil {
		t.Errorf("Put(3) after Put(5) should fail with unsorted ids")
	}
}

func TestSparseStoreDuplicateIdLastWins(t *testing.T) {
	w := NewSparse()
	w.Put(1, 1.0, 1.0)
	w.Put(1, 2.0, 2.0)
	r, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	defer r.Close()

	lon, _, ok := r.Get(1)
	if !ok || !almostEqual(lon, 2.0) {
		t.Errorf("Get(1) = %f, want last write 2.0", lon)
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	w := NewMemory()
	w.Put(42, 10.5, -5.25)
	r, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	defer r.Close()

	lon, lat, ok := r.Get(42)
	if !ok || !almostEqual(lon, 10.5) || !almostEqual(lat, -5.25) {
		t.Errorf("Get(42) = (%f, %f, %v)", lon, lat, ok)
	}
	if _, _, ok := r.Get(1); ok {
		t.Errorf("Get(1) should not be found")
	}
}

func TestDenseStorePutGetAndOverCapacity(t *testing.T) {
	w, err := NewDense("", 1000)
	if err != nil {
		t.Fatalf("NewDense failed: %v", err)
	}

	if err := w.Put(500, 1.2345678, 7.6543210); err != nil {
		t.Fatalf("Put(500) failed: %v", err)
	}
	if err := w.Put(1000, 0, 0); err == nil {
		t.Errorf("Put(1000) should fail with OverCapacity for max_nodes=1000")
	}

	r, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	defer r.Close()

	lon, lat, ok := r.Get(500)
	if !ok || !almostEqual(lon, 1.2345678) || !almostEqual(lat, 7.6543210) {
		t.Errorf("Get(500) = (%f, %f, %v)", lon, lat, ok)
	}

	// unwritten slot reads back as (0, 0), not absent
	lon, lat, ok = r.Get(1)
	if !ok || lon != 0 || lat != 0 {
		t.Errorf("Get(1) unwritten slot = (%f, %f, %v), want (0, 0, true)", lon, lat, ok)
	}

	if _, _, ok := r.Get(1000); ok {
		t.Errorf("Get(1000) should be out of capacity")
	}
}

func TestBackendsAgreeOnSameTrace(t *testing.T) {
	trace := []struct {
		id       uint64
		lon, lat float64
	}{
		{1, 13.37, 52.5},
		{2, -122.4, 37.7},
		{3, 0, 0},
		{10, 179.9999999, -89.9999999},
	}

	readers := map[string]Reader{}

	sparse := NewSparse()
	for _, e := range trace {
		sparse.Put(e.id, e.lon, e.lat)
	}
	r, err := sparse.Finalize()
	if err != nil {
		t.Fatalf("sparse Finalize: %v", err)
	}
	readers["sparse"] = r

	mem := NewMemory()
	for _, e := range trace {
		mem.Put(e.id, e.lon, e.lat)
	}
	r, err = mem.Finalize()
	if err != nil {
		t.Fatalf("memory Finalize: %v", err)
	}
	readers["memory"] = r

	dense, err := NewDense("", 100)
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	for _, e := range trace {
		dense.Put(e.id, e.lon, e.lat)
	}
	r, err = dense.Finalize()
	if err != nil {
		t.Fatalf("dense Finalize: %v", err)
	}
	readers["dense"] = r

	for _, e := range trace {
		for name, reader := range readers {
			lon, lat, ok := reader.Get(e.id)
			if !ok || !almostEqual(lon, e.lon) || !almostEqual(lat, e.lat) {
				t.Errorf("%s backend Get(%d) = (%f, %f, %v), want (%f, %f, true)", name, e.id, lon, lat, ok, e.lon, e.lat)
			}
		}
	}

	for _, reader := range readers {
		reader.Close()
	}
}

func TestResolveAutoPicksDenseAboveThreshold(t *testing.T) {
	if got := Resolve(ModeAuto, 1<<20); got != ModeSparse {
		t.Errorf("Resolve(Auto, 1MiB) = %v, want Sparse", got)
	}
	if got := Resolve(ModeAuto, denseThresholdBytes); got != ModeDense {
		t.Errorf("Resolve(Auto, 5GiB) = %v, want Dense", got)
	}
	if got := Resolve(ModeMemory, denseThresholdBytes); got != ModeMemory {
		t.Errorf("Resolve(Memory, 5GiB) = %v, want Memory (explicit overrides)", got)
	}
}

func TestParseModeMmapAliasesToDense(t *testing.T) {
	m, err := ParseMode("mmap")
	if err != nil {
		t.Fatalf("ParseMode(mmap) failed: %v", err)
	}
	if m != ModeDense {
		t.Errorf("ParseMode(mmap) = %v, want Dense", m)
	}
}
