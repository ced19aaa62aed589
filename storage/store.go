// Package storage implements the node coordinate store: three interchangeable
// backends (sparse sorted array, dense direct-indexed mmap, in-memory map)
// fronted by one write/read interface, used to rehydrate way geometries
// during the second pass of the extraction pipeline.
package storage

import (
	"math"

	"github.com/mvexel/cosmo/cosmoerr"
)

// scale converts a WGS84 degree value into the packed ×10⁷ fixed-point
// representation the store persists.
const scale = 1e7

// Writer accepts node coordinates during the single-producer indexing pass.
// No reads are permitted while a Writer is open.
type Writer interface {
	// Put records the coordinate for id. Implementations may fail with
	// cosmoerr.ErrOverCapacity (dense) or cosmoerr.ErrUnsortedIds (sparse).
	Put(id uint64, lon, lat float64) error

	// Finalize freezes the store and returns a concurrency-safe Reader. The
	// Writer must not be used afterwards.
	Finalize() (Reader, error)
}

// Reader is the concurrency-safe, lock-free read view produced by Finalize.
type Reader interface {
	// Get returns the coordinate stored for id, or ok=false if id was never
	// written (or, for the dense backend, is out of capacity).
	Get(id uint64) (lon, lat float64, ok bool)

	// Close releases any backing resources (mmap'd regions, owned temp files).
	Close() error
}

func packCoord(lon, lat float64) (lonFixed, latFixed int32, err error) {
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return 0, 0, cosmoerr.Wrapf(cosmoerr.ErrDecode, "coordinate (%f, %f) out of range", lon, lat)
	}
	lf := math.Round(lon * scale)
	tf := math.Round(lat * scale)
	if lf < math.MinInt32 || lf > math.MaxInt32 || tf < math.MinInt32 || tf > math.MaxInt32 {
		return 0, 0, cosmoerr.Wrapf(cosmoerr.ErrDecode, "coordinate (%f, %f) overflows fixed-point range", lon, lat)
	}
	return int32(lf), int32(tf), nil
}

func unpackCoord(lonFixed, latFixed int32) (lon, lat float64) {
	return float64(lonFixed) / scale, float64(latFixed) / scale
}

// packedPair bit-packs a pair of fixed-point coordinates into a single i64:
// (lon_fixed << 32) | (lat_fixed & 0xFFFFFFFF).
func packedPair(lonFixed, latFixed int32) int64 {
	return int64(uint64(uint32(lonFixed))<<32 | uint64(uint32(latFixed)))
}

func unpackPair(packed int64) (lonFixed, latFixed int32) {
	u := uint64(packed)
	return int32(uint32(u >> 32)), int32(uint32(u))
}

// NewSparse creates a Writer for the sorted-array backend. Node ids must
// arrive in non-decreasing order (the OSM PBF convention); a Put that
// violates this fails immediately with cosmoerr.ErrUnsortedIds.
func NewSparse() Writer {
	return &sparseWriter{}
}

// NewDense creates a Writer for the direct-indexed mmap backend. If path is
// empty, a scoped temporary file is created and removed once the resulting
// Reader is closed. maxNodes bounds the addressable id space.
func NewDense(path string, maxNodes uint64) (Writer, error) {
	return newDenseWriter(path, maxNodes)
}

// NewMemory creates a Writer for the hash-map backend, intended for small
// inputs, tests, or environments without usable disk.
func NewMemory() Writer {
	return &memoryWriter{entries: make(map[uint64]int64)}
}
