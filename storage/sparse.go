package storage

import (
	"sort"

	"github.com/mvexel/cosmo/cosmoerr"
)

// sparseWriter accumulates (id, packed) pairs in memory. The PBF convention
// delivers node ids in ascending order, so accumulation stays O(1) per Put
// and Finalize only has to verify the invariant already holds rather than
// sort ~10^10 entries.
type sparseWriter struct {
	ids     []uint64
	packed  []int64
	lastID  uint64
	hasLast bool
}

func (w *sparseWriter) Put(id uint64, lon, lat float64) error {
	if w.hasLast && id < w.lastID {
		return cosmoerr.Wrapf(cosmoerr.ErrUnsortedIds, "node %d arrived after node %d", id, w.lastID)
	}
	lonFixed, latFixed, err := packCoord(lon, lat)
	if err != nil {
		return err
	}
	w.ids = append(w.ids, id)
	w.packed = append(w.packed, packedPair(lonFixed, latFixed))
	w.lastID = id
	w.hasLast = true
	return nil
}

func (w *sparseWriter) Finalize() (Reader, error) {
	if !sort.SliceIsSorted(w.ids, func(i, j int) bool { return w.ids[i] < w.ids[j] }) {
		return nil, cosmoerr.Wrap(cosmoerr.ErrUnsortedIds, "sparse node ids were not ascending at finalize")
	}
	r := &sparseReader{ids: w.ids, packed: w.packed}
	w.ids, w.packed = nil, nil
	return r, nil
}

type sparseReader struct {
	ids    []uint64
	packed []int64
}

func (r *sparseReader) Get(id uint64) (lon, lat float64, ok bool) {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i >= len(r.ids) || r.ids[i] != id {
		return 0, 0, false
	}
	lonFixed, latFixed := unpackPair(r.packed[i])
	lon, lat = unpackCoord(lonFixed, latFixed)
	return lon, lat, true
}

func (r *sparseReader) Close() error {
	r.ids, r.packed = nil, nil
	return nil
}
