package storage

// memoryWriter keeps coordinates in a plain hash map. Unbounded memory;
// intended for small inputs, tests, or when no disk is available for the
// dense backend.
type memoryWriter struct {
	entries map[uint64]int64
}

func (w *memoryWriter) Put(id uint64, lon, lat float64) error {
	lonFixed, latFixed, err := packCoord(lon, lat)
	if err != nil {
		return err
	}
	w.entries[id] = packedPair(lonFixed, latFixed)
	return nil
}

func (w *memoryWriter) Finalize() (Reader, error) {
	r := &memoryReader{entries: w.entries}
	w.entries = nil
	return r, nil
}

type memoryReader struct {
	entries map[uint64]int64
}

func (r *memoryReader) Get(id uint64) (lon, lat float64, ok bool) {
	packed, found := r.entries[id]
	if !found {
		return 0, 0, false
	}
	lonFixed, latFixed := unpackPair(packed)
	lon, lat = unpackCoord(lonFixed, latFixed)
	return lon, lat, true
}

func (r *memoryReader) Close() error {
	r.entries = nil
	return nil
}
