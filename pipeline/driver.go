package pipeline

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hauke96/sigolo/v2"
	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/feature"
	"github.com/mvexel/cosmo/progress"
	"github.com/mvexel/cosmo/sink"
	"github.com/mvexel/cosmo/storage"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// logSortAssumptionOnce gates the one-time sort-order notice: osmpbf.Scanner
// doesn't expose the PBF header's Sort.Nodes/Ways/Relations feature flags at
// its public API, so cosmo assumes the conventional nodes-before-ways-
// before-relations ordering and says so exactly once per process.
var logSortAssumptionOnce sync.Once

func logSortAssumption() {
	logSortAssumptionOnce.Do(func() {
		sigolo.Infof("assuming PBF sort order for nodes before ways before relations")
	})
}

// nodeBatchSize and featureBatchSize bound how many items accumulate in the
// scanning goroutine before being handed to the writer goroutine over the
// bounded channel. osmpbf.Scanner delivers one element at a time with no
// exposed block boundary, so batches are sized by fixed count instead of by
// decoded block.
const (
	nodeBatchSize    = 1000
	featureBatchSize = 256
	channelCapacity  = 64
)

type nodeCoord struct {
	id       uint64
	lon, lat float64
}

// runWriterThread runs fn in its own goroutine, recovering a panic into
// cosmoerr.ErrWriterPanic, and returns a channel that receives exactly one
// error (nil on success) once fn returns.
func runWriterThread(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- cosmoerr.Wrapf(cosmoerr.ErrWriterPanic, "writer goroutine panicked: %v", r)
			}
		}()
		done <- fn()
	}()
	return done
}

// pass1IndexNodes scans the PBF once, routing every node's id/lon/lat to
// writer. procs selects osmpbf.Scanner's internal decode parallelism: 1
// preserves strict id order for the sparse backend, >1 trades order for
// throughput on backends that accept out-of-order puts. A single writer
// goroutine holds exclusive write access to the node store; its error, if
// any, is treated as the root cause over a scan-loop error it provoked.
func pass1IndexNodes(ctx context.Context, path string, writer storage.Writer, procs int) (storage.Reader, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, cosmoerr.Wrapf(cosmoerr.ErrIo, "opening input %s", path)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, procs)
	defer scanner.Close()

	ch := make(chan []nodeCoord, channelCapacity)
	var nodeCount uint64

	writerDone := runWriterThread(func() error {
		counter := progress.New("Pass 1/2: indexing nodes", 100000)
		for batch := range ch {
			for _, n := range batch {
				if err := writer.Put(n.id, n.lon, n.lat); err != nil {
					return cosmoerr.Wrapf(err, "indexing node %d", n.id)
				}
				nodeCount++
			}
			counter.Inc(uint64(len(batch)))
		}
		counter.Finish()
		return nil
	})

	scanErr := func() error {
		defer close(ch)
		batch := make([]nodeCoord, 0, nodeBatchSize)
		for scanner.Scan() {
			n, ok := scanner.Object().(*osm.Node)
			if !ok {
				continue
			}
			batch = append(batch, nodeCoord{id: uint64(n.ID), lon: n.Lon, lat: n.Lat})
			if len(batch) >= nodeBatchSize {
				ch <- batch
				batch = make([]nodeCoord, 0, nodeBatchSize)
			}
		}
		if len(batch) > 0 {
			ch <- batch
		}
		return scanner.Err()
	}()

	writerErr := <-writerDone
	if writerErr != nil {
		if scanErr != nil {
			return nil, 0, cosmoerr.Wrapf(writerErr, "writer thread failed (caused scan disconnect: %v)", scanErr)
		}
		return nil, 0, writerErr
	}
	if scanErr != nil {
		return nil, 0, cosmoerr.Wrap(scanErr, "scanning pbf for pass 1")
	}

	reader, err := writer.Finalize()
	if err != nil {
		return nil, 0, cosmoerr.Wrap(err, "finalizing node store")
	}
	return reader, nodeCount, nil
}

// runPass scans the PBF once more, dispatching every node/way/relation to
// proc and streaming resulting feature rows to sink through a single writer
// goroutine that holds exclusive sink access for the pass's lifetime, with
// the same writer-thread-first error causality as the node-indexing pass.
func runPass(ctx context.Context, path string, proc *Processor, dataSink sink.DataSink, label string, procs int) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, cosmoerr.Wrapf(cosmoerr.ErrIo, "opening input %s", path)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, procs)
	defer scanner.Close()

	ch := make(chan []feature.FeatureRow, channelCapacity)
	var matchCount uint64

	writerDone := runWriterThread(func() error {
		for batch := range ch {
			for _, row := range batch {
				if err := dataSink.AddFeature(row); err != nil {
					return cosmoerr.Wrap(err, "writing feature row")
				}
				atomic.AddUint64(&matchCount, 1)
			}
		}
		return nil
	})

	counter := progress.New(label, 10000)
	scanErr := func() error {
		defer close(ch)
		batch := make([]feature.FeatureRow, 0, featureBatchSize)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			ch <- batch
			batch = make([]feature.FeatureRow, 0, featureBatchSize)
		}
		for scanner.Scan() {
			counter.Inc(1)
			var rows []feature.FeatureRow
			switch obj := scanner.Object().(type) {
			case *osm.Node:
				rows = proc.HandleNode(obj)
			case *osm.Way:
				rows = proc.HandleWay(obj)
			case *osm.Relation:
				proc.HandleRelation(obj, func(*Table) {})
			default:
				continue
			}
			if len(rows) == 0 {
				continue
			}
			batch = append(batch, rows...)
			if len(batch) >= featureBatchSize {
				flush()
			}
		}
		flush()
		return scanner.Err()
	}()

	writerErr := <-writerDone
	counter.Finish()
	if writerErr != nil {
		if scanErr != nil {
			return 0, cosmoerr.Wrapf(writerErr, "writer thread failed (caused scan disconnect: %v)", scanErr)
		}
		return 0, writerErr
	}
	if scanErr != nil {
		return 0, cosmoerr.Wrap(scanErr, "scanning pbf for feature pass")
	}

	return atomic.LoadUint64(&matchCount), nil
}

// Run executes the full extraction: an optional node-indexing pass when any
// table needs way or relation geometry, followed by the feature-emitting
// pass, finishing with a single sink.Finish call on success.
func Run(ctx context.Context, path string, tables []Table, dataSink sink.DataSink, mode storage.Mode, cachePath string, maxNodes uint64, threads int) (uint64, error) {
	logSortAssumption()

	needsNodes := false
	for _, t := range tables {
		if t.Geometry.Way.Enabled || t.Geometry.Relation {
			needsNodes = true
			break
		}
	}

	var reader storage.Reader
	if needsNodes {
		info, err := os.Stat(path)
		if err != nil {
			return 0, cosmoerr.Wrapf(cosmoerr.ErrIo, "statting input %s", path)
		}
		resolved := storage.Resolve(mode, info.Size())
		sigolo.Infof("Node cache: %s", resolved)

		var writer storage.Writer
		switch resolved {
		case storage.ModeSparse:
			writer = storage.NewSparse()
		case storage.ModeDense:
			writer, err = storage.NewDense(cachePath, maxNodes)
			if err != nil {
				return 0, err
			}
		default:
			writer = storage.NewMemory()
		}

		procs := threads
		if resolved == storage.ModeSparse {
			procs = 1 // preserve id order; sparse rejects out-of-order puts
		}

		var nodeCount uint64
		reader, nodeCount, err = pass1IndexNodes(ctx, path, writer, procs)
		if err != nil {
			return 0, cosmoerr.Wrap(err, "pass 1: indexing nodes")
		}
		sigolo.Infof("Indexed %d nodes", nodeCount)
		defer reader.Close()
	}

	proc := NewProcessor(tables, reader)
	label := "Pass 2/2: extracting features"
	if !needsNodes {
		label = "Single pass: extracting features"
	}
	matchCount, err := runPass(ctx, path, proc, dataSink, label, threads)
	if err != nil {
		return 0, cosmoerr.Wrap(err, "feature extraction pass")
	}

	if err := dataSink.Finish(); err != nil {
		return 0, cosmoerr.Wrap(err, "finishing sink")
	}

	counts := proc.Counts()
	sigolo.Infof("Matched elements: %d %s, %d %s, %d %s",
		counts[feature.ElementNode], feature.ElementNode,
		counts[feature.ElementWay], feature.ElementWay,
		counts[feature.ElementRelation], feature.ElementRelation)

	return matchCount, nil
}
