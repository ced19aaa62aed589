// Package progress implements a lock-free, interval-gated progress counter
// for the pipeline's decode side.
package progress

import (
	"sync/atomic"

	"github.com/hauke96/sigolo/v2"
)

// Counter reports progress to the log without serializing the hot path: a
// single atomic fetch-add per increment, printed only on interval crossings.
type Counter struct {
	label    string
	interval uint64
	count    atomic.Uint64
}

// New starts a counter under label, printing every interval increments. An
// interval below 1 is clamped to 1.
func New(label string, interval uint64) *Counter {
	if interval < 1 {
		interval = 1
	}
	c := &Counter{label: label, interval: interval}
	c.print(0)
	return c
}

// Inc adds delta to the counter and prints iff the increment crosses a
// multiple of the interval.
func (c *Counter) Inc(delta uint64) {
	prev := c.count.Add(delta) - delta
	current := prev + delta
	if prev/c.interval < current/c.interval {
		c.print(current)
	}
}

// Finish prints the final count and terminates the progress line.
func (c *Counter) Finish() {
	sigolo.Infof("\r%s: %d", c.label, c.count.Load())
}

func (c *Counter) print(value uint64) {
	sigolo.Debugf("\r%s: %d", c.label, value)
}
