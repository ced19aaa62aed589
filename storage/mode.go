package storage

import (
	"strings"

	"github.com/mvexel/cosmo/cosmoerr"
)

// Mode selects which node-store backend to use for a run.
type Mode int

const (
	ModeAuto Mode = iota
	ModeSparse
	ModeDense
	ModeMemory
)

// denseThresholdBytes is the empirical break-even point between 16B/entry
// sorted storage and 8B/slot direct addressing.
const denseThresholdBytes = 5 * (1 << 30)

func (m Mode) String() string {
	switch m {
	case ModeSparse:
		return "sparse"
	case ModeDense:
		return "dense"
	case ModeMemory:
		return "memory"
	default:
		return "auto"
	}
}

// ParseMode parses a user-supplied --node-cache-mode value. "mmap" is a
// backward-compatible alias for dense.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "sparse":
		return ModeSparse, nil
	case "dense", "mmap":
		return ModeDense, nil
	case "memory":
		return ModeMemory, nil
	default:
		return ModeAuto, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unknown node-cache-mode %q", s)
	}
}

// Resolve turns a requested mode into a concrete backend choice. Auto picks
// Dense when inputSizeBytes meets the threshold, else Sparse.
func Resolve(requested Mode, inputSizeBytes int64) Mode {
	if requested != ModeAuto {
		return requested
	}
	if inputSizeBytes >= denseThresholdBytes {
		return ModeDense
	}
	return ModeSparse
}
