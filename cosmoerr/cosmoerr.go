// Package cosmoerr defines the sentinel error kinds surfaced across the
// extraction pipeline. Call sites wrap one of these with github.com/pkg/errors
// for context and compare with errors.Is.
package cosmoerr

import "github.com/pkg/errors"

var (
	// ErrIo marks a filesystem or mmap failure.
	ErrIo = errors.New("io error")
	// ErrDecode marks a corrupt PBF blob or an unsupported variant.
	ErrDecode = errors.New("decode error")
	// ErrConfig marks an invalid or incompatible filter/mapping/expression at compile time.
	ErrConfig = errors.New("config error")
	// ErrOverCapacity marks a dense-store id exceeding max_nodes.
	ErrOverCapacity = errors.New("id exceeds node store capacity")
	// ErrUnsortedIds marks a sparse-store put that received an out-of-order id.
	ErrUnsortedIds = errors.New("node ids are not sorted ascending")
	// ErrSink marks a serialization or finalize failure in a data sink.
	ErrSink = errors.New("sink error")
	// ErrWriterPanic wraps a recovered panic from a writer goroutine.
	ErrWriterPanic = errors.New("writer goroutine panicked")
)

// Wrap attaches msg as context to kind, keeping kind matchable via errors.Is.
func Wrap(kind error, msg string) error {
	return errors.Wrap(kind, msg)
}

// Wrapf attaches a formatted message as context to kind.
func Wrapf(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
