package pipeline

import (
	"errors"
	"testing"

	"github.com/mvexel/cosmo/cosmoerr"
)

func TestRunWriterThreadPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	err := <-runWriterThread(func() error { return sentinel })
	if err != sentinel {
		t.Errorf("got %v, want sentinel error", err)
	}
}

func TestRunWriterThreadRecoversPanic(t *testing.T) {
	err := <-runWriterThread(func() error { panic("writer exploded") })
	if err == nil {
		t.Fatal("expected an error from a panicking writer")
	}
	if !errors.Is(err, cosmoerr.ErrWriterPanic) {
		t.Errorf("error = %v, want wrapping ErrWriterPanic", err)
	}
}

func TestRunWriterThreadSucceeds(t *testing.T) {
	err := <-runWriterThread(func() error { return nil })
	if err != nil {
		t.Errorf("got %v, want nil", err)
	}
}
