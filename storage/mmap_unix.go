//go:build unix

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapRegion abstracts the memory-mapped byte range backing the dense store
// so dense.go stays platform-independent.
type mmapRegion interface {
	bytes() []byte
	protectReadOnly() error
	unmap() error
}

type unixRegion struct {
	data []byte
}

func mapFile(f *os.File, size int64, writable bool) (mmapRegion, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &unixRegion{data: data}, nil
}

func (r *unixRegion) bytes() []byte { return r.data }

func (r *unixRegion) protectReadOnly() error {
	if len(r.data) == 0 {
		return nil
	}
	return unix.Mprotect(r.data, unix.PROT_READ)
}

func (r *unixRegion) unmap() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
