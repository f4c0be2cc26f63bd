// Package arena implements the fixed-capacity linear allocator that
// backs guest RAM and small VM metadata.
//
// Grounded on original_source/src/host/memory/arena.cpp: a single
// OS-backed mapping of exactly capacity bytes, poisoned to 0xAA on
// init and reset, bump-allocated with no alignment guarantees beyond
// the backing page, never shrinking until Destroy.
package arena

import (
	"errors"
	"fmt"

	"github.com/pound-emu/pound/passert"
	"github.com/pound-emu/pound/vlog"
)

// Poison is the byte every arena-owned region is filled with at Init
// and Reset, so use-before-write bugs read back as a recognizable
// pattern instead of zero.
const Poison = 0xAA

var log = vlog.New("arena")

// ErrResourceExhausted is returned when the host cannot back the
// requested capacity.
var ErrResourceExhausted = errors.New("arena: resource exhausted")

// ErrOutOfCapacity is returned by Allocate when the request would push
// size past capacity. Per spec.md §7 this is a configuration error, not
// a recoverable fault: callers are expected to have sized the arena
// correctly, and this specification's Arena.Allocate wraps the error
// rather than asserting so callers/tests can observe it, but §4.1's
// contract additionally requires it be treated as fatal by the caller.
var ErrOutOfCapacity = errors.New("arena: allocation exceeds capacity")

// Arena is a fixed-capacity, OS-backed linear allocator.
type Arena struct {
	capacity uint64
	size     uint64
	base     []byte
}

// Capacity returns the arena's total backing size in bytes.
func (a *Arena) Capacity() uint64 { return a.capacity }

// Size returns the current high-water mark in bytes.
func (a *Arena) Size() uint64 { return a.size }

// Init reserves exactly capacity bytes of OS-backed, read-write memory
// and poisons it.
func Init(capacity uint64) (*Arena, error) {
	base, err := mmapRegion(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}

	for i := range base {
		base[i] = Poison
	}

	log.Debugf("initialized arena capacity=%d", capacity)

	return &Arena{capacity: capacity, size: 0, base: base}, nil
}

// Allocate bumps size by n and returns a non-owning view of the
// freshly claimed bytes. The view's lifetime is bound to the arena: it
// must not be retained past Reset or Destroy.
func (a *Arena) Allocate(n uint64) ([]byte, error) {
	passert.Assert(a != nil, "Allocate called on nil arena")

	if a.size+n > a.capacity {
		return nil, fmt.Errorf("%w: size=%d n=%d capacity=%d", ErrOutOfCapacity, a.size, n, a.capacity)
	}

	view := a.base[a.size : a.size+n]
	a.size += n

	return view, nil
}

// Reset sets size back to zero and repoisons the entire region.
func (a *Arena) Reset() {
	passert.Assert(a != nil, "Reset called on nil arena")

	a.size = 0
	for i := range a.base {
		a.base[i] = Poison
	}
}

// Destroy releases the backing region. Any further use of the arena,
// or of views it previously handed out, is a fatal programming error.
func (a *Arena) Destroy() error {
	passert.Assert(a != nil, "Destroy called on nil arena")

	err := munmapRegion(a.base)
	a.base = nil
	a.capacity = 0
	a.size = 0

	return err
}
