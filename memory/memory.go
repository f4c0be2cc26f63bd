// Package memory implements the guest physical memory descriptor: a
// non-owning view over the host buffer backing guest RAM, with
// size/alignment/bounds-checked typed accessors and guest→host endian
// conversion.
//
// Grounded on original_source/src/kvm/guest.cpp (descriptor carved from
// an arena-owned region, immutable base/size) and
// original_source/core/arm64/mmu.h for the width/fault contract. The
// teacher's memory.Memory/MemorySlot split inspired keeping this as a
// thin, non-owning view rather than an owning buffer.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pound-emu/pound/arena"
)

// GuestLittleEndian is the guest's compile-time-fixed endianness. The
// primary target (AArch64 in the configuration this core emulates) is
// little-endian; per spec.md §4.2/§9 OQ3, this is fixed, not runtime
// configurable.
const GuestLittleEndian = true

// ErrBoundary is returned when an access range is not entirely within
// [0, size).
var ErrBoundary = errors.New("memory: access out of bounds")

// ErrUnaligned is returned when a multi-byte access's GPA is not a
// multiple of the access width.
var ErrUnaligned = errors.New("memory: unaligned access")

// guestOrder is the byte order the guest expects on the wire, selected
// by GuestLittleEndian. Accesses convert between this and the host's
// native order, centralizing the swap in one place per spec.md §9.
var guestOrder = func() binary.ByteOrder {
	if GuestLittleEndian {
		return binary.LittleEndian
	}

	return binary.BigEndian
}()

// Guest describes a contiguous host buffer holding guest physical RAM
// starting at guest physical address 0. It does not own the buffer —
// the arena that produced it does — and base/size are immutable for
// the descriptor's lifetime.
type Guest struct {
	base []byte
	size uint64
}

// NewFromArena carves a Guest RAM descriptor consuming the rest of the
// arena's remaining capacity, mirroring guest_memory_create in
// original_source/src/kvm/guest.cpp.
func NewFromArena(a *arena.Arena) (*Guest, error) {
	remaining := a.Capacity() - a.Size()

	buf, err := a.Allocate(remaining)
	if err != nil {
		return nil, fmt.Errorf("memory: carving guest RAM: %w", err)
	}

	return &Guest{base: buf, size: remaining}, nil
}

// NewFromBuffer wraps an already-allocated buffer as a Guest
// descriptor. Used by tests and by callers that manage their own
// backing storage instead of an arena.Arena.
func NewFromBuffer(buf []byte) *Guest {
	return &Guest{base: buf, size: uint64(len(buf))}
}

// Size returns the RAM region size in bytes.
func (g *Guest) Size() uint64 { return g.size }

func (g *Guest) checkAccess(gpa uint64, width uint64) error {
	if gpa > g.size || width > g.size-gpa {
		return fmt.Errorf("%w: gpa=%#x width=%d size=%#x", ErrBoundary, gpa, width, g.size)
	}

	if width > 1 && gpa%width != 0 {
		return fmt.Errorf("%w: gpa=%#x width=%d", ErrUnaligned, gpa, width)
	}

	return nil
}

// Read8 reads a single byte at gpa. Byte accesses never fault on
// alignment.
func (g *Guest) Read8(gpa uint64) (uint8, error) {
	if err := g.checkAccess(gpa, 1); err != nil {
		return 0, err
	}

	return g.base[gpa], nil
}

// Write8 writes a single byte at gpa.
func (g *Guest) Write8(gpa uint64, v uint8) error {
	if err := g.checkAccess(gpa, 1); err != nil {
		return err
	}

	g.base[gpa] = v

	return nil
}

// Read16 reads an endian-converted uint16 at gpa.
func (g *Guest) Read16(gpa uint64) (uint16, error) {
	if err := g.checkAccess(gpa, 2); err != nil {
		return 0, err
	}

	return guestOrder.Uint16(g.base[gpa : gpa+2]), nil
}

// Write16 writes v at gpa, endian-converted for the guest.
func (g *Guest) Write16(gpa uint64, v uint16) error {
	if err := g.checkAccess(gpa, 2); err != nil {
		return err
	}

	guestOrder.PutUint16(g.base[gpa:gpa+2], v)

	return nil
}

// Read32 reads an endian-converted uint32 at gpa.
func (g *Guest) Read32(gpa uint64) (uint32, error) {
	if err := g.checkAccess(gpa, 4); err != nil {
		return 0, err
	}

	return guestOrder.Uint32(g.base[gpa : gpa+4]), nil
}

// Write32 writes v at gpa, endian-converted for the guest.
func (g *Guest) Write32(gpa uint64, v uint32) error {
	if err := g.checkAccess(gpa, 4); err != nil {
		return err
	}

	guestOrder.PutUint32(g.base[gpa:gpa+4], v)

	return nil
}

// Read64 reads an endian-converted uint64 at gpa.
func (g *Guest) Read64(gpa uint64) (uint64, error) {
	if err := g.checkAccess(gpa, 8); err != nil {
		return 0, err
	}

	return guestOrder.Uint64(g.base[gpa : gpa+8]), nil
}

// Write64 writes v at gpa, endian-converted for the guest.
func (g *Guest) Write64(gpa uint64, v uint64) error {
	if err := g.checkAccess(gpa, 8); err != nil {
		return err
	}

	guestOrder.PutUint64(g.base[gpa:gpa+8], v)

	return nil
}
