// Package mmio implements the sorted, binary-searched MMIO registry:
// a non-overlapping map from guest-physical-address ranges to per-device
// read/write callbacks, on the per-access hot path.
//
// Grounded on original_source/src/kvm/mmio.{h,cpp} bit-for-bit: Register
// uses a std::lower_bound-equivalent insertion point with neighbor
// overlap checks; dispatch uses a std::upper_bound-equivalent predecessor
// lookup. Storage is Structure-of-Arrays (two parallel slices), matching
// the original's mmio_db_t and satisfying spec.md §4.3/§9.
package mmio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pound-emu/pound/cpu"
	"github.com/pound-emu/pound/memory"
	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("mmio")

// ErrAddressOverlap is returned by Register when the requested range
// conflicts with an already-registered range.
var ErrAddressOverlap = errors.New("mmio: address range overlap")

// ErrNotHandled is returned by dispatch when gpa does not fall within
// any registered range; the caller should fall back to RAM.
var ErrNotHandled = errors.New("mmio: address not handled")

// ErrAccessDenied is returned by dispatch when gpa falls within a
// registered range but that range's handler does not support the
// requested direction.
var ErrAccessDenied = errors.New("mmio: access denied")

// Range is a half-open guest physical address interval [Base, End).
type Range struct {
	Base uint64
	End  uint64
}

func (r Range) contains(gpa uint64) bool {
	return r.Base <= gpa && gpa < r.End
}

// VM is the capability a device handler needs from the owning
// machine.VM: its guest RAM and vCPU state, per spec.md §6.2's
// `(vm, gpa, buf, len)` callback signature. It is declared here, as an
// interface, rather than importing machine.VM directly, because
// machine.VM holds a *Registry — importing machine from mmio would
// cycle. machine.VM satisfies this interface; access.Facade does too.
type VM interface {
	GuestMem() *memory.Guest
	CPUState() *cpu.State
}

// ReadFunc is invoked on a guest read within a registered range; it
// must fill buf with len(buf) bytes of device state.
type ReadFunc func(vm VM, gpa uint64, buf []byte) error

// WriteFunc is invoked on a guest write within a registered range; buf
// holds the len(buf) bytes the guest wrote.
type WriteFunc func(vm VM, gpa uint64, buf []byte) error

// Handler is a pair of optional direction callbacks. At least one must
// be non-nil at registration; a nil callback denies that direction.
type Handler struct {
	Read  ReadFunc
	Write WriteFunc
}

// Registry is the sorted, disjoint GPA→device-handler map.
type Registry struct {
	ranges   []Range
	handlers []Handler
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register inserts range/handler into the sorted sequence, preserving
// strict ordering and disjointness.
func (r *Registry) Register(rng Range, h Handler) error {
	if rng.Base >= rng.End {
		return fmt.Errorf("mmio: invalid range [%#x, %#x)", rng.Base, rng.End)
	}

	if h.Read == nil && h.Write == nil {
		return fmt.Errorf("mmio: handler for [%#x, %#x) has neither read nor write", rng.Base, rng.End)
	}

	// First index i such that ranges[i].Base >= rng.Base (lower_bound).
	i := sort.Search(len(r.ranges), func(i int) bool {
		return r.ranges[i].Base >= rng.Base
	})

	if i > 0 && rng.Base < r.ranges[i-1].End {
		return fmt.Errorf("%w: [%#x,%#x) vs predecessor [%#x,%#x)",
			ErrAddressOverlap, rng.Base, rng.End, r.ranges[i-1].Base, r.ranges[i-1].End)
	}

	if i < len(r.ranges) && r.ranges[i].Base < rng.End {
		return fmt.Errorf("%w: [%#x,%#x) vs successor [%#x,%#x)",
			ErrAddressOverlap, rng.Base, rng.End, r.ranges[i].Base, r.ranges[i].End)
	}

	r.ranges = append(r.ranges, Range{})
	copy(r.ranges[i+1:], r.ranges[i:])
	r.ranges[i] = rng

	r.handlers = append(r.handlers, Handler{})
	copy(r.handlers[i+1:], r.handlers[i:])
	r.handlers[i] = h

	log.Debugf("registered range [%#x, %#x)", rng.Base, rng.End)

	return nil
}

// find returns the index of the range containing gpa, or -1.
//
// Implements the predecessor lookup from original_source/src/kvm/mmio.cpp:
// binary-search for the first range whose Base strictly exceeds gpa
// (upper_bound); the candidate is the immediate predecessor.
func (r *Registry) find(gpa uint64) int {
	it := sort.Search(len(r.ranges), func(i int) bool {
		return r.ranges[i].Base > gpa
	})

	if it == 0 {
		return -1
	}

	candidate := it - 1
	if r.ranges[candidate].contains(gpa) {
		return candidate
	}

	return -1
}

// DispatchRead routes a guest physical read of len(buf) bytes at gpa to
// the owning range's Read callback, passing vm through so the device
// can reach guest RAM or vCPU state if it needs to.
func (r *Registry) DispatchRead(vm VM, gpa uint64, buf []byte) error {
	i := r.find(gpa)
	if i < 0 {
		return fmt.Errorf("%w: gpa=%#x", ErrNotHandled, gpa)
	}

	if r.handlers[i].Read == nil {
		return fmt.Errorf("%w: gpa=%#x has no read handler", ErrAccessDenied, gpa)
	}

	return r.handlers[i].Read(vm, gpa, buf)
}

// DispatchWrite routes a guest physical write of len(buf) bytes at gpa
// to the owning range's Write callback, passing vm through so the
// device can reach guest RAM or vCPU state if it needs to.
func (r *Registry) DispatchWrite(vm VM, gpa uint64, buf []byte) error {
	i := r.find(gpa)
	if i < 0 {
		return fmt.Errorf("%w: gpa=%#x", ErrNotHandled, gpa)
	}

	if r.handlers[i].Write == nil {
		return fmt.Errorf("%w: gpa=%#x has no write handler", ErrAccessDenied, gpa)
	}

	return r.handlers[i].Write(vm, gpa, buf)
}

// Ranges returns a copy of the currently registered ranges, sorted by
// Base. Exposed for tests and diagnostics only.
func (r *Registry) Ranges() []Range {
	out := make([]Range, len(r.ranges))
	copy(out, r.ranges)

	return out
}
