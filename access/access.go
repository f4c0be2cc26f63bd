// Package access implements the single entry point for every guest
// memory or device access: translate GVA→GPA, classify RAM vs MMIO,
// and dispatch, per spec.md §4.7.
//
// Grounded on original_source/src/kvm/kvm.cpp's ops-table dispatch
// pattern and original_source/src/pvm/mmio.cpp, which wires the same
// translate→classify→dispatch sequence for the pure-software (pvm)
// backend this core follows.
package access

import (
	"errors"
	"fmt"

	"github.com/pound-emu/pound/cpu"
	"github.com/pound-emu/pound/memory"
	"github.com/pound-emu/pound/mmio"
	"github.com/pound-emu/pound/mmu"
)

// ErrTranslationFault is returned when an address is neither valid RAM
// nor registered MMIO — the GPA simply does not exist in this guest's
// physical address space.
var ErrTranslationFault = errors.New("access: translation fault")

// ErrPermissionFault is returned when a GPA lands inside a registered
// MMIO range whose handler denies the requested direction.
var ErrPermissionFault = errors.New("access: permission fault")

// Facade is the entry point for guest accesses: one vCPU's translation
// state, the RAM it can resolve into, and the devices it can route to.
type Facade struct {
	State *cpu.State
	Mem   *memory.Guest
	MMIO  *mmio.Registry
}

// New returns a Facade over the given vCPU, RAM, and device registry.
func New(state *cpu.State, mem *memory.Guest, registry *mmio.Registry) *Facade {
	return &Facade{State: state, Mem: mem, MMIO: registry}
}

// GuestMem returns the Facade's guest RAM, satisfying mmio.VM so
// dispatched device handlers can reach it.
func (f *Facade) GuestMem() *memory.Guest { return f.Mem }

// CPUState returns the Facade's vCPU register state, satisfying mmio.VM.
func (f *Facade) CPUState() *cpu.State { return f.State }

// translate resolves gva to a GPA via the stage-1 MMU, wrapping MMU
// faults as access faults so callers have one fault vocabulary.
func (f *Facade) translate(gva uint64) (uint64, error) {
	gpa, err := mmu.Translate(f.State, f.Mem, gva)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTranslationFault, err)
	}

	return gpa, nil
}

// inRAM reports whether gpa begins a region that falls entirely within
// guest RAM for the given width.
func (f *Facade) inRAM(gpa, width uint64) bool {
	return gpa < f.Mem.Size() && width <= f.Mem.Size()-gpa
}

func classifyMMIOFault(gpa uint64, err error) error {
	switch {
	case errors.Is(err, mmio.ErrNotHandled):
		return fmt.Errorf("%w: gpa=%#x not RAM and not MMIO", ErrTranslationFault, gpa)
	case errors.Is(err, mmio.ErrAccessDenied):
		return fmt.Errorf("%w: gpa=%#x: %v", ErrPermissionFault, gpa, err)
	default:
		return err
	}
}

// Write32 writes v at gva: translate, then either the typed RAM write
// or MMIO dispatch, per spec.md §4.7.
func (f *Facade) Write32(gva uint64, v uint32) error {
	gpa, err := f.translate(gva)
	if err != nil {
		return err
	}

	if f.inRAM(gpa, 4) {
		return f.Mem.Write32(gpa, v)
	}

	var buf [4]byte

	buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)

	if err := f.MMIO.DispatchWrite(f, gpa, buf[:]); err != nil {
		return classifyMMIOFault(gpa, err)
	}

	return nil
}

// Read32 reads a uint32 at gva: translate, then either the typed RAM
// read or MMIO dispatch.
func (f *Facade) Read32(gva uint64) (uint32, error) {
	gpa, err := f.translate(gva)
	if err != nil {
		return 0, err
	}

	if f.inRAM(gpa, 4) {
		return f.Mem.Read32(gpa)
	}

	var buf [4]byte

	if err := f.MMIO.DispatchRead(f, gpa, buf[:]); err != nil {
		return 0, classifyMMIOFault(gpa, err)
	}

	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// Write8/Read8, Write16/Read16, Write64/Read64 follow the same
// translate→classify→dispatch shape as Write32/Read32.

func (f *Facade) Write8(gva uint64, v uint8) error {
	gpa, err := f.translate(gva)
	if err != nil {
		return err
	}

	if f.inRAM(gpa, 1) {
		return f.Mem.Write8(gpa, v)
	}

	buf := [1]byte{v}
	if err := f.MMIO.DispatchWrite(f, gpa, buf[:]); err != nil {
		return classifyMMIOFault(gpa, err)
	}

	return nil
}

func (f *Facade) Read8(gva uint64) (uint8, error) {
	gpa, err := f.translate(gva)
	if err != nil {
		return 0, err
	}

	if f.inRAM(gpa, 1) {
		return f.Mem.Read8(gpa)
	}

	var buf [1]byte

	if err := f.MMIO.DispatchRead(f, gpa, buf[:]); err != nil {
		return 0, classifyMMIOFault(gpa, err)
	}

	return buf[0], nil
}

func (f *Facade) Write16(gva uint64, v uint16) error {
	gpa, err := f.translate(gva)
	if err != nil {
		return err
	}

	if f.inRAM(gpa, 2) {
		return f.Mem.Write16(gpa, v)
	}

	buf := [2]byte{byte(v), byte(v >> 8)}
	if err := f.MMIO.DispatchWrite(f, gpa, buf[:]); err != nil {
		return classifyMMIOFault(gpa, err)
	}

	return nil
}

func (f *Facade) Read16(gva uint64) (uint16, error) {
	gpa, err := f.translate(gva)
	if err != nil {
		return 0, err
	}

	if f.inRAM(gpa, 2) {
		return f.Mem.Read16(gpa)
	}

	var buf [2]byte

	if err := f.MMIO.DispatchRead(f, gpa, buf[:]); err != nil {
		return 0, classifyMMIOFault(gpa, err)
	}

	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (f *Facade) Write64(gva uint64, v uint64) error {
	gpa, err := f.translate(gva)
	if err != nil {
		return err
	}

	if f.inRAM(gpa, 8) {
		return f.Mem.Write64(gpa, v)
	}

	var buf [8]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}

	if err := f.MMIO.DispatchWrite(f, gpa, buf[:]); err != nil {
		return classifyMMIOFault(gpa, err)
	}

	return nil
}

func (f *Facade) Read64(gva uint64) (uint64, error) {
	gpa, err := f.translate(gva)
	if err != nil {
		return 0, err
	}

	if f.inRAM(gpa, 8) {
		return f.Mem.Read64(gpa)
	}

	var buf [8]byte

	if err := f.MMIO.DispatchRead(f, gpa, buf[:]); err != nil {
		return 0, classifyMMIOFault(gpa, err)
	}

	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * i)
	}

	return v, nil
}
