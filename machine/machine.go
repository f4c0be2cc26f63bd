// Package machine implements the VM container (C7): the owner of one
// vCPU's architectural state, its guest RAM, its MMIO registry, and the
// target-specific operations table that bootstraps and tears it down.
//
// Grounded on the teacher's machine.Machine (_examples/bobuhiro11-gokvm/machine/machine.go),
// which plays the same owning-container role for a KVM-backed guest;
// here the KVM fd/vmFd/vcpuFds are replaced by an arena.Arena-backed
// memory.Guest and the teacher's fixed ioport dispatch table is
// replaced by the generic mmio.Registry. Target selection follows
// original_source/src/kvm/kvm.h's kvm_ops_t indirection (init/destroy
// function pointers chosen per target at runtime), reimplemented as a
// database/sql-style driver registry so machine need not import any
// target package directly.
package machine

import (
	"fmt"

	"github.com/pound-emu/pound/arena"
	"github.com/pound-emu/pound/cpu"
	"github.com/pound-emu/pound/memory"
	"github.com/pound-emu/pound/mmio"
	"github.com/pound-emu/pound/passert"
	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("machine")

// TargetType names a bootable hardware target, analogous to the
// original's target directories under src/targets/.
type TargetType string

// Ops is a target's operations table: the hooks Probe and Destroy
// invoke around the target-specific bring-up and teardown sequence.
// Mirrors original_source/src/kvm/kvm.h's kvm_ops_t, minus the mmio_read/
// mmio_write hooks, which are now routed through mmio.Registry.Register
// at Init time instead of a second dispatch layer.
type Ops struct {
	Init    func(vm *VM) error
	Destroy func(vm *VM) error
}

var registry = map[TargetType]Ops{}

// RegisterTarget makes an Ops table available under name for Probe to
// select. Targets call this from an init() func, the same
// register-yourself-on-import idiom database/sql drivers use, so
// machine never needs to import a concrete target package.
func RegisterTarget(name TargetType, ops Ops) {
	passert.Assertf(ops.Init != nil, "ops.Init != nil", "RegisterTarget(%s): Init must not be nil", name)
	registry[name] = ops
}

// VM is the container owning one vCPU's full execution context: its
// register state, its guest-physical RAM, and the MMIO devices
// reachable from it.
type VM struct {
	State *cpu.State
	Mem   *memory.Guest
	MMIO  *mmio.Registry

	arena  *arena.Arena
	ops    Ops
	target TargetType
}

// GuestMem returns the vm's guest RAM descriptor, satisfying
// mmio.VM so device handlers dispatched through vm.MMIO can reach it.
func (vm *VM) GuestMem() *memory.Guest { return vm.Mem }

// CPUState returns the vm's vCPU register state, satisfying mmio.VM.
func (vm *VM) CPUState() *cpu.State { return vm.State }

// New allocates a host arena of capacity bytes, carves the guest RAM
// descriptor from it, and resets vCPU state and the MMIO registry to
// their architectural reset values, per spec.md §4.8.
func New(capacity uint64) (*VM, error) {
	a, err := arena.Init(capacity)
	if err != nil {
		return nil, fmt.Errorf("machine: allocating arena: %w", err)
	}

	mem, err := memory.NewFromArena(a)
	if err != nil {
		_ = a.Destroy()
		return nil, fmt.Errorf("machine: carving guest RAM: %w", err)
	}

	vm := &VM{
		State: cpu.New(),
		Mem:   mem,
		MMIO:  mmio.New(),
		arena: a,
	}

	log.Infof("allocated vm with %d bytes of guest RAM", mem.Size())

	return vm, nil
}

// Probe selects the Ops table registered for target, attaches it to
// vm, and runs its Init hook. An unregistered target is a programming
// error — the set of buildable targets is fixed at link time — so it
// is a fatal assertion, matching the teacher's panic-on-misconfiguration
// style in machine.New.
func Probe(vm *VM, target TargetType) error {
	ops, ok := registry[target]
	passert.Assertf(ok, "registry[target] ok", "machine: unknown target %q", target)

	vm.ops = ops
	vm.target = target

	if err := ops.Init(vm); err != nil {
		return fmt.Errorf("machine: probing target %q: %w", target, err)
	}

	log.Infof("probed target %q", target)

	return nil
}

// Destroy runs the target's Destroy hook, if one was probed, and
// releases the backing arena.
func Destroy(vm *VM) error {
	if vm.ops.Destroy != nil {
		if err := vm.ops.Destroy(vm); err != nil {
			return fmt.Errorf("machine: destroying target %q: %w", vm.target, err)
		}
	}

	if err := vm.arena.Destroy(); err != nil {
		return fmt.Errorf("machine: releasing arena: %w", err)
	}

	return nil
}
