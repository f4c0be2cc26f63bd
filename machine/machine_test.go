package machine_test

import (
	"testing"

	"github.com/pound-emu/pound/machine"
)

const testTarget machine.TargetType = "machine-test-target"

func init() {
	machine.RegisterTarget(testTarget, machine.Ops{
		Init: func(vm *machine.VM) error {
			vm.State.PC = 0x1234
			return nil
		},
		Destroy: func(vm *machine.VM) error {
			vm.State.PC = 0
			return nil
		},
	})
}

func TestNewAllocatesGuestRAM(t *testing.T) {
	t.Parallel()

	vm, err := machine.New(0x10000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer machine.Destroy(vm)

	if vm.Mem.Size() == 0 {
		t.Fatal("Mem.Size() = 0, want guest RAM carved from arena")
	}

	if vm.State.PC != 0 || vm.State.SctlrEL1 != 0 {
		t.Fatalf("new vCPU state not at reset values: pc=%#x sctlr=%#x", vm.State.PC, vm.State.SctlrEL1)
	}
}

func TestProbeRunsInitAndDestroyRunsTeardown(t *testing.T) {
	t.Parallel()

	vm, err := machine.New(0x10000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := machine.Probe(vm, testTarget); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if vm.State.PC != 0x1234 {
		t.Fatalf("PC after Probe = %#x, want 0x1234 (target Init did not run)", vm.State.PC)
	}

	if err := machine.Destroy(vm); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if vm.State.PC != 0 {
		t.Fatalf("PC after Destroy = %#x, want 0 (target Destroy did not run)", vm.State.PC)
	}
}

func TestProbeUnknownTargetAsserts(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unknown target")
		}
	}()

	vm, err := machine.New(0x10000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer machine.Destroy(vm)

	_ = machine.Probe(vm, "no-such-target")
}

func TestNewAcceptsZeroCapacity(t *testing.T) {
	t.Parallel()

	vm, err := machine.New(0)
	if err != nil {
		t.Fatalf("New(0): %v", err)
	}
	defer machine.Destroy(vm)

	if vm.Mem.Size() != 0 {
		t.Fatalf("Mem.Size() = %d, want 0", vm.Mem.Size())
	}
}
