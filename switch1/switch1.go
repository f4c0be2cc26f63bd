// Package switch1 is the Switch-1-class hardware target: the thin,
// external-collaborator ops table that bootstraps and tears down a
// machine.VM for this specific piece of hardware, as opposed to the
// architecture-generic core in cpu/mmu/exception/access.
//
// Grounded bit-for-bit on
// original_source/src/targets/switch1/hardware/probe.cpp: s1_init logs
// and returns, s1_destroy is a no-op (original TODOs preserved as Go
// TODOs). The target registers no MMIO handlers: no Switch 1 device is
// modeled, so nothing is added to vm.MMIO.
package switch1

import (
	"github.com/pound-emu/pound/machine"
	"github.com/pound-emu/pound/vlog"
)

// Target is this hardware target's registered name.
const Target machine.TargetType = "switch1"

var log = vlog.New("switch1")

func init() {
	machine.RegisterTarget(Target, machine.Ops{
		Init:    initVM,
		Destroy: destroyVM,
	})
}

func initVM(vm *machine.VM) error {
	log.Infof("initializing switch1 virtual machine")

	// TODO(GloriousTacoo): bootstrapping code goes here — none of the
	// Switch 1 device models exist yet, so there is nothing to wire
	// into vm.MMIO beyond the architecture-generic core.

	return nil
}

func destroyVM(vm *machine.VM) error {
	// TODO(GloriousTacoo): nothing to tear down until device models
	// exist above.
	return nil
}
