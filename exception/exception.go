// Package exception implements synchronous exception entry to EL1: the
// hardware-faithful, atomic state transition that records ELR/ESR/FAR/
// SPSR and switches PSTATE into EL1h on a fault.
//
// Grounded bit-for-bit on take_synchronous_exception in
// original_source/src/kvm/kvm.cpp, including its PVM_ASSERT
// preconditions on the EC/ISS ranges (reimplemented via passert).
package exception

import (
	"github.com/pound-emu/pound/cpu"
	"github.com/pound-emu/pound/decode"
	"github.com/pound-emu/pound/memory"
	"github.com/pound-emu/pound/passert"
	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("exception")

// Exception classes referenced directly by this package and its
// callers, per spec.md §4.6 step 4. The full EC table lives in the
// architecture reference; only the two classes that update FAR_EL1 are
// named here.
const (
	ECDataAbort        = 0b100101
	ECDataAbortLowerEL = 0b100100
)

// esrILBit is bit 25 of ESR_EL1, the Instruction Length field; 1
// indicates a 32-bit instruction, which is all this core emulates.
const esrILBit = 1 << 25

// TakeSynchronous performs the synchronous-exception-entry state
// transition described in spec.md §4.6. ec must fit in 6 bits and iss in
// 25 bits; violating either is a programming error, asserted fatally
// exactly as the original does with PVM_ASSERT. mem is consulted only to
// enrich the Debug-level log line with the faulting instruction's
// mnemonic via decode.Peek; a nil mem or a failed peek never affects the
// state transition below.
func TakeSynchronous(state *cpu.State, mem *memory.Guest, ec uint8, iss uint32, faultingAddress uint64) {
	passert.Assert(state != nil, "TakeSynchronous called on nil vCPU state")
	passert.Assertf(ec < 1<<6, "ec < 64", "ec=%#x out of range", ec)
	passert.Assertf(iss < 1<<25, "iss < 1<<25", "iss=%#x out of range", iss)

	if mem != nil {
		if inst, err := decode.Peek(mem, state.PC); err == nil {
			log.Debugf("synchronous exception at pc=%#x (%s): ec=%#x iss=%#x far=%#x", state.PC, inst.Syntax, ec, iss, faultingAddress)
		} else {
			log.Debugf("synchronous exception at pc=%#x: ec=%#x iss=%#x far=%#x", state.PC, ec, iss, faultingAddress)
		}
	}

	state.ElrEL1 = state.PC
	state.SpsrEL1 = uint64(state.Pstate)
	state.EsrEL1 = (uint64(ec) << 26) | esrILBit | uint64(iss)

	if ec == ECDataAbort || ec == ECDataAbortLowerEL {
		state.FarEL1 = faultingAddress
	}

	state.Pstate &^= cpu.PstateNZCVMask
	state.Pstate |= cpu.PstateIRQBit | cpu.PstateFIQBit | cpu.PstateSErrorBit

	state.Pstate &^= cpu.PstateModeMask
	state.Pstate |= cpu.PstateModeEL1h

	// Pending work, per spec.md §9 Open Question 1: vector-table
	// dispatch (computing the new PC from VBAR_EL1 and the exception
	// class) is out of scope, so PC is deliberately left untouched here.
}
