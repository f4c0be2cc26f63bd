// Package cpu defines the AArch64 vCPU architectural state: the
// general-purpose register file plus the subset of EL0/EL1 system
// registers required for translation, exception entry, and timers.
//
// This component is purely structural, per spec.md §4.4: it defines no
// behavior beyond field access. The only invariant enforced here is
// that State's size is a whole number of cache lines (see
// cacheLinePad). The start address of a State is whatever the Go
// allocator gives it; it is not forced onto a cache-line boundary.
//
// Grounded on spec.md §3's register list (itself drawn from
// original_source/core/arm64/guest.h and original_source/src/kvm/kvm.h's
// vcpu_state_t) and the teacher's kvm.Regs/kvm.Sregs flat-struct style
// in _examples/bobuhiro11-gokvm/kvm/registers.go.
package cpu

// cacheLineSize is the alignment padding target. 64 bytes covers every
// mainstream host architecture this core runs on.
const cacheLineSize = 64

// State is one vCPU's architectural register file.
type State struct {
	// X holds the 31 general-purpose registers X0..X30. X31 is
	// dual-role SP/ZR, selected by instruction context rather than
	// stored here — see SP.
	X [31]uint64

	// SP is the stack pointer, AArch64's X31 in its SP role.
	SP uint64

	// PC is the program counter.
	PC uint64

	// EL0 timers/counters.
	CntfrqEL0  uint64
	CntpctEL0  uint64
	CntvctEL0  uint64
	CntvCvalEL0 uint64
	CntvCtlEL0 uint64
	PmccntrEL0 uint64
	PmcrEL0    uint64
	CtrEL0     uint64
	DczidEL0   uint64

	// EL0 thread pointers.
	TpidrEL0   uint64
	TpidrroEL0 uint64

	// EL1 exception state.
	ElrEL1  uint64
	EsrEL1  uint64
	FarEL1  uint64
	SpsrEL1 uint64
	VbarEL1 uint64

	// EL1 translation control.
	SctlrEL1 uint64
	TcrEL1   uint64
	Ttbr0EL1 uint64
	Ttbr1EL1 uint64

	// Pstate: NZCV flags, DAIF mask bits, current EL, SP selector.
	Pstate uint32

	_ [cacheLinePad]byte
}

// rawStateSize mirrors State's field layout above, in bytes, used only
// to compute cacheLinePad at compile time.
const rawStateSize = 31*8 + 8 + 8 + 9*8 + 2*8 + 5*8 + 4*8 + 4

const cacheLinePad = (cacheLineSize - rawStateSize%cacheLineSize) % cacheLineSize

// SctlrEL1M is the MMU-enable bit of SCTLR_EL1: 0 disables the MMU
// (identity translation), 1 enables stage-1 walking.
const SctlrEL1M = 1 << 0

// Pstate bit layout used by exception entry (spec.md §4.6).
const (
	PstateNZCVMask  = 0xF000_0000
	PstateIRQBit    = 1 << 7
	PstateFIQBit    = 1 << 6
	PstateSErrorBit = 1 << 8
	PstateModeMask  = 0xF
	PstateModeEL1h  = 0b0101
)

// New returns a State with every register at its architectural reset
// value (all zero), matching SCTLR_EL1.M == 0 — the MMU-disabled,
// identity-translation reset state spec.md §4.5.1 describes.
func New() *State {
	return &State{}
}

// MMUEnabled reports whether SCTLR_EL1.M is set.
func (s *State) MMUEnabled() bool {
	return s.SctlrEL1&SctlrEL1M != 0
}
