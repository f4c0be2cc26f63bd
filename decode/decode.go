// Package decode is a best-effort, diagnostic-only peek at the
// instruction bytes at a given PC. It exists purely to enrich
// exception logging with a human-readable mnemonic; nothing in the
// execution core consults it for any architectural decision, and a
// decode failure is never propagated as a fault — Peek logs it and
// returns it as an ordinary error, which exception entry ignores.
//
// Grounded on the shape of Inst/Asm in
// _examples/bobuhiro11-gokvm/machine/debug_amd64.go (read bytes at PC,
// decode, format for logging), retargeted from
// golang.org/x/arch/x86/x86asm to its AArch64 sibling package,
// golang.org/x/arch/arm64/arm64asm — the same golang.org/x/arch module
// the teacher already depends on.
package decode

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/pound-emu/pound/memory"
	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("decode")

// Instruction is a decoded-for-display AArch64 instruction. It carries
// no semantic weight — it is never executed.
type Instruction struct {
	Mnemonic string
	Syntax   string
}

// instructionWidth is the fixed width of an AArch64 instruction word.
const instructionWidth = 4

// Peek reads the 4-byte instruction word at pc and decodes it for
// display. Failure (unmapped PC, undefined encoding) is logged at
// Debug level and returned as an error; callers must treat this as
// advisory only.
func Peek(mem *memory.Guest, pc uint64) (Instruction, error) {
	word, err := mem.Read32(pc)
	if err != nil {
		log.Debugf("peek at pc=%#x: %v", pc, err)
		return Instruction{}, fmt.Errorf("decode: reading instruction at %#x: %w", pc, err)
	}

	var raw [instructionWidth]byte

	raw[0] = byte(word)
	raw[1] = byte(word >> 8)
	raw[2] = byte(word >> 16)
	raw[3] = byte(word >> 24)

	inst, err := arm64asm.Decode(raw[:])
	if err != nil {
		log.Debugf("decode at pc=%#x word=%#x: %v", pc, word, err)
		return Instruction{}, fmt.Errorf("decode: %#x at %#x: %w", word, pc, err)
	}

	return Instruction{
		Mnemonic: inst.Op.String(),
		Syntax:   inst.String(),
	}, nil
}
