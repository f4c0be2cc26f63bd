package exception_test

import (
	"testing"

	"github.com/pound-emu/pound/cpu"
	"github.com/pound-emu/pound/exception"
	"github.com/pound-emu/pound/memory"
)

func TestTakeSynchronousDataAbort(t *testing.T) {
	t.Parallel()

	s := cpu.New()
	s.PC = 0x1000
	s.Pstate = 0x6000_0000

	mem := memory.NewFromBuffer(make([]byte, 0x2000))

	exception.TakeSynchronous(s, mem, exception.ECDataAbort, 0x7, 0x4000)

	if s.ElrEL1 != 0x1000 {
		t.Fatalf("ElrEL1 = %#x, want 0x1000", s.ElrEL1)
	}

	if s.SpsrEL1 != 0x6000_0000 {
		t.Fatalf("SpsrEL1 = %#x, want 0x6000_0000", s.SpsrEL1)
	}

	wantESR := uint64(exception.ECDataAbort)<<26 | (1 << 25) | 0x7
	if s.EsrEL1 != wantESR {
		t.Fatalf("EsrEL1 = %#x, want %#x", s.EsrEL1, wantESR)
	}

	if s.FarEL1 != 0x4000 {
		t.Fatalf("FarEL1 = %#x, want 0x4000", s.FarEL1)
	}

	if s.Pstate&0xF000_0000 != 0 {
		t.Fatalf("Pstate NZCV not cleared: %#x", s.Pstate)
	}

	for name, bit := range map[string]uint32{"IRQ": cpu.PstateIRQBit, "FIQ": cpu.PstateFIQBit, "SError": cpu.PstateSErrorBit} {
		if s.Pstate&bit == 0 {
			t.Fatalf("%s mask bit not set: pstate=%#x", name, s.Pstate)
		}
	}

	if s.Pstate&cpu.PstateModeMask != cpu.PstateModeEL1h {
		t.Fatalf("Pstate mode = %#b, want EL1h (%#b)", s.Pstate&cpu.PstateModeMask, cpu.PstateModeEL1h)
	}
}

func TestTakeSynchronousNonDataAbortLeavesFAR(t *testing.T) {
	t.Parallel()

	s := cpu.New()
	s.FarEL1 = 0xCAFE
	s.PC = 0x2000

	exception.TakeSynchronous(s, nil, 0b000000, 0, 0x9999)

	if s.FarEL1 != 0xCAFE {
		t.Fatalf("FarEL1 = %#x, want unchanged 0xCAFE", s.FarEL1)
	}
}

func TestTakeSynchronousInvalidECAsserts(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range ec")
		}
	}()

	s := cpu.New()
	exception.TakeSynchronous(s, nil, 0xFF, 0, 0)
}
