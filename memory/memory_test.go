package memory_test

import (
	"errors"
	"testing"

	"github.com/pound-emu/pound/memory"
)

func newGuest(t *testing.T, size int) *memory.Guest {
	t.Helper()

	return memory.NewFromBuffer(make([]byte, size))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	const size = 64

	cases := []struct {
		name  string
		write func(g *memory.Guest, gpa uint64) error
		read  func(g *memory.Guest, gpa uint64) (uint64, error)
	}{
		{
			"8", func(g *memory.Guest, gpa uint64) error { return g.Write8(gpa, 0xAB) },
			func(g *memory.Guest, gpa uint64) (uint64, error) { v, err := g.Read8(gpa); return uint64(v), err },
		},
		{
			"16", func(g *memory.Guest, gpa uint64) error { return g.Write16(gpa, 0xBEEF) },
			func(g *memory.Guest, gpa uint64) (uint64, error) { v, err := g.Read16(gpa); return uint64(v), err },
		},
		{
			"32", func(g *memory.Guest, gpa uint64) error { return g.Write32(gpa, 0xCAFEBABE) },
			func(g *memory.Guest, gpa uint64) (uint64, error) { v, err := g.Read32(gpa); return uint64(v), err },
		},
		{
			"64", func(g *memory.Guest, gpa uint64) error { return g.Write64(gpa, 0xDEADBEEFCAFEBABE) },
			func(g *memory.Guest, gpa uint64) (uint64, error) { return g.Read64(gpa) },
		},
	}

	widths := map[string]uint64{"8": 1, "16": 2, "32": 4, "64": 8}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := widths[tc.name]
			g := newGuest(t, size)

			for gpa := uint64(0); gpa+w <= size; gpa += w {
				if err := tc.write(g, gpa); err != nil {
					t.Fatalf("write at %#x: %v", gpa, err)
				}

				got, err := tc.read(g, gpa)
				if err != nil {
					t.Fatalf("read at %#x: %v", gpa, err)
				}

				want := map[string]uint64{
					"8": 0xAB, "16": 0xBEEF, "32": 0xCAFEBABE, "64": 0xDEADBEEFCAFEBABE,
				}[tc.name]

				if got != want {
					t.Fatalf("read at %#x = %#x, want %#x", gpa, got, want)
				}
			}
		})
	}
}

func TestBoundaryFault(t *testing.T) {
	t.Parallel()

	const size = 16

	g := newGuest(t, size)

	if _, err := g.Read32(size - 3); !errors.Is(err, memory.ErrBoundary) {
		t.Fatalf("Read32(size-3) err = %v, want ErrBoundary", err)
	}

	if err := g.Write64(size-1, 0); !errors.Is(err, memory.ErrBoundary) {
		t.Fatalf("Write64(size-1) err = %v, want ErrBoundary", err)
	}
}

func TestUnalignedFault(t *testing.T) {
	t.Parallel()

	g := newGuest(t, 64)

	if _, err := g.Read16(1); !errors.Is(err, memory.ErrUnaligned) {
		t.Fatalf("Read16(1) err = %v, want ErrUnaligned", err)
	}

	if err := g.Write32(2, 0); !errors.Is(err, memory.ErrUnaligned) {
		t.Fatalf("Write32(2) err = %v, want ErrUnaligned", err)
	}

	if _, err := g.Read64(9); !errors.Is(err, memory.ErrUnaligned) {
		t.Fatalf("Read64(9) err = %v, want ErrUnaligned", err)
	}
}

func TestByteAccessNeverUnaligned(t *testing.T) {
	t.Parallel()

	g := newGuest(t, 8)

	for gpa := uint64(0); gpa < 8; gpa++ {
		if err := g.Write8(gpa, byte(gpa)); err != nil {
			t.Fatalf("Write8(%d): %v", gpa, err)
		}
	}
}

func TestLittleEndianByteSequence(t *testing.T) {
	t.Parallel()

	g := newGuest(t, 8)

	if err := g.Write32(0, 0x01020304); err != nil {
		t.Fatalf("Write32: %v", err)
	}

	raw := make([]byte, 4)
	for i := range raw {
		b, err := g.Read8(uint64(i))
		if err != nil {
			t.Fatalf("Read8(%d): %v", i, err)
		}

		raw[i] = b
	}

	want := []byte{0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, raw[i], want[i])
		}
	}
}
