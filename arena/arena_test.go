package arena_test

import (
	"errors"
	"testing"

	"github.com/pound-emu/pound/arena"
)

func allPoisoned(t *testing.T, b []byte) {
	t.Helper()

	for i, v := range b {
		if v != arena.Poison {
			t.Fatalf("byte %d = %#x, want %#x", i, v, arena.Poison)
		}
	}
}

func TestInit(t *testing.T) {
	t.Parallel()

	const capacity = 4096

	a, err := arena.Init(capacity)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Destroy()

	if a.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", a.Size())
	}

	if a.Capacity() != capacity {
		t.Fatalf("Capacity() = %d, want %d", a.Capacity(), capacity)
	}

	view, err := a.Allocate(capacity)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	allPoisoned(t, view)
}

func TestAllocateDisjointAndContiguous(t *testing.T) {
	t.Parallel()

	a, err := arena.Init(64)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Destroy()

	first, err := a.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate(10): %v", err)
	}

	second, err := a.Allocate(20)
	if err != nil {
		t.Fatalf("Allocate(20): %v", err)
	}

	if a.Size() != 30 {
		t.Fatalf("Size() = %d, want 30", a.Size())
	}

	first[0] = 0x01
	second[0] = 0x02

	if first[0] == second[0] {
		t.Fatalf("allocations alias: first[0]=%#x second[0]=%#x", first[0], second[0])
	}
}

func TestAllocateBeyondCapacity(t *testing.T) {
	t.Parallel()

	a, err := arena.Init(8)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Destroy()

	if _, err := a.Allocate(9); !errors.Is(err, arena.ErrOutOfCapacity) {
		t.Fatalf("Allocate(9) err = %v, want ErrOutOfCapacity", err)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	a, err := arena.Init(16)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Destroy()

	view, err := a.Allocate(16)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	for i := range view {
		view[i] = 0x42
	}

	a.Reset()

	if a.Size() != 0 {
		t.Fatalf("Size() after Reset = %d, want 0", a.Size())
	}

	fresh, err := a.Allocate(16)
	if err != nil {
		t.Fatalf("Allocate after Reset: %v", err)
	}

	allPoisoned(t, fresh)
}
