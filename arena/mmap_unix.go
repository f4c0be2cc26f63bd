//go:build !windows

package arena

import "golang.org/x/sys/unix"

// mmapRegion reserves an anonymous, private, read-write mapping of n
// bytes, grounded on original_source/src/host/memory/arena.cpp's
// mmap(..., PROT_READ|PROT_WRITE, MAP_PRIVATE|MAP_ANONYMOUS, -1, 0) and
// the teacher's memory.NewMemorySlot use of syscall.Mmap — upgraded to
// golang.org/x/sys/unix per SPEC_FULL §6.3.
func mmapRegion(n uint64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	return unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

func munmapRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	return unix.Munmap(b)
}
