//go:build windows

package arena

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func unsafeSlice(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// mmapRegion reserves and commits n bytes via VirtualAlloc, mirroring
// the original's #ifdef WIN32 branch in
// original_source/src/host/memory/arena.cpp.
func mmapRegion(n uint64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	return unsafeSlice(addr, int(n)), nil
}

func munmapRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	return windows.VirtualFree(uintptr(&b[0]), 0, windows.MEM_RELEASE)
}
