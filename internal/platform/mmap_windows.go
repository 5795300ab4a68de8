//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func windowsProtect(access MemoryFlags) uint32 {
	switch {
	case access&MemoryAccessExecute != 0 && access&MemoryAccessWrite != 0:
		return windows.PAGE_EXECUTE_READWRITE
	case access&MemoryAccessExecute != 0:
		return windows.PAGE_EXECUTE_READ
	case access&MemoryAccessWrite != 0:
		return windows.PAGE_READWRITE
	default:
		return windows.PAGE_READONLY
	}
}

func windowsProtectAccess(access ProtectAccess) uint32 {
	if access == ProtectAccessReadWrite {
		return windows.PAGE_READWRITE
	}
	return windows.PAGE_EXECUTE_READ
}

func alloc(size int, access MemoryFlags) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windowsProtect(access))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func release(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	// size must be 0 because we're using MEM_RELEASE.
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func protectMem(mem []byte, access ProtectAccess) error {
	if len(mem) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	var old uint32
	return windows.VirtualProtect(addr, uintptr(len(mem)), windowsProtectAccess(access), &old)
}
