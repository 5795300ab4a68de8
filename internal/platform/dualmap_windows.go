//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// AllocDualMapping backs both aliases with a single pagefile-backed file
// mapping object: one view is opened FILE_MAP_WRITE, the other
// FILE_MAP_EXECUTE|FILE_MAP_READ.
func AllocDualMapping(size int, _ MemoryFlags) (DualMapping, error) {
	sizeHigh := uint32(uint64(size) >> 32)
	sizeLow := uint32(uint64(size) & 0xffffffff)

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_EXECUTE_READWRITE, sizeHigh, sizeLow, nil)
	if err != nil {
		return DualMapping{}, err
	}
	defer windows.CloseHandle(h)

	rwAddr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE|windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return DualMapping{}, err
	}
	rxAddr, err := windows.MapViewOfFile(h, windows.FILE_MAP_EXECUTE|windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.UnmapViewOfFile(rwAddr)
		return DualMapping{}, err
	}

	return DualMapping{
		RX: unsafe.Slice((*byte)(unsafe.Pointer(rxAddr)), size),
		RW: unsafe.Slice((*byte)(unsafe.Pointer(rwAddr)), size),
	}, nil
}

// ReleaseDualMapping unmaps both views.
func ReleaseDualMapping(m DualMapping) error {
	var err error
	if len(m.RX) > 0 {
		err = windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.RX[0])))
	}
	if len(m.RW) > 0 {
		if rwErr := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.RW[0]))); rwErr != nil && err == nil {
			err = rwErr
		}
	}
	return err
}
