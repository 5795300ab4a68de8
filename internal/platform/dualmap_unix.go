//go:build unix

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// AllocDualMapping creates two aliases of the same anonymous, unlinked file:
// one read-execute, one read-write. Using a shared file instead of
// MAP_ANON|MAP_SHARED keeps this portable across Linux, BSD and Darwin
// without reaching for Linux-only memfd_create.
func AllocDualMapping(size int, access MemoryFlags) (DualMapping, error) {
	f, err := os.CreateTemp("", "jitalloc-*")
	if err != nil {
		return DualMapping{}, err
	}
	name := f.Name()
	defer os.Remove(name)
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return DualMapping{}, err
	}

	fd := int(f.Fd())
	rwProt := unixProt((access &^ MemoryAccessExecute) | MemoryAccessWrite | MemoryAccessRead)
	rxProt := unixProt((access &^ MemoryAccessWrite) | MemoryAccessExecute | MemoryAccessRead)

	rw, err := unix.Mmap(fd, 0, size, rwProt, unix.MAP_SHARED)
	if err != nil {
		return DualMapping{}, err
	}
	rx, err := unix.Mmap(fd, 0, size, rxProt, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Munmap(rw)
		return DualMapping{}, err
	}

	return DualMapping{RX: rx, RW: rw}, nil
}

// ReleaseDualMapping unmaps both aliases of a DualMapping.
func ReleaseDualMapping(m DualMapping) error {
	err := unix.Munmap(m.RX)
	if rwErr := unix.Munmap(m.RW); rwErr != nil && err == nil {
		err = rwErr
	}
	return err
}
