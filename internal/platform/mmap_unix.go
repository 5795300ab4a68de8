//go:build unix

package platform

import "golang.org/x/sys/unix"

func alloc(size int, access MemoryFlags) ([]byte, error) {
	// Anonymous as this is not an actual file, but a memory,
	// Private as this is in-process memory region.
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	return unix.Mmap(-1, 0, size, unixProt(access), flags)
}

func release(mem []byte) error {
	return unix.Munmap(mem)
}

func protectMem(mem []byte, access ProtectAccess) error {
	return unix.Mprotect(mem, unixProtectProt(access))
}
