// Package platform is the virtual-memory collaborator the block-pool
// allocator depends on: it knows how to reserve pages that are executable,
// how to pair a read-write alias with a read-execute one when the OS will
// not allow both permissions on a single mapping, and how to keep the CPU's
// instruction cache coherent with writes the allocator makes behind its
// back.
//
// Everything here is OS- and architecture-specific glue; the allocator in
// the parent package never touches a raw syscall itself.
package platform

import "fmt"

// MemoryFlags describes the permissions requested for a mapping.
type MemoryFlags uint32

const (
	MemoryAccessRead MemoryFlags = 1 << iota
	MemoryAccessWrite
	MemoryAccessExecute

	// MemoryAccessRWX is what a single-mapped block is created with.
	// ScopedProtectJITReadWrite switches such a mapping to read-write, and
	// its release func then to read+execute; RWX is not restored.
	MemoryAccessRWX = MemoryAccessRead | MemoryAccessWrite | MemoryAccessExecute
)

// ProtectAccess is the target permission of a process/thread-scoped toggle.
type ProtectAccess uint32

const (
	ProtectAccessReadWrite ProtectAccess = iota
	ProtectAccessReadExecute
)

// Info reports page sizing used to pick default block sizes.
type Info struct {
	// PageSize is the CPU's native page size.
	PageSize uint32
	// PageGranularity is the allocation granularity of the OS's mmap-like
	// call; on some platforms (Windows) this is coarser than PageSize.
	PageGranularity uint32
}

// HardenedRuntimeInfo reports whether the running process is restricted from
// creating RWX mappings, and if so whether it may ask for an exception.
type HardenedRuntimeInfo struct {
	// Enabled means RWX mappings are rejected by the OS.
	Enabled bool
	// MapJitSupported means the OS offers an opt-in (e.g. Apple's MAP_JIT)
	// that still permits a single RWX-equivalent mapping despite Enabled.
	MapJitSupported bool
}

// DualMapping is a pair of aliases over the same physical pages: RX is
// executable and never writable, RW is writable and never executable.
type DualMapping struct {
	RX []byte
	RW []byte
}

func errUnsupportedOp(op string) error {
	return fmt.Errorf("platform: %s unsupported on this OS/ARCH", op)
}
