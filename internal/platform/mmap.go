package platform

// Alloc reserves a single mapping with the given access. On systems that
// cannot grant both write and execute on one mapping at once (the hardened
// runtimes QueryHardenedRuntime reports), the caller must use
// AllocDualMapping instead.
func Alloc(size int, access MemoryFlags) ([]byte, error) {
	return alloc(size, access)
}

// Release frees a mapping obtained from Alloc.
func Release(mem []byte) error {
	return release(mem)
}

// ProtectJITMemory toggles the permission of an existing mapping in place.
// It is process/thread-scoped: on platforms where changing protection is
// free-threaded (the common case) this is just mprotect/VirtualProtect, but
// on architectures that serialize JIT writers through a single toggle, this
// is the seam a future implementation would use.
func ProtectJITMemory(mem []byte, access ProtectAccess) error {
	return protectMem(mem, access)
}

// ScopedProtectJITReadWrite grants read-write access to mem for the
// duration of the returned release func, which restores read-execute
// access. The release func must run on every exit path, including errors
// (spec: "each protected write happens inside an acquire/release bracket
// that must release on every exit path").
func ScopedProtectJITReadWrite(mem []byte) (release func() error, err error) {
	if err := protectMem(mem, ProtectAccessReadWrite); err != nil {
		return nil, err
	}
	return func() error {
		return protectMem(mem, ProtectAccessReadExecute)
	}, nil
}
