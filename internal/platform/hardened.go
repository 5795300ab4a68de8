package platform

import "runtime"

// QueryHardenedRuntime reports whether RWX mappings are rejected by the OS.
// Grounded on AsmJit's VirtMem::hardenedRuntimeInfo(): only Apple's
// hardened runtime is detected, since it is the only mainstream target that
// rejects RWX mappings outright while still offering an opt-in (MAP_JIT).
func QueryHardenedRuntime() HardenedRuntimeInfo {
	if runtime.GOOS == "darwin" {
		return HardenedRuntimeInfo{Enabled: true, MapJitSupported: true}
	}
	return HardenedRuntimeInfo{}
}
