package platform

import "unsafe"

// flushRange is implemented in icache_arm64.s: it walks mem's cache lines
// with "dc cvau" then "ic ivau", each bracketed by the required barriers.
// amd64 (and every other arch this module targets) keeps the instruction
// and data caches coherent automatically, so no equivalent exists there.
func flushRange(ptr, size uintptr)

func flushInstructionCache(mem []byte) {
	flushRange(uintptr(unsafe.Pointer(&mem[0])), uintptr(len(mem)))
}
