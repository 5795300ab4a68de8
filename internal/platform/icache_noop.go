//go:build !arm64

package platform

func flushInstructionCache(mem []byte) {
	// amd64 (and the other architectures this module targets) snoops
	// self-modified code automatically; nothing to do.
}
