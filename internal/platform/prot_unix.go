//go:build unix

package platform

import "golang.org/x/sys/unix"

func unixProt(access MemoryFlags) int {
	prot := 0
	if access&MemoryAccessRead != 0 {
		prot |= unix.PROT_READ
	}
	if access&MemoryAccessWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if access&MemoryAccessExecute != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}

func unixProtectProt(access ProtectAccess) int {
	switch access {
	case ProtectAccessReadWrite:
		return unix.PROT_READ | unix.PROT_WRITE
	default:
		return unix.PROT_READ | unix.PROT_EXEC
	}
}
