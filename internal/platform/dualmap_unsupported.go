//go:build !(unix || windows)

package platform

func AllocDualMapping(size int, access MemoryFlags) (DualMapping, error) {
	return DualMapping{}, errUnsupportedOp("AllocDualMapping")
}

func ReleaseDualMapping(m DualMapping) error {
	return errUnsupportedOp("ReleaseDualMapping")
}
