//go:build !(unix || windows)

package platform

func alloc(size int, access MemoryFlags) ([]byte, error) {
	return nil, errUnsupportedOp("alloc")
}

func release(mem []byte) error {
	return errUnsupportedOp("release")
}

func protectMem(mem []byte, access ProtectAccess) error {
	return errUnsupportedOp("protect")
}
