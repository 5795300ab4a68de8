//go:build !unix && !windows

package platform

func queryInfo() (Info, error) {
	return Info{}, errUnsupportedOp("QueryInfo")
}
