//go:build unix

package platform

import "golang.org/x/sys/unix"

func queryInfo() (Info, error) {
	pageSize := uint32(unix.Getpagesize())
	return Info{PageSize: pageSize, PageGranularity: pageSize}, nil
}
