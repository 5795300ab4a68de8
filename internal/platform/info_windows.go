//go:build windows

package platform

import "golang.org/x/sys/windows"

func queryInfo() (Info, error) {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return Info{
		PageSize:        si.PageSize,
		PageGranularity: si.AllocationGranularity,
	}, nil
}
