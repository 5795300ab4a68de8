package platform

// QueryInfo reports the page size and allocation granularity used to pick
// default block sizes (spec: "blockSize ... default = system
// page-granularity").
func QueryInfo() (Info, error) {
	return queryInfo()
}
