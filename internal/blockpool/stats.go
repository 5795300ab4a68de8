package blockpool

// Stats is a point-in-time snapshot across every pool (spec §3:
// statistics()). Grounded on AsmJit's JitAllocator::statistics(), which
// walks every pool and accumulates the same four totals.
type Stats struct {
	BlockCount      uint32
	AllocationCount uint32
	UsedSize        uint64
	ReservedSize    uint64
	OverheadBytes   uint64
}

// Collect aggregates stats across pools. allocationCount must be tracked by
// the caller (the root Allocator), since a pool's block list doesn't by
// itself distinguish one allocation from another inside a block.
func Collect(pools []*Pool, allocationCount uint32) Stats {
	var s Stats
	s.AllocationCount = allocationCount
	for _, p := range pools {
		s.BlockCount += p.blockCount
		s.OverheadBytes += p.totalOverheadBytes
		s.ReservedSize += p.byteSizeFromAreaSize(p.totalAreaSize)
		s.UsedSize += p.byteSizeFromAreaSize(p.totalAreaUsed)
	}
	return s
}
