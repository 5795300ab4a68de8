package blockpool

// Pool groups blocks that share the same slot granularity (spec §3: "pools
// are bucketed by granularity so small and large allocations don't waste
// space in each other's slot size"). Grounded on AsmJit's JitAllocatorPool.
type Pool struct {
	granularity     uint32
	granularityLog2 uint32

	blockCount      uint32
	emptyBlockCount uint32

	totalAreaSize      uint64
	totalAreaUsed      uint64
	totalOverheadBytes uint64

	// first/last/cursor index the intrusive doubly linked block list (spec
	// §4.2). cursor rotates across alloc() calls so repeated allocations
	// don't always start scanning from the same block.
	first, last, cursor *Block
}

func newPool(granularity uint32) *Pool {
	return &Pool{
		granularity:     granularity,
		granularityLog2: uint32(trailingZeros32(granularity)),
	}
}

// trailingZeros32 returns the index of the lowest set bit of a power-of-two
// granularity; callers validate granularity is a power of two beforehand.
func trailingZeros32(x uint32) int {
	n := 0
	for x>>1 != 0 {
		x >>= 1
		n++
	}
	return n
}

// Granularity is this pool's slot size in bytes.
func (p *Pool) Granularity() uint32 { return p.granularity }

// GranularityLog2 is log2(Granularity()), used to convert between byte
// offsets and slot indices with a shift instead of a division.
func (p *Pool) GranularityLog2() uint32 { return p.granularityLog2 }

// EmptyBlockCount is the number of blocks this pool currently retains
// despite holding no live allocation (spec §3: "emptyBlockCount ∈ {0,1}").
func (p *Pool) EmptyBlockCount() uint32 { return p.emptyBlockCount }

// NotifyBlockBecameUsed must be called exactly once by the facade right
// after a block transitions from Empty to non-Empty via MarkAllocatedArea
// (spec §4.5 alloc step 5: "if it was Empty, decrement
// pool.emptyBlockCount").
func (p *Pool) NotifyBlockBecameUsed() { p.emptyBlockCount-- }

// NotifyBlockBecameEmpty must be called exactly once by the facade right
// after a block transitions from non-Empty to Empty via MarkReleasedArea,
// before it decides whether to retain or destroy the block (spec §4.5
// release: "if the block became empty ... else increment
// emptyBlockCount").
func (p *Pool) NotifyBlockBecameEmpty() { p.emptyBlockCount++ }

func (p *Pool) byteSizeFromAreaSize(areaSize uint64) uint64 {
	return areaSize << p.granularityLog2
}

func (p *Pool) areaSizeFromByteSize(size uint64) uint32 {
	return uint32((size + uint64(p.granularity) - 1) >> p.granularityLog2)
}

// BytesFromSlots converts a slot count to a byte size.
func (p *Pool) BytesFromSlots(slots uint32) uint64 { return p.byteSizeFromAreaSize(uint64(slots)) }

// SlotsFromBytes converts a byte size to a slot count, rounding up.
func (p *Pool) SlotsFromBytes(size uint64) uint32 { return p.areaSizeFromByteSize(size) }

// appendBlock links b at the tail of this pool's block list.
func (p *Pool) appendBlock(b *Block) {
	b.pool = p
	b.prev = p.last
	b.next = nil
	if p.last != nil {
		p.last.next = b
	} else {
		p.first = b
	}
	p.last = b
	if p.cursor == nil {
		p.cursor = b
	}

	p.blockCount++
	p.totalAreaSize += uint64(b.areaSize)
	p.totalAreaUsed += uint64(b.areaUsed)
	p.totalOverheadBytes += b.overheadBytes()
	if b.IsEmpty() {
		p.emptyBlockCount++
	}
}

// unlinkBlock removes b from this pool's block list without destroying it.
// The cursor, if it pointed at b, rotates to b.next, falling back to
// b.prev, then nil — the same fallback order AsmJit's removeBlock uses so a
// single-block pool doesn't leave a dangling cursor.
func (p *Pool) unlinkBlock(b *Block) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		p.first = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		p.last = b.prev
	}

	if p.cursor == b {
		switch {
		case b.next != nil:
			p.cursor = b.next
		case b.prev != nil:
			p.cursor = b.prev
		default:
			p.cursor = nil
		}
	}

	p.blockCount--
	p.totalAreaSize -= uint64(b.areaSize)
	p.totalAreaUsed -= uint64(b.areaUsed)
	p.totalOverheadBytes -= b.overheadBytes()

	// unlinkBlock is only reached via the facade's destroy path (Release
	// tearing down a block that just became empty), which never routed that
	// transition through NotifyBlockBecameEmpty — it goes straight to
	// destruction instead of retention. So b's emptiness was never added to
	// emptyBlockCount and must not be subtracted here; doing so would steal
	// the count belonging to whatever block the pool does retain.

	b.prev, b.next = nil, nil
}

// rotateCursor advances the scan cursor to the block following b, wrapping
// to the first block. AsmJit rotates on every successful allocation so load
// spreads across blocks instead of always favoring the first.
func (p *Pool) rotateCursor(b *Block) {
	if b.next != nil {
		p.cursor = b.next
	} else {
		p.cursor = p.first
	}
}

// findFreeBlock walks this pool's block ring starting at the cursor looking
// for a block with at least need free slots (spec §4.5 step 3). ok is false
// if no existing block can satisfy the request; the caller should then map
// a new block and insert it.
func (p *Pool) findFreeBlock(need uint32) (block *Block, lo, hi uint32, ok bool) {
	start := p.cursor
	if start == nil {
		start = p.first
	}
	if start == nil {
		return nil, 0, 0, false
	}

	for b := start; ; {
		if lo, hi, found := b.findFreeRun(need); found {
			p.rotateCursor(b)
			return b, lo, hi, true
		}
		b = b.next
		if b == nil {
			b = p.first
		}
		if b == start {
			return nil, 0, 0, false
		}
	}
}

func (p *Pool) reset() {
	p.first, p.last, p.cursor = nil, nil, nil
	p.blockCount, p.emptyBlockCount = 0, 0
	p.totalAreaSize, p.totalAreaUsed, p.totalOverheadBytes = 0, 0, 0
}
