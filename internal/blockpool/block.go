package blockpool

// blockFlags tracks the per-block state bits described in spec §3.
type blockFlags uint32

const (
	// flagInitialPadding must stay numerically equal to 1 so that it can be
	// added directly to recover the first usable slot index (spec §3:
	// "InitialPadding (bit 0, equal numerically to the first usable slot
	// index so it can be added directly)").
	flagInitialPadding blockFlags = 1 << 0
	flagEmpty          blockFlags = 1 << 1
	flagDirty          blockFlags = 1 << 2
	flagDualMapped     blockFlags = 1 << 3
)

// Block is a single virtual-memory mapping managed by one Pool, subdivided
// into fixed-size slots tracked by the used/stop bit vectors (spec §3).
type Block struct {
	pool *Pool

	rx, rw    []byte
	blockSize int

	flags blockFlags

	areaSize          uint32
	areaUsed          uint32
	largestUnusedArea uint32
	searchStart       uint32
	searchEnd         uint32

	used bitVector
	stop bitVector

	// Intrusive doubly linked list within the owning pool (spec §9: "pools
	// reference blocks via a doubly linked list").
	prev, next *Block

	// Intrusive red-black tree node fields, keyed by rx address across all
	// pools (spec §4.4). See tree.go.
	treeLeft, treeRight, treeParent *Block
	treeRed                         bool
}

// NewBlock wraps an already-mapped rx/rw pair (equal slices when
// single-mapped) as a new, empty Block belonging to pool.
func NewBlock(pool *Pool, rx, rw []byte, dualMapped, initialPadding bool) *Block {
	return newBlock(pool, rx, rw, dualMapped, initialPadding)
}

func newBlock(pool *Pool, rx, rw []byte, dualMapped, initialPadding bool) *Block {
	areaSize := uint32(len(rx)) / pool.granularity
	numBits := int(areaSize)

	b := &Block{
		pool:      pool,
		rx:        rx,
		rw:        rw,
		blockSize: len(rx),
		areaSize:  areaSize,
		used:      newBitVector(numBits),
		stop:      newBitVector(numBits),
	}
	if dualMapped {
		b.flags |= flagDualMapped
	}
	if initialPadding {
		b.flags |= flagInitialPadding
	}
	b.ClearBlock()
	return b
}

func (b *Block) hasFlag(f blockFlags) bool { return b.flags&f != 0 }
func (b *Block) addFlags(f blockFlags)     { b.flags |= f }
func (b *Block) clearFlags(f blockFlags)   { b.flags &^= f }

func (b *Block) isDirty() bool { return b.hasFlag(flagDirty) }

// IsEmpty reports whether this block holds no live allocation beyond its
// initial padding.
func (b *Block) IsEmpty() bool { return b.hasFlag(flagEmpty) }

// IsDualMapped reports whether RX and RW are distinct aliases.
func (b *Block) IsDualMapped() bool { return b.hasFlag(flagDualMapped) }

// RX is the execute-side mapping; allocation offsets are relative to it.
func (b *Block) RX() []byte { return b.rx }

// RW is the write-side mapping; equal to RX when single-mapped.
func (b *Block) RW() []byte { return b.rw }

// Next is this block's successor in its owning pool's list, or nil at the
// tail.
func (b *Block) Next() *Block { return b.next }

// UsedAt reports whether slot i is part of a live allocation.
func (b *Block) UsedAt(i uint32) bool { return b.used.get(int(i)) }

// AllocationEnd recovers the exclusive end slot of the live allocation that
// starts at lo, by locating its stop-bit sentinel (spec §4.5: "derive slot
// end by locating the next stop bit").
func (b *Block) AllocationEnd(lo uint32) uint32 {
	return uint32(b.stop.indexOf(int(lo), true)) + 1
}

// InitialAreaStart is the first usable slot index of this block.
func (b *Block) InitialAreaStart() uint32 { return b.initialAreaStart() }

// Pool is the owning pool, used by the facade to convert between slot
// indices and byte offsets with the right granularity.
func (b *Block) Pool() *Pool { return b.pool }

// initialAreaStart is the first usable slot index: 1 when initial padding
// is enabled (slot 0 is reserved), 0 otherwise.
func (b *Block) initialAreaStart() uint32 {
	return uint32(b.flags & flagInitialPadding)
}

func (b *Block) areaAvailable() uint32 { return b.areaSize - b.areaUsed }

// AreaAvailable is the number of free slots in this block.
func (b *Block) AreaAvailable() uint32 { return b.areaAvailable() }

// rxBase/rwBase are the byte addresses of this block's two aliases; equal
// when the block is single-mapped.
func (b *Block) rxBase() uintptr { return sliceAddr(b.rx) }
func (b *Block) rwBase() uintptr { return sliceAddr(b.rw) }

// RXBase is the byte address of the rx mapping, used to compute a slot
// index from a returned pointer.
func (b *Block) RXBase() uintptr { return b.rxBase() }

// ClearBlock wipes both bit vectors and resets cached search state (spec
// §4.3). It is used both at construction and when reset(Soft) re-wipes a
// kept block.
func (b *Block) ClearBlock() {
	b.used.reset()
	b.stop.reset()

	if b.hasFlag(flagInitialPadding) {
		b.used.setBit(0, true)
		b.stop.setBit(0, true)
	}

	start := b.initialAreaStart()
	b.areaUsed = start
	b.largestUnusedArea = b.areaSize - start
	b.searchStart = start
	b.searchEnd = b.areaSize

	b.addFlags(flagEmpty)
	b.clearFlags(flagDirty)
}

// MarkAllocatedArea marks [lo, hi) as used and sets the sentinel stop bit
// at hi-1 (spec §4.3).
func (b *Block) MarkAllocatedArea(lo, hi uint32) {
	size := hi - lo

	b.used.fillRange(int(lo), int(hi))
	b.stop.setBit(int(hi-1), true)

	b.pool.totalAreaUsed += uint64(size)
	b.areaUsed += size

	if b.areaAvailable() == 0 {
		b.searchStart = b.areaSize
		b.searchEnd = 0
		b.largestUnusedArea = 0
		b.clearFlags(flagDirty | flagEmpty)
		return
	}

	if b.searchStart == lo {
		b.searchStart = hi
	}
	if b.searchEnd == hi {
		b.searchEnd = lo
	}
	b.addFlags(flagDirty)
	b.clearFlags(flagEmpty)
}

// MarkReleasedArea clears [lo, hi) and widens the search window (spec
// §4.3).
func (b *Block) MarkReleasedArea(lo, hi uint32) {
	size := hi - lo

	b.pool.totalAreaUsed -= uint64(size)
	b.areaUsed -= size
	b.searchStart = min(b.searchStart, lo)
	b.searchEnd = max(b.searchEnd, hi)

	b.used.clearRange(int(lo), int(hi))
	b.stop.setBit(int(hi-1), false)

	if b.areaUsed == b.initialAreaStart() {
		start := b.initialAreaStart()
		b.searchStart = start
		b.searchEnd = b.areaSize
		b.largestUnusedArea = b.areaSize - start
		b.addFlags(flagEmpty)
		b.clearFlags(flagDirty)
		return
	}
	b.addFlags(flagDirty)
}

// MarkShrunkArea clears the tail [lo, hi) of a live allocation and moves
// the sentinel stop bit to lo-1 (spec §4.3). Callers must ensure lo > 0 and
// hi > lo.
func (b *Block) MarkShrunkArea(lo, hi uint32) {
	size := hi - lo

	b.pool.totalAreaUsed -= uint64(size)
	b.areaUsed -= size
	b.searchStart = min(b.searchStart, lo)
	b.searchEnd = max(b.searchEnd, hi)

	b.used.clearRange(int(lo), int(hi))
	b.stop.setBit(int(hi-1), false)
	b.stop.setBit(int(lo-1), true)

	b.addFlags(flagDirty)
}

// findFreeRun scans this block's search window for the first free run of at
// least need slots (spec §4.5 step 3). It returns ok=false both when the
// block has no chance of satisfying need (fast rejection via the cached
// largestUnusedArea) and when a full scan finds nothing; in the latter case
// it tightens searchStart/searchEnd/largestUnusedArea to what the scan
// actually observed and clears Dirty, so the next miss on this block is
// cheaper.
func (b *Block) findFreeRun(need uint32) (lo, hi uint32, ok bool) {
	if b.areaAvailable() < need {
		return 0, 0, false
	}
	if !b.isDirty() && b.largestUnusedArea < need {
		return 0, 0, false
	}

	it := newRangeIterator([]uint64(b.used), int(b.searchStart), int(b.searchEnd), false)

	firstStart, lastEnd := -1, -1
	var largest uint32

	for {
		rs, re, more := it.next(int(need))
		if !more {
			break
		}
		length := uint32(re - rs)
		if length >= need {
			return uint32(rs), uint32(rs) + need, true
		}
		if firstStart == -1 {
			firstStart = rs
		}
		lastEnd = re
		largest = max(largest, length)
	}

	if firstStart != -1 {
		b.searchStart = uint32(firstStart)
		b.searchEnd = uint32(lastEnd)
		b.largestUnusedArea = largest
	}
	b.clearFlags(flagDirty)
	return 0, 0, false
}

// LiveByteRanges returns the byte-offset ranges, relative to this block's
// base, of every run of slots currently marked used. Callers take this
// snapshot before ClearBlock wipes the used bit vector, so a soft reset can
// flush the instruction cache only over spans that actually held live code
// rather than the whole block (spec §4.6; SPEC_FULL.md §12.2).
func (b *Block) LiveByteRanges() [][2]int {
	it := newRangeIterator([]uint64(b.used), 0, int(b.areaSize), true)
	var ranges [][2]int
	for {
		s, e, ok := it.next(int(b.areaSize))
		if !ok {
			break
		}
		ranges = append(ranges, [2]int{
			int(b.pool.BytesFromSlots(uint32(s))),
			int(b.pool.BytesFromSlots(uint32(e))),
		})
	}
	return ranges
}

// overheadBytes is the bookkeeping cost of this block: the Go Block struct
// itself plus both bit vectors, mirroring spec §3's totalOverheadBytes.
func (b *Block) overheadBytes() uint64 {
	return uint64(blockStructSize) + 2*uint64(len(b.used))*8
}
