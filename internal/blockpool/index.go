package blockpool

// Index owns every pool plus the cross-pool block-lookup tree. It is the
// pure bookkeeping half of the allocator: it never touches virtual memory
// itself — the facade maps and unmaps blocks and hands Index already-mapped
// rx/rw pairs (spec §1: "virtual-memory acquisition ... is treated as an
// external collaborator").
type Index struct {
	pools []*Pool
	tree  *tree
}

// NewIndex builds one pool per granularity: just baseGranularity, or
// baseGranularity, 2x and 4x when multiplePools is set (spec §3:
// "UseMultiplePools: enable 3 pools with doubling granularity").
func NewIndex(baseGranularity uint32, multiplePools bool) *Index {
	n := 1
	if multiplePools {
		n = 3
	}
	ix := &Index{tree: newTree()}
	g := baseGranularity
	for i := 0; i < n; i++ {
		ix.pools = append(ix.pools, newPool(g))
		g <<= 1
	}
	return ix
}

// Pools returns every pool, ordered from finest to coarsest granularity.
func (ix *Index) Pools() []*Pool { return ix.pools }

// PoolForSize implements sizeToPoolId (spec §4.2): the coarsest pool whose
// granularity divides size exactly, so large requests land in a
// coarse-grained pool instead of wasting bit-vector space on fine slots.
func (ix *Index) PoolForSize(size uint32) *Pool {
	best := ix.pools[0]
	for _, p := range ix.pools {
		if size%p.granularity == 0 {
			best = p
		}
	}
	return best
}

// FindFreeBlock delegates to pool's ring walk (spec §4.5 step 3).
func (ix *Index) FindFreeBlock(pool *Pool, need uint32) (*Block, uint32, uint32, bool) {
	return pool.findFreeBlock(need)
}

// InsertBlock appends b to pool's list and indexes it by address.
func (ix *Index) InsertBlock(pool *Pool, b *Block) {
	pool.appendBlock(b)
	ix.tree.insert(b)
}

// RemoveBlock detaches b from the tree and from its owning pool's list.
// Callers are responsible for releasing its virtual-memory mapping.
func (ix *Index) RemoveBlock(b *Block) {
	ix.tree.remove(b)
	b.pool.unlinkBlock(b)
}

// Lookup returns the block whose rx mapping contains addr, or nil (spec
// §4.4).
func (ix *Index) Lookup(addr uintptr) *Block {
	return ix.tree.find(addr)
}

// Statistics aggregates every pool's counters (spec §4.5: "statistics():
// sum the pool counters and return a snapshot").
func (ix *Index) Statistics(allocationCount uint32) Stats {
	return Collect(ix.pools, allocationCount)
}

// Reset drops every block from every pool and empties the tree, returning
// every block that was live so the caller can release their virtual-memory
// mappings (spec §4.5 reset(Hard)).
func (ix *Index) Reset() []*Block {
	var all []*Block
	for _, p := range ix.pools {
		for b := p.first; b != nil; b = b.next {
			all = append(all, b)
		}
		p.reset()
	}
	ix.tree.reset()
	return all
}

// KeptBlock is a block ResetSoft retained across the reset, paired with the
// byte ranges that held live code immediately before the wipe — the only
// spans whose instruction cache the caller needs to flush after re-filling
// (spec §4.6; SPEC_FULL.md §12.2, grounded on AsmJit's
// JitAllocatorImpl_wipeOutBlock flushing per previously-live range rather
// than the whole block).
type KeptBlock struct {
	Block      *Block
	LiveRanges [][2]int
}

// ResetSoft keeps (at most) the first block of each pool, wiped clean, and
// drops the rest (spec §4.5 reset(Soft)). It returns the kept blocks (which
// the caller should re-fill and flush if FillUnusedMemory is set) and the
// removed blocks (whose virtual-memory mappings the caller must release).
func (ix *Index) ResetSoft() (kept []KeptBlock, removed []*Block) {
	ix.tree.reset()
	for _, p := range ix.pools {
		first := p.first
		if first == nil {
			p.reset()
			continue
		}

		for b := first.next; b != nil; {
			next := b.next
			removed = append(removed, b)
			b = next
		}

		first.prev, first.next = nil, nil
		liveRanges := first.LiveByteRanges()
		first.ClearBlock()

		p.first, p.last, p.cursor = first, first, first
		p.blockCount = 1
		p.emptyBlockCount = 1
		p.totalAreaSize = uint64(first.areaSize)
		p.totalAreaUsed = uint64(first.areaUsed)
		p.totalOverheadBytes = first.overheadBytes()

		ix.tree.insert(first)
		kept = append(kept, KeptBlock{Block: first, LiveRanges: liveRanges})
	}
	return kept, removed
}
