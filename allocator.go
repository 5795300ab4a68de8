package asmjit

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/OliverSeth/asmjit/internal/blockpool"
	"github.com/OliverSeth/asmjit/internal/platform"
)

// maxAllocSize is uint32_max/2 (spec §7: "TooLarge — request size exceeds
// uint32_max / 2").
const maxAllocSize = (1<<32 - 1) / 2

// idealBlockSizeCap is the point at which idealBlockSize stops doubling and
// switches to rounding the request up to a multiple of the configured
// block size (spec §4.5 step 4).
const idealBlockSizeCap = 32 * 1024 * 1024

// Stats is a point-in-time snapshot of allocator counters (spec §6:
// statistics()).
type Stats = blockpool.Stats

// ResetPolicy selects how much of the allocator's state Reset discards.
type ResetPolicy int

const (
	// ResetSoft keeps (at most) one wiped block per pool.
	ResetSoft ResetPolicy = iota
	// ResetHard discards every block.
	ResetHard
)

// Allocator is the block-pool executable-memory allocator (spec §2). The
// zero value is not usable; construct with New. Grounded on the teacher's
// store.go: a single coarse sync.Mutex guards every field below it, exactly
// as spec §5 requires ("a single exclusive mutex guarding the entire
// allocator state").
type Allocator struct {
	mu sync.Mutex

	cfg *Config
	idx *blockpool.Index

	allocationCount uint32
	lastBlockSize   uint32
}

// New constructs an Allocator. A nil cfg uses NewConfig()'s defaults.
func New(cfg *Config) (*Allocator, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	info, err := platform.QueryInfo()
	if err != nil {
		return nil, wrapErr("New", ErrNotInitialized)
	}
	cfg = cfg.normalize(info.PageGranularity)

	if forcesDualMapping(platform.QueryHardenedRuntime()) {
		cfg = cfg.With(WithDualMapping(true))
	}

	return &Allocator{
		cfg:           cfg,
		idx:           blockpool.NewIndex(cfg.granularity, cfg.useMultiplePools),
		lastBlockSize: cfg.blockSize,
	}, nil
}

// forcesDualMapping reports whether a hardened runtime that rejects RWX
// mappings outright, with no MAP_JIT-style opt-in, leaves dual mapping as
// the only way to hand out executable memory (spec §4.5 construction: "If
// the environment is hardened and MAP_JIT-style mapping is unavailable,
// force UseDualMapping").
func forcesDualMapping(hardened platform.HardenedRuntimeInfo) bool {
	return hardened.Enabled && !hardened.MapJitSupported
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func roundUp(v, granularity uint32) uint32 {
	return (v + granularity - 1) &^ (granularity - 1)
}

func slotIndexOf(block *blockpool.Block, addr uintptr) uint32 {
	return uint32((addr - block.RXBase()) >> block.Pool().GranularityLog2())
}

// Alloc reserves a region of at least size bytes and returns its two
// aliases: rx (execute) and rw (write), equal when the block is
// single-mapped (spec §4.5 alloc()).
func (a *Allocator) Alloc(size int) (rx, rw []byte, err error) {
	if size <= 0 {
		return nil, nil, wrapErr("Alloc", ErrInvalidArgument)
	}
	if uint64(size) > maxAllocSize {
		return nil, nil, wrapErr("Alloc", ErrTooLarge)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rounded := roundUp(uint32(size), a.cfg.granularity)
	pool := a.idx.PoolForSize(rounded)
	need := pool.SlotsFromBytes(uint64(rounded))

	block, lo, hi, found := a.idx.FindFreeBlock(pool, need)
	if !found {
		var berr error
		block, berr = a.newBlock(pool, need)
		if berr != nil {
			return nil, nil, wrapErr("Alloc", berr)
		}
		lo = block.InitialAreaStart()
		hi = lo + need
	}

	wasEmpty := block.IsEmpty()
	block.MarkAllocatedArea(lo, hi)
	if wasEmpty {
		pool.NotifyBlockBecameUsed()
	}
	a.allocationCount++

	off := int(pool.BytesFromSlots(lo))
	length := int(pool.BytesFromSlots(hi - lo))
	return block.RX()[off : off+length], block.RW()[off : off+length], nil
}

// idealBlockSize sizes a new block for a request of need bytes (spec §4.5
// step 4): grow geometrically off the last block's size until the soft
// cap, then round the request itself up to a multiple of the configured
// block size if it still doesn't fit.
func (a *Allocator) idealBlockSize(need uint64) (uint32, error) {
	size := uint64(a.lastBlockSize)
	if size == 0 {
		size = uint64(a.cfg.blockSize)
	}
	if size < idealBlockSizeCap {
		if size > idealBlockSizeCap/2 {
			size = idealBlockSizeCap
		} else {
			size *= 2
		}
	}
	if size < need {
		base := uint64(a.cfg.blockSize)
		rounded := ((need + base - 1) / base) * base
		if rounded < need {
			return 0, ErrOutOfMemory
		}
		size = rounded
	}
	if size > uint64(^uint32(0)) {
		return 0, ErrOutOfMemory
	}
	return uint32(size), nil
}

// newBlock maps a fresh block sized for at least need slots and indexes it
// (spec §4.5 step 4).
func (a *Allocator) newBlock(pool *blockpool.Pool, need uint32) (*blockpool.Block, error) {
	initialPadding := !a.cfg.disableInitialPadding

	byteNeed := pool.BytesFromSlots(need)
	if initialPadding {
		byteNeed += uint64(pool.Granularity())
	}

	blockSize, err := a.idealBlockSize(byteNeed)
	if err != nil {
		return nil, err
	}

	dualMapped := a.cfg.useDualMapping
	var rx, rw []byte
	if dualMapped {
		m, merr := platform.AllocDualMapping(int(blockSize), platform.MemoryAccessRWX)
		if merr != nil {
			return nil, ErrOutOfMemory
		}
		rx, rw = m.RX, m.RW
	} else {
		mem, merr := platform.Alloc(int(blockSize), platform.MemoryAccessRWX)
		if merr != nil {
			return nil, ErrOutOfMemory
		}
		rx, rw = mem, mem
	}

	if a.cfg.fillUnusedMemory {
		a.fill(rw, !dualMapped)
	}

	block := blockpool.NewBlock(pool, rx, rw, dualMapped, initialPadding)
	a.idx.InsertBlock(pool, block)
	a.lastBlockSize = blockSize
	return block, nil
}

// fill overwrites mem with the configured pattern. singleMapped blocks are
// RWX already but may need a hardened-runtime permission toggle around the
// write; dual-mapped blocks' rw alias is never executable so no toggle is
// needed or safe (spec §4.6).
func (a *Allocator) fill(mem []byte, singleMapped bool) {
	if len(mem) == 0 {
		return
	}
	if singleMapped && platform.QueryHardenedRuntime().Enabled {
		release, err := platform.ScopedProtectJITReadWrite(mem)
		if err != nil {
			return
		}
		defer release()
	}
	writeFillPattern(mem, a.cfg.fillPattern)
}

func (a *Allocator) fillRange(block *blockpool.Block, lo, hi uint32) {
	pool := block.Pool()
	off := int(pool.BytesFromSlots(lo))
	length := int(pool.BytesFromSlots(hi - lo))
	a.fill(block.RW()[off:off+length], !block.IsDualMapped())
}

func writeFillPattern(mem []byte, pattern uint32) {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], pattern)
	i := 0
	for ; i+4 <= len(mem); i += 4 {
		copy(mem[i:i+4], word[:])
	}
	for j := 0; i < len(mem); i, j = i+1, j+1 {
		mem[i] = word[j]
	}
}

func (a *Allocator) releaseMapping(block *blockpool.Block) {
	if block.IsDualMapped() {
		_ = platform.ReleaseDualMapping(platform.DualMapping{RX: block.RX(), RW: block.RW()})
	} else {
		_ = platform.Release(block.RX())
	}
}

func (a *Allocator) destroyBlock(block *blockpool.Block) {
	a.idx.RemoveBlock(block)
	a.releaseMapping(block)
}

// lookupOwned resolves rxPtr to its owning block and the slot index it
// falls in, validating that the slot is part of a live allocation (spec
// §4.5 release/shrink/query's shared tree-lookup-then-validate prologue).
func (a *Allocator) lookupOwned(op string, rxPtr []byte) (*blockpool.Block, uint32, error) {
	if len(rxPtr) == 0 {
		return nil, 0, wrapErr(op, ErrInvalidArgument)
	}
	addr := addrOf(rxPtr)
	block := a.idx.Lookup(addr)
	if block == nil {
		return nil, 0, wrapErr(op, ErrInvalidArgument)
	}
	lo := slotIndexOf(block, addr)
	if !block.UsedAt(lo) {
		return nil, 0, wrapErr(op, ErrInvalidState)
	}
	return block, lo, nil
}

// Release returns a previously allocated region to its pool (spec §4.5
// release()).
func (a *Allocator) Release(rxPtr []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	block, lo, err := a.lookupOwned("Release", rxPtr)
	if err != nil {
		return err
	}
	hi := block.AllocationEnd(lo)

	block.MarkReleasedArea(lo, hi)

	if a.cfg.fillUnusedMemory {
		a.fillRange(block, lo, hi)
	}

	if block.IsEmpty() {
		pool := block.Pool()
		if pool.EmptyBlockCount() >= 1 || a.cfg.immediateRelease {
			a.destroyBlock(block)
		} else {
			pool.NotifyBlockBecameEmpty()
		}
	}
	return nil
}

// Shrink truncates a live allocation's tail (spec §4.5 shrink()). newSize
// of 0 delegates to Release.
func (a *Allocator) Shrink(rxPtr []byte, newSize int) error {
	if newSize == 0 {
		return a.Release(rxPtr)
	}
	if newSize < 0 {
		return wrapErr("Shrink", ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	block, lo, err := a.lookupOwned("Shrink", rxPtr)
	if err != nil {
		return err
	}
	hi := block.AllocationEnd(lo)

	pool := block.Pool()
	newSlots := pool.SlotsFromBytes(uint64(newSize))
	if newSlots > hi-lo {
		return wrapErr("Shrink", ErrInvalidState)
	}
	if newSlots == hi-lo {
		return nil
	}

	tailLo := lo + newSlots
	block.MarkShrunkArea(tailLo, hi)
	if a.cfg.fillUnusedMemory {
		a.fillRange(block, tailLo, hi)
	}
	return nil
}

// Query resolves rxPtr to rx/rw aliases and a size within the live
// allocation it falls in. rxPtr may point anywhere inside that allocation,
// not just its base (spec §9's Open Question, resolved by preserving the
// stop-bit search's literal behavior): the returned span starts at the slot
// containing rxPtr and ends at the allocation's stop bit, so it covers the
// whole allocation only when rxPtr lies in the allocation's first slot.
func (a *Allocator) Query(rxPtr []byte) (rx, rw []byte, size int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	block, lo, err := a.lookupOwned("Query", rxPtr)
	if err != nil {
		return nil, nil, 0, err
	}
	hi := block.AllocationEnd(lo)

	pool := block.Pool()
	off := int(pool.BytesFromSlots(lo))
	length := int(pool.BytesFromSlots(hi - lo))
	return block.RX()[off : off+length], block.RW()[off : off+length], length, nil
}

// Reset discards allocator state per policy (spec §4.5 reset()). Every
// pointer previously returned by Alloc becomes invalid.
func (a *Allocator) Reset(policy ResetPolicy) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if policy == ResetSoft && !a.cfg.immediateRelease {
		kept, removed := a.idx.ResetSoft()
		for _, b := range removed {
			a.releaseMapping(b)
		}
		for _, k := range kept {
			if !a.cfg.fillUnusedMemory {
				continue
			}
			a.fill(k.Block.RW(), !k.Block.IsDualMapped())
			for _, r := range k.LiveRanges {
				platform.FlushInstructionCache(k.Block.RX()[r[0]:r[1]])
			}
		}
		return
	}

	removed := a.idx.Reset()
	for _, b := range removed {
		a.releaseMapping(b)
	}
	a.allocationCount = 0
}

// Statistics returns a snapshot of pool-level counters (spec §4.5
// statistics()).
func (a *Allocator) Statistics() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.idx.Statistics(a.allocationCount)
}
