package blockpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndex_poolForSize_routesToCoarsestDivisor(t *testing.T) {
	ix := NewIndex(64, true)
	pools := ix.Pools()
	require.Len(t, pools, 3)
	require.Equal(t, []uint32{64, 128, 256}, []uint32{pools[0].Granularity(), pools[1].Granularity(), pools[2].Granularity()})

	require.Equal(t, uint32(64), ix.PoolForSize(64).Granularity())
	require.Equal(t, uint32(128), ix.PoolForSize(128).Granularity())
	require.Equal(t, uint32(256), ix.PoolForSize(1024).Granularity())
	require.Equal(t, uint32(64), ix.PoolForSize(192).Granularity()) // not divisible by 128 or 256
}

func TestIndex_poolForSize_singlePool(t *testing.T) {
	ix := NewIndex(64, false)
	require.Len(t, ix.Pools(), 1)
	require.Equal(t, uint32(64), ix.PoolForSize(4096).Granularity())
}

func TestIndex_insertFindRemoveBlock(t *testing.T) {
	ix := NewIndex(64, false)
	pool := ix.Pools()[0]

	backing := make([]byte, 2*4*64)
	b1 := NewBlock(pool, backing[:4*64], backing[:4*64], false, true)
	b2 := NewBlock(pool, backing[4*64:], backing[4*64:], false, true)

	ix.InsertBlock(pool, b1)
	ix.InsertBlock(pool, b2)
	require.Equal(t, uint32(2), pool.blockCount)

	require.Same(t, b1, ix.Lookup(b1.RXBase()))
	require.Same(t, b2, ix.Lookup(b2.RXBase()))

	ix.RemoveBlock(b1)
	require.Nil(t, ix.Lookup(b1.RXBase()))
	require.Same(t, b2, ix.Lookup(b2.RXBase()))
	require.Equal(t, uint32(1), pool.blockCount)
}

func TestPool_findFreeBlock_ringWalkAndCursorRotation(t *testing.T) {
	pool := newPool(64)
	backing := make([]byte, 3*4*64)
	blocks := make([]*Block, 3)
	for i := range blocks {
		rx := backing[i*4*64 : (i+1)*4*64]
		blocks[i] = newBlock(pool, rx, rx, false, true)
		pool.appendBlock(blocks[i])
	}

	// fill the first two blocks completely (3 usable slots each after padding).
	blocks[0].MarkAllocatedArea(1, 4)
	blocks[1].MarkAllocatedArea(1, 4)

	block, lo, hi, ok := pool.findFreeBlock(2)
	require.True(t, ok)
	require.Same(t, blocks[2], block)
	require.Equal(t, uint32(1), lo)
	require.Equal(t, uint32(3), hi)

	// cursor rotated onto (or past) the satisfying block; the next call
	// finds the same leftover run again since nothing was marked allocated.
	block2, _, _, ok2 := pool.findFreeBlock(2)
	require.True(t, ok2)
	require.Same(t, blocks[2], block2)
}

func TestPool_findFreeBlock_noneFitsReturnsFalse(t *testing.T) {
	pool := newPool(64)
	backing := make([]byte, 4*64)
	rx := backing
	b := newBlock(pool, rx, rx, false, true)
	pool.appendBlock(b)
	b.MarkAllocatedArea(1, 4)

	_, _, _, ok := pool.findFreeBlock(1)
	require.False(t, ok)
}

func TestIndex_reset_hard(t *testing.T) {
	ix := NewIndex(64, false)
	pool := ix.Pools()[0]
	backing := make([]byte, 2*4*64)
	b1 := NewBlock(pool, backing[:4*64], backing[:4*64], false, true)
	b2 := NewBlock(pool, backing[4*64:], backing[4*64:], false, true)
	ix.InsertBlock(pool, b1)
	ix.InsertBlock(pool, b2)

	removed := ix.Reset()
	require.ElementsMatch(t, []*Block{b1, b2}, removed)
	require.Equal(t, uint32(0), pool.blockCount)
	require.Nil(t, ix.Lookup(b1.RXBase()))
}

func TestIndex_resetSoft_keepsFirstBlockWiped(t *testing.T) {
	ix := NewIndex(64, false)
	pool := ix.Pools()[0]
	backing := make([]byte, 2*4*64)
	b1 := NewBlock(pool, backing[:4*64], backing[:4*64], false, true)
	b2 := NewBlock(pool, backing[4*64:], backing[4*64:], false, true)
	ix.InsertBlock(pool, b1)
	ix.InsertBlock(pool, b2)

	b1.MarkAllocatedArea(1, 3)
	b2.MarkAllocatedArea(1, 3)

	kept, removed := ix.ResetSoft()
	require.Len(t, kept, 1)
	require.Same(t, b1, kept[0].Block)
	require.Equal(t, [][2]int{{0, 192}}, kept[0].LiveRanges, "padding slot 0 plus allocated slots [1,3) were live before the wipe")
	require.Equal(t, []*Block{b2}, removed)

	require.True(t, b1.IsEmpty())
	require.Equal(t, uint32(1), pool.blockCount)
	require.Equal(t, uint32(1), pool.emptyBlockCount)
	require.Same(t, b1, ix.Lookup(b1.RXBase()))
	require.Nil(t, ix.Lookup(b2.RXBase()))
}
