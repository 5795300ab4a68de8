package blockpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBlock(t *testing.T, granularity uint32, size int, initialPadding bool) (*Pool, *Block) {
	t.Helper()
	pool := newPool(granularity)
	mem := make([]byte, size)
	b := newBlock(pool, mem, mem, false, initialPadding)
	pool.appendBlock(b)
	return pool, b
}

func TestBlock_clearBlock_withInitialPadding(t *testing.T) {
	_, b := newTestBlock(t, 64, 64*16, true)

	require.True(t, b.UsedAt(0))
	require.True(t, b.stop.get(0))
	require.Equal(t, uint32(1), b.areaUsed)
	require.Equal(t, b.areaSize-1, b.largestUnusedArea)
	require.True(t, b.IsEmpty())
}

func TestBlock_markAllocatedArea_thenRelease(t *testing.T) {
	pool, b := newTestBlock(t, 64, 64*16, true)

	b.MarkAllocatedArea(1, 5)
	require.True(t, b.UsedAt(1))
	require.True(t, b.UsedAt(4))
	require.False(t, b.UsedAt(5))
	require.True(t, b.stop.get(4))
	require.False(t, b.IsEmpty())
	require.Equal(t, uint32(5), b.areaUsed)
	require.Equal(t, uint64(5), pool.totalAreaUsed)

	end := b.AllocationEnd(1)
	require.Equal(t, uint32(5), end)

	b.MarkReleasedArea(1, end)
	require.True(t, b.IsEmpty())
	require.Equal(t, uint32(1), b.areaUsed)
	require.Equal(t, uint64(1), pool.totalAreaUsed)
	require.False(t, b.UsedAt(1))
}

func TestBlock_markShrunkArea(t *testing.T) {
	_, b := newTestBlock(t, 64, 64*16, true)

	b.MarkAllocatedArea(1, 9)
	end := b.AllocationEnd(1)
	require.Equal(t, uint32(9), end)

	b.MarkShrunkArea(3, end)
	require.True(t, b.UsedAt(1))
	require.True(t, b.UsedAt(2))
	require.False(t, b.UsedAt(3))
	require.True(t, b.stop.get(2))
	require.False(t, b.stop.get(8))
	require.Equal(t, uint32(3), b.AllocationEnd(1))
}

func TestBlock_fullBlockCollapsesSearchWindow(t *testing.T) {
	_, b := newTestBlock(t, 64, 64*4, true)

	b.MarkAllocatedArea(1, 4)
	require.Equal(t, uint32(0), b.AreaAvailable())
	require.Equal(t, uint32(0), b.largestUnusedArea)
	require.Equal(t, b.areaSize, b.searchStart)
	require.Equal(t, uint32(0), b.searchEnd)
}

func TestBlock_findFreeRun(t *testing.T) {
	_, b := newTestBlock(t, 64, 64*32, true)

	b.MarkAllocatedArea(1, 5)
	b.MarkAllocatedArea(5, 10)

	lo, hi, ok := b.findFreeRun(4)
	require.True(t, ok)
	require.Equal(t, uint32(10), lo)
	require.Equal(t, uint32(14), hi)

	lo, hi, ok = b.findFreeRun(100)
	require.False(t, ok)
	require.Equal(t, uint32(0), lo)
	require.Equal(t, uint32(0), hi)
}

func TestBlock_findFreeRun_rejectsWhenLargestUnusedAreaTooSmallAndNotDirty(t *testing.T) {
	_, b := newTestBlock(t, 64, 64*8, true)

	b.MarkAllocatedArea(1, 8)
	// block is now full: largestUnusedArea == 0, Dirty cleared.
	require.False(t, b.isDirty())
	require.Equal(t, uint32(0), b.largestUnusedArea)

	_, _, ok := b.findFreeRun(1)
	require.False(t, ok)
}
