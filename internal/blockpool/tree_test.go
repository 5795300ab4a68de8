package blockpool

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeDisjointBlocks carves n disjoint blocks with strictly increasing byte
// addresses out of one large backing array, so address comparisons in the
// tree are deterministic regardless of where the Go runtime happens to place
// the backing array itself.
func makeDisjointBlocks(n int, slotsPerBlock uint32) []*Block {
	const granularity = 64
	pool := newPool(granularity)
	blockBytes := int(slotsPerBlock) * granularity

	backing := make([]byte, n*blockBytes)
	blocks := make([]*Block, n)
	for i := 0; i < n; i++ {
		rx := backing[i*blockBytes : (i+1)*blockBytes]
		blocks[i] = newBlock(pool, rx, rx, false, false)
	}
	return blocks
}

func checkRedBlackInvariants(t *testing.T, tr *tree) {
	t.Helper()
	require.False(t, tr.root != tr.nilLeaf && tr.root.treeRed, "root must be black")

	var walk func(n *Block) int
	walk = func(n *Block) int {
		if n == tr.nilLeaf {
			return 1
		}
		if n.treeRed {
			require.False(t, n.treeLeft.treeRed, "red node has red left child")
			require.False(t, n.treeRight.treeRed, "red node has red right child")
		}
		lh := walk(n.treeLeft)
		rh := walk(n.treeRight)
		require.Equal(t, lh, rh, "unequal black height")
		if n.treeRed {
			return lh
		}
		return lh + 1
	}
	walk(tr.root)
}

func TestTree_insertAndFind(t *testing.T) {
	blocks := makeDisjointBlocks(5, 4)
	tr := newTree()
	for _, b := range blocks {
		tr.insert(b)
	}
	checkRedBlackInvariants(t, tr)

	for i, b := range blocks {
		require.Same(t, b, tr.find(b.rxBase()), "block %d", i)
		require.Same(t, b, tr.find(b.rxBase()+uintptr(b.blockSize-1)), "block %d last byte", i)
	}

	// an address past the last block's end is owned by nobody.
	last := blocks[len(blocks)-1]
	require.Nil(t, tr.find(last.rxBase()+uintptr(last.blockSize)))
}

func TestTree_remove(t *testing.T) {
	blocks := makeDisjointBlocks(6, 4)
	tr := newTree()
	for _, b := range blocks {
		tr.insert(b)
	}

	tr.remove(blocks[2])
	checkRedBlackInvariants(t, tr)

	require.Nil(t, tr.find(blocks[2].rxBase()))
	for i, b := range blocks {
		if i == 2 {
			continue
		}
		require.Same(t, b, tr.find(b.rxBase()), "block %d", i)
	}
}

func TestTree_insertRemoveStress(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	blocks := makeDisjointBlocks(64, 2)

	tr := newTree()
	order := rng.Perm(len(blocks))
	for _, i := range order {
		tr.insert(blocks[i])
		checkRedBlackInvariants(t, tr)
	}

	for _, i := range order {
		require.Same(t, blocks[i], tr.find(blocks[i].rxBase()))
	}

	removeOrder := rng.Perm(len(blocks))
	alive := make(map[int]bool)
	for i := range blocks {
		alive[i] = true
	}
	for _, i := range removeOrder {
		tr.remove(blocks[i])
		delete(alive, i)
		checkRedBlackInvariants(t, tr)

		require.Nil(t, tr.find(blocks[i].rxBase()))
		for j := range alive {
			require.Same(t, blocks[j], tr.find(blocks[j].rxBase()), "block %d after removing %d", j, i)
		}
	}
}
