package blockpool

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func collectRanges(words []uint64, start, end int, ones bool, hint int) [][2]int {
	it := newRangeIterator(words, start, end, ones)
	var out [][2]int
	for {
		s, e, ok := it.next(hint)
		if !ok {
			break
		}
		out = append(out, [2]int{s, e})
	}
	return out
}

func TestRangeIterator_singleWord(t *testing.T) {
	// bits: 0b0011110 (LSB first) -> zeros [0,1), ones [1,5), zeros [5, 64)
	words := []uint64{0b0011110}
	ones := collectRanges(words, 0, 64, true, 64)
	require.Equal(t, [][2]int{{1, 5}}, ones)

	zeros := collectRanges(words, 0, 64, false, 64)
	require.Equal(t, [][2]int{{0, 1}, {5, 64}}, zeros)
}

func TestRangeIterator_crossesWordBoundary(t *testing.T) {
	// all-ones first word, all-ones second word -> one big 1-range with a
	// hint large enough to force it to merge across the boundary.
	words := []uint64{^uint64(0), ^uint64(0)}
	ones := collectRanges(words, 0, 128, true, 128)
	require.Equal(t, [][2]int{{0, 128}}, ones)
}

func TestRangeIterator_clipsToEnd(t *testing.T) {
	words := []uint64{^uint64(0)}
	ones := collectRanges(words, 0, 10, true, 64)
	require.Equal(t, [][2]int{{0, 10}}, ones)
}

func TestRangeIterator_startNotWordAligned(t *testing.T) {
	words := []uint64{^uint64(0)}
	ones := collectRanges(words, 4, 10, true, 64)
	require.Equal(t, [][2]int{{4, 10}}, ones)
}

func TestRangeIterator_idempotentRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		numBits := 1 + rng.Intn(500)
		src := newBitVector(numBits)
		for i := 0; i < numBits; i++ {
			src.setBit(i, rng.Intn(2) == 1)
		}

		rebuilt := newBitVector(numBits)
		for _, rg := range collectRanges([]uint64(src), 0, numBits, true, numBits) {
			rebuilt.fillRange(rg[0], rg[1])
		}
		for i := 0; i < numBits; i++ {
			require.Equal(t, src.get(i), rebuilt.get(i), "bit %d mismatch on trial %d", i, trial)
		}
	}
}
