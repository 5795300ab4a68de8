package blockpool

import "math/bits"

const wordBits = 64

// shiftedOnes returns all-ones shifted left by n; n must be in [0, 64).
func shiftedOnes(n int) uint64 {
	return ^uint64(0) << uint(n)
}

// rangeIterator scans a packed bit vector by words and yields every maximal
// run of a target polarity intersecting [start, end). This is a direct port
// of AsmJit's BitVectorRangeIterator (jitallocator.cpp): bit-scan by words
// using count-trailing-zeros on an XOR-masked word, where the mask is
// all-ones when the target polarity is 0 and zero when it is 1.
type rangeIterator struct {
	words   []uint64
	idx     int
	end     int
	bitWord uint64
	xorMask uint64
}

// newRangeIterator starts scanning [start, end) of words for runs of the
// given polarity (ones == true scans 1-ranges, false scans 0-ranges).
func newRangeIterator(words []uint64, start, end int, ones bool) *rangeIterator {
	var xorMask uint64
	if !ones {
		xorMask = ^uint64(0)
	}

	idx := start - start%wordBits
	it := &rangeIterator{words: words, idx: idx, end: end, xorMask: xorMask}
	if idx < end {
		it.bitWord = (words[idx/wordBits] ^ xorMask) & shiftedOnes(start%wordBits)
	}
	return it
}

// next returns the next maximal run of the target polarity. rangeHint asks
// the iterator, when a run starts at a word boundary, to keep extending it
// across subsequent all-target-polarity words until it reaches rangeHint
// bits or the opposite polarity is found; pass a very large rangeHint (e.g.
// the vector's length) to disable the optimization.
func (it *rangeIterator) next(rangeHint int) (start, end int, ok bool) {
	for it.bitWord == 0 {
		it.idx += wordBits
		if it.idx >= it.end {
			return 0, 0, false
		}
		it.bitWord = it.words[it.idx/wordBits] ^ it.xorMask
	}

	i := bits.TrailingZeros64(it.bitWord)
	start = it.idx + i
	it.bitWord = ^(it.bitWord ^ ^shiftedOnes(i))

	if it.bitWord == 0 {
		end = min(it.idx+wordBits, it.end)
		for end-start < rangeHint {
			it.idx += wordBits
			if it.idx >= it.end {
				break
			}
			it.bitWord = it.words[it.idx/wordBits] ^ it.xorMask
			if it.bitWord != ^uint64(0) {
				j := bits.TrailingZeros64(^it.bitWord)
				end = min(it.idx+j, it.end)
				it.bitWord = it.bitWord ^ ^shiftedOnes(j)
				break
			}
			end = min(it.idx+wordBits, it.end)
			it.bitWord = 0
		}
		return start, end, true
	}

	j := bits.TrailingZeros64(it.bitWord)
	end = min(it.idx+j, it.end)
	it.bitWord = ^(it.bitWord ^ ^shiftedOnes(j))
	return start, end, true
}
