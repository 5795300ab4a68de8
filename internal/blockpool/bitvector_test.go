package blockpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitVector_setGetFillClear(t *testing.T) {
	v := newBitVector(200)
	require.False(t, v.get(0))

	v.fillRange(10, 20)
	for i := 0; i < 200; i++ {
		require.Equal(t, i >= 10 && i < 20, v.get(i), "bit %d", i)
	}

	v.clearRange(12, 15)
	for i := 10; i < 20; i++ {
		want := !(i >= 12 && i < 15)
		require.Equal(t, want, v.get(i), "bit %d", i)
	}

	v.setBit(199, true)
	require.True(t, v.get(199))
	v.reset()
	require.False(t, v.get(199))
}

func TestBitVector_indexOf(t *testing.T) {
	v := newBitVector(128)
	v.setBit(40, true)
	require.Equal(t, 40, v.indexOf(0, true))
	require.Equal(t, 40, v.indexOf(40, true))
	require.Equal(t, 128, v.indexOf(41, true))
	require.Equal(t, 0, v.indexOf(0, false))
}

func TestWordCountFromBits(t *testing.T) {
	require.Equal(t, 1, wordCountFromBits(1))
	require.Equal(t, 1, wordCountFromBits(64))
	require.Equal(t, 2, wordCountFromBits(65))
}
