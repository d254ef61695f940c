package bitmap_test

import (
	"testing"

	"github.com/ajrojasfuentes/qrfs/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSkipsSetBits(t *testing.T) {
	bm := bitmap.New(16)
	assert.False(t, bm.Get(0))

	first, ok := bm.Allocate()
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.True(t, bm.Get(0))

	bm.Set(5, true)
	assert.True(t, bm.Get(5))

	second, ok := bm.Allocate()
	require.True(t, ok)
	assert.Equal(t, 1, second)
}

func TestAllocateFullReturnsNotOK(t *testing.T) {
	bm := bitmap.New(2)
	_, ok := bm.Allocate()
	require.True(t, ok)
	_, ok = bm.Allocate()
	require.True(t, ok)

	_, ok = bm.Allocate()
	assert.False(t, ok)
}

func TestOutOfRangeIsNoop(t *testing.T) {
	bm := bitmap.New(4)
	assert.False(t, bm.Get(10))
	bm.Set(10, true) // no panic, no effect
	assert.False(t, bm.Get(10))
}

func TestResizeGrow(t *testing.T) {
	bm := bitmap.New(4)
	bm.Set(0, true)
	require.NoError(t, bm.Resize(8))
	assert.Equal(t, 8, bm.Size())
	assert.True(t, bm.Get(0))
	assert.False(t, bm.Get(7))
}

func TestResizeShrinkRefusesWhenTailAllocated(t *testing.T) {
	bm := bitmap.New(8)
	bm.Set(6, true)
	err := bm.Resize(5)
	assert.Error(t, err)
	assert.Equal(t, 8, bm.Size(), "a refused shrink must leave the bitmap unchanged")
}

func TestResizeShrinkSucceedsWhenTailClear(t *testing.T) {
	bm := bitmap.New(8)
	bm.Set(2, true)
	require.NoError(t, bm.Resize(5))
	assert.Equal(t, 5, bm.Size())
	assert.True(t, bm.Get(2))
}

func TestMarshalRoundTrip(t *testing.T) {
	bm := bitmap.New(20)
	bm.Set(0, true)
	bm.Set(19, true)

	data, err := bm.MarshalBinary()
	require.NoError(t, err)

	var decoded bitmap.Bitmap
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, bm.Size(), decoded.Size())
	assert.True(t, decoded.Get(0))
	assert.True(t, decoded.Get(19))
	assert.False(t, decoded.Get(10))
}
