package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeTxMap() *BoundStackMap[string] {
	bsm := NewBoundStackMap[string](3)
	bsm.Push("0xaa11", "deposit")
	bsm.Push("0xbb22", "sign")
	bsm.Push("0xcc33", "submit-delivery")
	return bsm
}

func TestBoundStackMapCount(t *testing.T) {
	bsm := makeTxMap()
	assert.Equal(t, 3, bsm.Count())
}

func TestBoundStackMapEvictsOldest(t *testing.T) {
	bsm := makeTxMap()
	bsm.Push("0xdd44", "cancel-order")
	assert.Equal(t, 3, bsm.Count())
	assert.Equal(t, 3, bsm.Capacity())

	_, ok := bsm.Get("0xaa11")
	assert.False(t, ok)

	action, ok := bsm.Get("0xdd44")
	assert.True(t, ok)
	assert.Equal(t, "cancel-order", action)
}

func TestBoundStackMapAt(t *testing.T) {
	bsm := makeTxMap()
	action, _ := bsm.At(0)
	assert.Equal(t, "deposit", action)

	action, _ = bsm.At(-1)
	assert.Equal(t, "submit-delivery", action)
}

func TestBoundStackMapClear(t *testing.T) {
	bsm := makeTxMap()
	bsm.Clear()
	assert.Equal(t, 0, bsm.Count())
	assert.Equal(t, 3, bsm.Capacity())

	_, ok := bsm.Get("0xbb22")
	assert.False(t, ok)

	_, ok = bsm.At(0)
	assert.False(t, ok)
}
