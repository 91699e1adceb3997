package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testModel struct {
	id string
}

func (m *testModel) GetID() string {
	return m.id
}

func TestCollection(t *testing.T) {
	collection := NewCollection[*testModel]()
	require.NotNil(t, collection)

	collection.Store(&testModel{id: "testid"})

	item, ok := collection.Load("testid")
	require.Equal(t, ok, true)
	require.NotNil(t, item)

	collection.Delete("testid")

	item, ok = collection.Load("testid")
	require.Equal(t, ok, false)
	require.Nil(t, item)
}

func TestCollectionLen(t *testing.T) {
	collection := NewCollection[*testModel]()
	require.Equal(t, 0, collection.Len())

	collection.Store(&testModel{id: "a"})
	collection.Store(&testModel{id: "b"})
	collection.Store(&testModel{id: "a"}) // same key overwrites
	require.Equal(t, 2, collection.Len())
}

func TestCollectionRange(t *testing.T) {
	collection := NewCollection[*testModel]()
	collection.Store(&testModel{id: "a"})
	collection.Store(&testModel{id: "b"})

	seen := map[string]bool{}
	collection.Range(func(item *testModel) bool {
		seen[item.GetID()] = true
		return true
	})
	require.Len(t, seen, 2)
}
