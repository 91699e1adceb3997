package lib

import "sync"

type IModel interface {
	GetID() string
}

// Collection is a typed wrapper around sync.Map keyed by model ID
type Collection[T IModel] struct {
	items sync.Map
}

func NewCollection[T IModel]() *Collection[T] {
	return &Collection[T]{
		items: sync.Map{},
	}
}

func (c *Collection[T]) Load(ID string) (item T, ok bool) {
	if val, ok := c.items.Load(ID); ok {
		return val.(T), true
	}
	var nilItem T
	return nilItem, false
}

func (c *Collection[T]) Range(f func(item T) bool) {
	c.items.Range(func(key any, value any) bool {
		item := value.(T)
		return f(item)
	})
}

func (c *Collection[T]) Store(item T) {
	c.items.Store(item.GetID(), item)
}

func (c *Collection[T]) Delete(ID string) {
	c.items.Delete(ID)
}

func (c *Collection[T]) Len() int {
	count := 0
	c.items.Range(func(key any, value any) bool {
		count++
		return true
	})
	return count
}
