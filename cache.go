package ecs

import (
	"iter"

	"github.com/rotisserie/eris"
)

var _ Cache[any] = &SimpleCache[any]{}

func newSimpleCache[T any](capacity int) *SimpleCache[T] {
	return &SimpleCache[T]{
		items:       make([]T, 0, capacity),
		itemIndices: make(map[string]int, capacity),
		maxCapacity: capacity,
	}
}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) GetItem32(index uint32) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) Len() int {
	return len(c.items)
}

// Register appends item under key. Indices are dense, in registration order,
// and never reused.
func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if _, exists := c.itemIndices[key]; exists {
		return -1, eris.Wrapf(ErrDuplicated, "key %q already registered", key)
	}
	if len(c.items) >= c.maxCapacity {
		return -1, eris.Wrapf(ErrInvalidUsage, "cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

// All yields items in registration order.
func (c *SimpleCache[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := range c.items {
			if !yield(i, &c.items[i]) {
				return
			}
		}
	}
}
