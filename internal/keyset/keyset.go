// Package keyset implements insert-if-absent merging for push-delivered collections.
//
// Items arriving over a socket can overlap with history fetched over REST or be replayed after
// a reconnect; keying by id keeps each element exactly once while preserving arrival order.
package keyset

import "sync"

// Append returns list with item appended unless an element with the same key is present.
// The second result reports whether the item was added.
func Append[T any, K comparable](list []T, item T, key func(T) K) ([]T, bool) {
	k := key(item)
	for _, x := range list {
		if key(x) == k {
			return list, false
		}
	}
	return append(list, item), true
}

// Merge appends every item of batch not already present (by key) in list, in batch order.
func Merge[T any, K comparable](list []T, batch []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(list)+len(batch))
	for _, x := range list {
		seen[key(x)] = struct{}{}
	}
	for _, x := range batch {
		k := key(x)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		list = append(list, x)
	}
	return list
}

// List is a concurrency-safe keyed list.
type List[T any, K comparable] struct {
	mu    sync.Mutex
	key   func(T) K
	items []T
}

func NewList[T any, K comparable](key func(T) K) *List[T, K] {
	return &List[T, K]{key: key}
}

// Reset replaces the contents, dropping duplicate keys in initial.
func (l *List[T, K]) Reset(initial []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = Merge(nil, initial, l.key)
}

// Add inserts item if its key is absent and reports whether it was added.
func (l *List[T, K]) Add(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var added bool
	l.items, added = Append(l.items, item, l.key)
	return added
}

// Items returns a copy of the current contents.
func (l *List[T, K]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *List[T, K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
