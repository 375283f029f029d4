package ir

import (
	"fmt"
	"iter"

	"fortio.org/safecast"
)

// Store is an append-only arena. Slot 0 is reserved for the invalid handle.
type Store[I ~uint32, T any] struct {
	items []T
}

// Add appends v and returns its handle.
func (s *Store[I, T]) Add(v T) I {
	if len(s.items) == 0 {
		var zero T
		s.items = append(s.items, zero)
	}
	n, err := safecast.Conv[uint32](len(s.items))
	if err != nil {
		panic(fmt.Errorf("ir: arena overflow: %w", err))
	}
	s.items = append(s.items, v)
	return I(n)
}

// Next returns the handle the next call to Add will produce.
func (s *Store[I, T]) Next() I {
	if len(s.items) == 0 {
		return I(1)
	}
	n, err := safecast.Conv[uint32](len(s.items))
	if err != nil {
		panic(fmt.Errorf("ir: arena overflow: %w", err))
	}
	return I(n)
}

// Lookup returns the value stored under idx.
func (s *Store[I, T]) Lookup(idx I) (T, bool) {
	if idx == 0 || int(idx) >= len(s.items) {
		var zero T
		return zero, false
	}
	return s.items[idx], true
}

// Has reports whether idx was produced by this arena.
func (s *Store[I, T]) Has(idx I) bool {
	return idx != 0 && int(idx) < len(s.items)
}

// Len returns the number of stored values (the reserved slot is not counted).
func (s *Store[I, T]) Len() int {
	if len(s.items) == 0 {
		return 0
	}
	return len(s.items) - 1
}

// All iterates over handles and values in allocation order.
func (s *Store[I, T]) All() iter.Seq2[I, T] {
	return func(yield func(I, T) bool) {
		for i := 1; i < len(s.items); i++ {
			if !yield(I(uint32(i)), s.items[i]) { // #nosec G115 -- bounded by Add
				return
			}
		}
	}
}

// Interned is an arena that shares handles between structurally equal values.
type Interned[I ~uint32, T comparable] struct {
	Store[I, T]
	index map[T]I
}

// Add interns v: an existing handle is returned for a value seen before.
func (in *Interned[I, T]) Add(v T) I {
	if id, ok := in.index[v]; ok {
		return id
	}
	if in.index == nil {
		in.index = make(map[T]I, 32)
	}
	id := in.Store.Add(v)
	in.index[v] = id
	return id
}

// Find returns the handle of v if it was interned before.
func (in *Interned[I, T]) Find(v T) (I, bool) {
	id, ok := in.index[v]
	return id, ok
}
