package core

// Pair binds one name.
type Pair[T any] struct {
	Name Id
	Val  T
}

// Bind pairs name with val.
func Bind[T any](name Id, val T) Pair[T] { return Pair[T]{Name: name, Val: val} }

// Binding is an ordered name to expression map. When a name is bound more
// than once the earliest binding wins.
type Binding = Bindings[Expr]

// EventBinding maps event names to times.
type EventBinding = Bindings[Time]

// Bindings is the ordered map behind Binding and EventBinding.
type Bindings[T any] struct {
	pairs []Pair[T]
}

// NewBinding builds a parameter binding.
func NewBinding(pairs ...Pair[Expr]) *Binding {
	return &Binding{pairs: pairs}
}

// NewEventBinding builds an event binding.
func NewEventBinding(pairs ...Pair[Time]) *EventBinding {
	return &EventBinding{pairs: pairs}
}

// Zip binds names[i] to vals[i] for the common prefix of both slices.
func Zip[T any](names []Id, vals []T) *Bindings[T] {
	n := min(len(names), len(vals))
	b := &Bindings[T]{pairs: make([]Pair[T], 0, n)}
	for i := range n {
		b.Push(names[i], vals[i])
	}
	return b
}

// Push appends a binding; an existing binding for name still takes priority.
func (b *Bindings[T]) Push(name Id, val T) {
	b.pairs = append(b.pairs, Pair[T]{Name: name, Val: val})
}

// Extend appends every pair of o.
func (b *Bindings[T]) Extend(o *Bindings[T]) {
	if o == nil {
		return
	}
	b.pairs = append(b.pairs, o.pairs...)
}

// Get returns the first value bound to name.
func (b *Bindings[T]) Get(name Id) (T, bool) {
	if b != nil {
		for _, p := range b.pairs {
			if p.Name == name {
				return p.Val, true
			}
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of pairs, including shadowed ones.
func (b *Bindings[T]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pairs)
}
