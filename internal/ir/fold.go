package ir

import "slices"

// SubstFn returns the replacement for a bound parameter, or false to leave
// the parameter untouched.
type SubstFn func(ParamIdx) (ExprIdx, bool)

// Foldable is implemented by every structure that may mention parameters.
// Folding is structural: composites fold their children and rebuild.
type Foldable[T any] interface {
	FoldWith(c *Component, subst SubstFn) T
}

// FoldSlice folds every element of xs.
func FoldSlice[T Foldable[T]](xs []T, c *Component, subst SubstFn) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = x.FoldWith(c, subst)
	}
	return out
}

// shadow hides the parameters in bound from subst so a binder's own index
// variables are never replaced.
func shadow(bound []ParamIdx, subst SubstFn) SubstFn {
	if len(bound) == 0 {
		return subst
	}
	return func(p ParamIdx) (ExprIdx, bool) {
		if slices.Contains(bound, p) {
			return NoExprIdx, false
		}
		return subst(p)
	}
}

// Bind is an ordered association from parameters to expressions.
type Bind struct {
	params []ParamIdx
	exprs  []ExprIdx
}

// BindPair is a single parameter binding.
type BindPair struct {
	Param ParamIdx
	Expr  ExprIdx
}

// NewBind builds a binding from pairs, keeping their order.
func NewBind(pairs ...BindPair) *Bind {
	b := &Bind{
		params: make([]ParamIdx, 0, len(pairs)),
		exprs:  make([]ExprIdx, 0, len(pairs)),
	}
	for _, p := range pairs {
		b.Push(p.Param, p.Expr)
	}
	return b
}

// Push appends a binding. Earlier bindings of the same parameter win.
func (b *Bind) Push(p ParamIdx, e ExprIdx) {
	b.params = append(b.params, p)
	b.exprs = append(b.exprs, e)
}

// Get returns the expression bound to p.
func (b *Bind) Get(p ParamIdx) (ExprIdx, bool) {
	if b == nil {
		return NoExprIdx, false
	}
	if i := slices.Index(b.params, p); i >= 0 {
		return b.exprs[i], true
	}
	return NoExprIdx, false
}

// Len returns the number of bindings.
func (b *Bind) Len() int {
	if b == nil {
		return 0
	}
	return len(b.params)
}

// Subst is a pending substitution of a binding into a foldable value.
type Subst[T Foldable[T]] struct {
	base T
	bind *Bind
}

// NewSubst prepares the substitution of bind into base.
func NewSubst[T Foldable[T]](base T, bind *Bind) Subst[T] {
	return Subst[T]{base: base, bind: bind}
}

// Apply performs the substitution. The binding is consulted once per
// parameter occurrence; the replacement expressions are not folded again.
func (s Subst[T]) Apply(c *Component) T {
	if s.bind.Len() == 0 {
		return s.base
	}
	return s.base.FoldWith(c, s.bind.Get)
}
