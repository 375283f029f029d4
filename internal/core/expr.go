// Package core holds the name-based program representation that lowering
// passes consume and produce. Everything in here refers to components,
// parameters, events and ports by name; the arena-based form lives in ir.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Id names a component, parameter, event, port, instance or invocation.
type Id string

func (id Id) String() string { return string(id) }

// ExprKind discriminates Expr.
type ExprKind uint8

const (
	ExprConcrete ExprKind = iota + 1
	ExprAbstract
	ExprOp
)

// Op is a binary operator over parameter expressions.
type Op uint8

const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

// Expr is a parameter expression: a constant, a parameter name or a binary
// operation. The zero value is not a valid expression.
type Expr struct {
	Kind  ExprKind `msgpack:"k"`
	Value uint64   `msgpack:"v,omitempty"`
	Name  Id       `msgpack:"n,omitempty"`
	Op    Op       `msgpack:"o,omitempty"`
	Left  *Expr    `msgpack:"l,omitempty"`
	Right *Expr    `msgpack:"r,omitempty"`
}

// Concrete returns a constant expression.
func Concrete(v uint64) Expr { return Expr{Kind: ExprConcrete, Value: v} }

// Abstract returns a reference to the parameter named name.
func Abstract(name Id) Expr { return Expr{Kind: ExprAbstract, Name: name} }

// BinOp builds l op r without simplifying it.
func BinOp(op Op, l, r Expr) Expr {
	return Expr{Kind: ExprOp, Op: op, Left: &l, Right: &r}
}

func (e Expr) IsConcrete() bool { return e.Kind == ExprConcrete }

// Concrete returns the value of a constant expression. Anything that still
// mentions a parameter is an error.
func (e Expr) Concrete() (uint64, error) {
	if e.Kind == ExprConcrete {
		return e.Value, nil
	}
	return 0, fmt.Errorf("core: expression `%s' is not a constant", e)
}

// Add returns e + o, folding constants.
func (e Expr) Add(o Expr) Expr { return fold(OpAdd, e, o) }

// Sub returns e - o, folding constants.
func (e Expr) Sub(o Expr) Expr { return fold(OpSub, e, o) }

// Mul returns e * o, folding constants.
func (e Expr) Mul(o Expr) Expr { return fold(OpMul, e, o) }

// Resolve substitutes every parameter bound in b and folds the result.
// Unbound parameters are left in place.
func (e Expr) Resolve(b *Binding) Expr {
	switch e.Kind {
	case ExprAbstract:
		if v, ok := b.Get(e.Name); ok {
			return v
		}
		return e
	case ExprOp:
		return fold(e.Op, e.Left.Resolve(b), e.Right.Resolve(b))
	default:
		return e
	}
}

// Equal reports structural equality.
func (e Expr) Equal(o Expr) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case ExprConcrete:
		return e.Value == o.Value
	case ExprAbstract:
		return e.Name == o.Name
	case ExprOp:
		return e.Op == o.Op && e.Left.Equal(*o.Left) && e.Right.Equal(*o.Right)
	default:
		return true
	}
}

// Params returns the parameter names mentioned in e, in order of first use.
func (e Expr) Params() []Id {
	var out []Id
	var walk func(Expr)
	walk = func(x Expr) {
		switch x.Kind {
		case ExprAbstract:
			for _, id := range out {
				if id == x.Name {
					return
				}
			}
			out = append(out, x.Name)
		case ExprOp:
			walk(*x.Left)
			walk(*x.Right)
		}
	}
	walk(e)
	return out
}

func fold(op Op, l, r Expr) Expr {
	if l.IsConcrete() && r.IsConcrete() {
		a, b := l.Value, r.Value
		switch op {
		case OpAdd:
			return Concrete(a + b)
		case OpSub:
			if a >= b {
				return Concrete(a - b)
			}
		case OpMul:
			return Concrete(a * b)
		case OpDiv:
			if b != 0 {
				return Concrete(a / b)
			}
		case OpMod:
			if b != 0 {
				return Concrete(a % b)
			}
		}
		return BinOp(op, l, r)
	}
	switch op {
	case OpAdd:
		if isZero(l) {
			return r
		}
		if isZero(r) {
			return l
		}
	case OpSub:
		if isZero(r) {
			return l
		}
		if l.Equal(r) {
			return Concrete(0)
		}
	case OpMul:
		if isZero(l) || isZero(r) {
			return Concrete(0)
		}
		if isOne(l) {
			return r
		}
		if isOne(r) {
			return l
		}
	}
	return BinOp(op, l, r)
}

func isZero(e Expr) bool { return e.Kind == ExprConcrete && e.Value == 0 }
func isOne(e Expr) bool  { return e.Kind == ExprConcrete && e.Value == 1 }

func (e Expr) String() string {
	var sb strings.Builder
	e.write(&sb, false)
	return sb.String()
}

func (e Expr) write(sb *strings.Builder, nested bool) {
	switch e.Kind {
	case ExprConcrete:
		sb.WriteString(strconv.FormatUint(e.Value, 10))
	case ExprAbstract:
		sb.WriteByte('#')
		sb.WriteString(string(e.Name))
	case ExprOp:
		if nested {
			sb.WriteByte('(')
		}
		e.Left.write(sb, true)
		sb.WriteByte(' ')
		sb.WriteString(e.Op.String())
		sb.WriteByte(' ')
		e.Right.write(sb, true)
		if nested {
			sb.WriteByte(')')
		}
	default:
		sb.WriteString("<invalid>")
	}
}
