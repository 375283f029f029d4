package ir

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprConcrete is an integer constant.
	ExprConcrete ExprKind = iota + 1
	// ExprParam is a reference to a parameter.
	ExprParam
	// ExprBin is a binary operation over two expressions.
	ExprBin
)

// Op enumerates binary operators on expressions.
type Op uint8

const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
)

// String returns the operator symbol.
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

// Expr is an interned expression node. It is a plain comparable value so
// structurally equal expressions share a handle.
type Expr struct {
	Kind  ExprKind
	Value uint64   // ExprConcrete
	Param ParamIdx // ExprParam
	Op    Op       // ExprBin
	Lhs   ExprIdx  // ExprBin
	Rhs   ExprIdx  // ExprBin
}

// Concrete builds a constant expression.
func Concrete(v uint64) Expr {
	return Expr{Kind: ExprConcrete, Value: v}
}

// ParamRef builds a parameter reference.
func ParamRef(p ParamIdx) Expr {
	return Expr{Kind: ExprParam, Param: p}
}

// Bin builds a binary operation.
func Bin(op Op, lhs, rhs ExprIdx) Expr {
	return Expr{Kind: ExprBin, Op: op, Lhs: lhs, Rhs: rhs}
}

// Expr returns an expression that refers to this parameter.
func (p ParamIdx) Expr(c *Component) ExprIdx {
	return c.AddExpr(ParamRef(p))
}

// AsConcrete returns the constant value of e, if it is a constant.
func (e ExprIdx) AsConcrete(c *Component) (uint64, bool) {
	ex := c.Expr(e)
	if ex.Kind != ExprConcrete {
		return 0, false
	}
	return ex.Value, true
}

// Add builds e + rhs, folding constants and the additive identity.
func (e ExprIdx) Add(rhs ExprIdx, c *Component) ExprIdx {
	return c.bin(OpAdd, e, rhs)
}

// Sub builds e - rhs. Constants are folded only when the result stays
// non-negative.
func (e ExprIdx) Sub(rhs ExprIdx, c *Component) ExprIdx {
	return c.bin(OpSub, e, rhs)
}

// Mul builds e * rhs.
func (e ExprIdx) Mul(rhs ExprIdx, c *Component) ExprIdx {
	return c.bin(OpMul, e, rhs)
}

// bin interns a binary operation after local simplification.
func (c *Component) bin(op Op, lhs, rhs ExprIdx) ExprIdx {
	l, lok := lhs.AsConcrete(c)
	r, rok := rhs.AsConcrete(c)
	if lok && rok {
		switch op {
		case OpAdd:
			return c.Num(l + r)
		case OpSub:
			if l >= r {
				return c.Num(l - r)
			}
		case OpMul:
			return c.Num(l * r)
		case OpDiv:
			if r != 0 {
				return c.Num(l / r)
			}
		case OpMod:
			if r != 0 {
				return c.Num(l % r)
			}
		}
	}
	switch op {
	case OpAdd:
		if lok && l == 0 {
			return rhs
		}
		if rok && r == 0 {
			return lhs
		}
	case OpSub:
		if rok && r == 0 {
			return lhs
		}
		if lhs == rhs {
			return c.Num(0)
		}
	case OpMul:
		if lok && l == 1 {
			return rhs
		}
		if rok && r == 1 {
			return lhs
		}
		if (lok && l == 0) || (rok && r == 0) {
			return c.Num(0)
		}
	}
	return c.AddExpr(Bin(op, lhs, rhs))
}

// FoldWith substitutes parameters in e.
func (e ExprIdx) FoldWith(c *Component, subst SubstFn) ExprIdx {
	ex := c.Expr(e)
	switch ex.Kind {
	case ExprConcrete:
		return e
	case ExprParam:
		if to, ok := subst(ex.Param); ok {
			return to
		}
		return e
	case ExprBin:
		lhs := ex.Lhs.FoldWith(c, subst)
		rhs := ex.Rhs.FoldWith(c, subst)
		if lhs == ex.Lhs && rhs == ex.Rhs {
			return e
		}
		return c.bin(ex.Op, lhs, rhs)
	default:
		c.InternalError("unknown expression kind %d", ex.Kind)
		return e
	}
}
