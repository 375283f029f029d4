package ir

// Time is a point in time: an event plus a symbolic offset.
type Time struct {
	Event  EventIdx
	Offset ExprIdx
}

// FoldWith substitutes parameters in the offset of t.
func (t TimeIdx) FoldWith(c *Component, subst SubstFn) TimeIdx {
	tm := c.Time(t)
	off := tm.Offset.FoldWith(c, subst)
	if off == tm.Offset {
		return t
	}
	return c.AddTime(Time{Event: tm.Event, Offset: off})
}

// TimeSubKind distinguishes the two forms of TimeSub.
type TimeSubKind uint8

const (
	// TimeSubUnit is a delay given directly as an expression.
	TimeSubUnit TimeSubKind = iota + 1
	// TimeSubSym is the symbolic distance between two time points.
	TimeSubSym
)

// TimeSub is a symbolic delay between time points.
type TimeSub struct {
	Kind TimeSubKind
	Unit ExprIdx
	L, R TimeIdx
}

// UnitDelay builds a delay of e cycles.
func UnitDelay(e ExprIdx) TimeSub {
	return TimeSub{Kind: TimeSubUnit, Unit: e}
}

// SymDelay builds the delay l - r.
func SymDelay(l, r TimeIdx) TimeSub {
	return TimeSub{Kind: TimeSubSym, L: l, R: r}
}

// FoldWith substitutes parameters in ts.
func (ts TimeSub) FoldWith(c *Component, subst SubstFn) TimeSub {
	switch ts.Kind {
	case TimeSubUnit:
		return UnitDelay(ts.Unit.FoldWith(c, subst))
	case TimeSubSym:
		return SymDelay(ts.L.FoldWith(c, subst), ts.R.FoldWith(c, subst))
	default:
		c.InternalError("unknown delay kind %d", ts.Kind)
		return ts
	}
}
