package core

import "fmt"

// Time is an event plus a parameter offset: 'G+#n.
type Time struct {
	Event  Id   `msgpack:"e"`
	Offset Expr `msgpack:"o"`
}

// At returns the time event+offset.
func At(event Id, offset Expr) Time { return Time{Event: event, Offset: offset} }

// Start returns the time of event itself.
func Start(event Id) Time { return At(event, Concrete(0)) }

// Resolve substitutes parameters in the offset.
func (t Time) Resolve(b *Binding) Time {
	return Time{Event: t.Event, Offset: t.Offset.Resolve(b)}
}

// ResolveEvent rebases t onto the time its event is bound to.
func (t Time) ResolveEvent(b *EventBinding) Time {
	base, ok := b.Get(t.Event)
	if !ok {
		return t
	}
	return Time{Event: base.Event, Offset: base.Offset.Add(t.Offset)}
}

func (t Time) Equal(o Time) bool {
	return t.Event == o.Event && t.Offset.Equal(o.Offset)
}

func (t Time) String() string {
	if t.Offset.Kind == 0 || isZero(t.Offset) {
		return "'" + string(t.Event)
	}
	return fmt.Sprintf("'%s+%s", t.Event, t.Offset)
}

// Range is the half-open interval [Start, End) of a signal's availability.
type Range struct {
	Start Time `msgpack:"s"`
	End   Time `msgpack:"e"`
}

// NewRange returns [start, end).
func NewRange(start, end Time) Range { return Range{Start: start, End: end} }

func (r Range) Resolve(b *Binding) Range {
	return Range{Start: r.Start.Resolve(b), End: r.End.Resolve(b)}
}

func (r Range) ResolveEvent(b *EventBinding) Range {
	return Range{Start: r.Start.ResolveEvent(b), End: r.End.ResolveEvent(b)}
}

func (r Range) Equal(o Range) bool { return r.Start.Equal(o.Start) && r.End.Equal(o.End) }

func (r Range) String() string { return fmt.Sprintf("@[%s, %s]", r.Start, r.End) }

// TimeSubKind discriminates TimeSub.
type TimeSubKind uint8

const (
	TimeSubUnit TimeSubKind = iota + 1
	TimeSubSym
)

// TimeSub is an event delay: either a plain expression or the symbolic
// difference of two times.
type TimeSub struct {
	Kind TimeSubKind `msgpack:"k"`
	Unit Expr        `msgpack:"u,omitempty"`
	L    Time        `msgpack:"l,omitempty"`
	R    Time        `msgpack:"r,omitempty"`
}

// UnitDelay returns a delay of e cycles.
func UnitDelay(e Expr) TimeSub { return TimeSub{Kind: TimeSubUnit, Unit: e} }

// SymDelay returns the delay |l - r|.
func SymDelay(l, r Time) TimeSub { return TimeSub{Kind: TimeSubSym, L: l, R: r} }

func (d TimeSub) Resolve(b *Binding) TimeSub {
	if d.Kind == TimeSubUnit {
		return UnitDelay(d.Unit.Resolve(b))
	}
	return SymDelay(d.L.Resolve(b), d.R.Resolve(b))
}

func (d TimeSub) String() string {
	if d.Kind == TimeSubUnit {
		return d.Unit.String()
	}
	return fmt.Sprintf("|%s - %s|", d.L, d.R)
}
