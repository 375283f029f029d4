package ir

import "fmt"

// Fact is a timing obligation between two time points. Facts are opaque to
// this package: they are discharged by the interval checker.
type Fact struct {
	Op     CmpOp
	Lhs    TimeIdx
	Rhs    TimeIdx
	Reason InfoIdx
}

// AddFact records that lhs op rhs must hold.
func (c *Component) AddFact(op CmpOp, lhs, rhs TimeIdx, reason InfoIdx) {
	c.Facts = append(c.Facts, Fact{Op: op, Lhs: lhs, Rhs: rhs, Reason: reason})
}

// FactString renders f using c's arenas.
func (c *Component) FactString(f Fact) string {
	return fmt.Sprintf("%s %s %s", c.TimeString(f.Lhs), f.Op, c.TimeString(f.Rhs))
}
