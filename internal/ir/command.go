package ir

// Command is a statement in the body of a component. The set of commands is
// closed; consumers switch over the concrete types.
type Command interface {
	command()
}

// InstCmd declares an instance.
type InstCmd struct {
	Inst InstIdx
}

// InvCmd declares an invocation.
type InvCmd struct {
	Inv InvIdx
}

// BundleDef declares a local bundle.
type BundleDef struct {
	Port PortIdx
}

// Connect is a point-to-point wire from Src to Dst.
type Connect struct {
	Dst  Access
	Src  Access
	Info InfoIdx
}

// Loop repeats Body for Index in [Start, End).
type Loop struct {
	Index ParamIdx
	Start ExprIdx
	End   ExprIdx
	Body  []Command
}

// CmpOp is a comparison between expressions or times.
type CmpOp uint8

const (
	CmpGt CmpOp = iota + 1
	CmpGte
	CmpEq
)

func (op CmpOp) String() string {
	switch op {
	case CmpGt:
		return ">"
	case CmpGte:
		return ">="
	case CmpEq:
		return "=="
	default:
		return "?"
	}
}

// Cond is a comparison between two expressions.
type Cond struct {
	Op       CmpOp
	Lhs, Rhs ExprIdx
}

// If selects Then or Alt depending on Cond.
type If struct {
	Cond Cond
	Then []Command
	Alt  []Command
}

func (*InstCmd) command()   {}
func (*InvCmd) command()    {}
func (*BundleDef) command() {}
func (*Connect) command()   {}
func (*Loop) command()      {}
func (*If) command()        {}
