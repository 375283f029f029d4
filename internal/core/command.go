package core

import "filament/internal/source"

// CommandKind discriminates Command.
type CommandKind uint8

const (
	CmdInstance CommandKind = iota + 1
	CmdInvoke
	CmdConnect
	CmdForLoop
	CmdIf
	CmdFsm
	CmdBundle
	CmdFact
)

func (k CommandKind) String() string {
	switch k {
	case CmdInstance:
		return "instance"
	case CmdInvoke:
		return "invoke"
	case CmdConnect:
		return "connect"
	case CmdForLoop:
		return "for"
	case CmdIf:
		return "if"
	case CmdFsm:
		return "fsm"
	case CmdBundle:
		return "bundle"
	case CmdFact:
		return "fact"
	default:
		return "unknown"
	}
}

// Command is one statement of a component body. Exactly the field named by
// Kind is set.
type Command struct {
	Kind     CommandKind `msgpack:"k"`
	Instance *Instance   `msgpack:"inst,omitempty"`
	Invoke   *Invoke     `msgpack:"inv,omitempty"`
	Connect  *Connect    `msgpack:"conn,omitempty"`
	ForLoop  *ForLoop    `msgpack:"for,omitempty"`
	If       *If         `msgpack:"if,omitempty"`
	Fsm      *Fsm        `msgpack:"fsm,omitempty"`
	Bundle   *Bundle     `msgpack:"bundle,omitempty"`
	Fact     *Fact       `msgpack:"fact,omitempty"`
}

// Instance creates an instance of Component with Bindings for its
// parameters.
type Instance struct {
	Name      Id          `msgpack:"name"`
	Component Id          `msgpack:"comp"`
	Bindings  []Expr      `msgpack:"binds,omitempty"`
	Pos       source.Span `msgpack:"pos"`
}

// Invoke schedules Instance at the times in AbstractVars, one per event of
// the instantiated component. Ports, when present, are the input arguments.
type Invoke struct {
	Name         Id          `msgpack:"name"`
	Instance     Id          `msgpack:"inst"`
	AbstractVars []Time      `msgpack:"times"`
	Ports        []Port      `msgpack:"ports,omitempty"`
	Pos          source.Span `msgpack:"pos"`
}

// Connect drives Dst from Src. A non-empty Guard is a disjunction of
// one-bit ports.
type Connect struct {
	Dst   Port        `msgpack:"dst"`
	Src   Port        `msgpack:"src"`
	Guard []Port      `msgpack:"guard,omitempty"`
	Pos   source.Span `msgpack:"pos"`
}

// ForLoop repeats Body for Idx in [Start, End).
type ForLoop struct {
	Idx   Id        `msgpack:"idx"`
	Start Expr      `msgpack:"start"`
	End   Expr      `msgpack:"end"`
	Body  []Command `msgpack:"body"`
}

// OrderOp compares two parameter expressions or times.
type OrderOp uint8

const (
	OrderGt OrderOp = iota + 1
	OrderGte
	OrderEq
)

func (o OrderOp) String() string {
	switch o {
	case OrderGt:
		return ">"
	case OrderGte:
		return ">="
	case OrderEq:
		return "=="
	default:
		return "?"
	}
}

// OrderConstraint is Left Op Right.
type OrderConstraint struct {
	Left  Expr    `msgpack:"l"`
	Right Expr    `msgpack:"r"`
	Op    OrderOp `msgpack:"op"`
}

// If selects Then or Alt depending on Cond.
type If struct {
	Cond OrderConstraint `msgpack:"cond"`
	Then []Command       `msgpack:"then"`
	Alt  []Command       `msgpack:"alt,omitempty"`
}

// Fsm is a shift-register state machine with States states driven by
// Trigger.
type Fsm struct {
	Name    Id          `msgpack:"name"`
	States  uint64      `msgpack:"states"`
	Trigger Port        `msgpack:"trigger"`
	Pos     source.Span `msgpack:"pos"`
}

// Fact is an assumption or an assertion about two times.
type Fact struct {
	Assume bool        `msgpack:"assume"`
	Left   Time        `msgpack:"l"`
	Right  Time        `msgpack:"r"`
	Op     OrderOp     `msgpack:"op"`
	Pos    source.Span `msgpack:"pos"`
}

func InstanceCmd(i Instance) Command { return Command{Kind: CmdInstance, Instance: &i} }
func InvokeCmd(i Invoke) Command     { return Command{Kind: CmdInvoke, Invoke: &i} }
func ConnectCmd(c Connect) Command   { return Command{Kind: CmdConnect, Connect: &c} }
func ForLoopCmd(l ForLoop) Command   { return Command{Kind: CmdForLoop, ForLoop: &l} }
func IfCmd(i If) Command             { return Command{Kind: CmdIf, If: &i} }
func FsmCmd(f Fsm) Command           { return Command{Kind: CmdFsm, Fsm: &f} }
func BundleCmd(b Bundle) Command     { return Command{Kind: CmdBundle, Bundle: &b} }
func FactCmd(f Fact) Command         { return Command{Kind: CmdFact, Fact: &f} }

// Connection is shorthand for an unguarded connect.
func Connection(dst, src Port) Command {
	return ConnectCmd(Connect{Dst: dst, Src: src, Pos: dst.Pos})
}

// Component is a signature with its body.
type Component struct {
	Sig  Signature `msgpack:"sig"`
	Body []Command `msgpack:"body"`
}

// Extern is a set of signatures implemented in the file at Path.
type Extern struct {
	Path string      `msgpack:"path"`
	Sigs []Signature `msgpack:"sigs"`
}

// Namespace is a whole program.
type Namespace struct {
	Imports    []string    `msgpack:"imports,omitempty"`
	Externs    []Extern    `msgpack:"externs,omitempty"`
	Components []Component `msgpack:"comps"`
}

// Signatures returns every extern and component signature by name.
func (ns *Namespace) Signatures() map[Id]*Signature {
	out := make(map[Id]*Signature)
	for i := range ns.Externs {
		for j := range ns.Externs[i].Sigs {
			s := &ns.Externs[i].Sigs[j]
			out[s.Name] = s
		}
	}
	for i := range ns.Components {
		s := &ns.Components[i].Sig
		out[s.Name] = s
	}
	return out
}

// Walk calls f on every command of body, descending into loops and
// conditionals before visiting their bodies.
func Walk(body []Command, f func(Command)) {
	for _, c := range body {
		f(c)
		switch c.Kind {
		case CmdForLoop:
			Walk(c.ForLoop.Body, f)
		case CmdIf:
			Walk(c.If.Then, f)
			Walk(c.If.Alt, f)
		}
	}
}
