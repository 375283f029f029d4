package core

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Print writes ns in surface syntax.
func Print(w io.Writer, ns *Namespace) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw}
	for _, imp := range ns.Imports {
		p.line(0, "import %q;", imp)
	}
	for _, ext := range ns.Externs {
		p.line(0, "extern %q {", ext.Path)
		for i := range ext.Sigs {
			p.line(1, "%s;", p.sig(&ext.Sigs[i]))
		}
		p.line(0, "}")
	}
	for i := range ns.Components {
		p.component(&ns.Components[i])
	}
	return bw.Flush()
}

// String renders a single component.
func (c *Component) String() string {
	var sb strings.Builder
	bw := bufio.NewWriter(&sb)
	p := &printer{w: bw}
	p.component(c)
	_ = bw.Flush()
	return sb.String()
}

type printer struct {
	w *bufio.Writer
}

func (p *printer) line(indent int, format string, args ...any) {
	for range indent {
		p.w.WriteString("  ")
	}
	fmt.Fprintf(p.w, format, args...)
	p.w.WriteByte('\n')
}

func (p *printer) component(c *Component) {
	p.line(0, "%s {", p.sig(&c.Sig))
	p.commands(1, c.Body)
	p.line(0, "}")
}

func (p *printer) sig(s *Signature) string {
	var sb strings.Builder
	sb.WriteString("comp ")
	sb.WriteString(string(s.Name))
	sb.WriteByte('<')
	for i, ev := range s.Events {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "'%s: %s", ev.Event, ev.Delay)
		if ev.Default != nil {
			fmt.Fprintf(&sb, " = %s", ev.Default)
		}
	}
	sb.WriteByte('>')
	if len(s.Params) > 0 {
		sb.WriteByte('[')
		for i, pb := range s.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(string(pb.Name))
			if pb.Default != nil {
				fmt.Fprintf(&sb, " = %s", pb.Default)
			}
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('(')
	first := true
	for _, d := range s.Interface {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s: interface['%s]", d.Name, d.Event)
	}
	for _, pd := range s.Inputs {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(portDefString(pd))
	}
	sb.WriteString(") -> (")
	for i, pd := range s.Outputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(portDefString(pd))
	}
	sb.WriteByte(')')
	if len(s.Facts) > 0 {
		sb.WriteString(" where ")
		for i, f := range s.Facts {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s %s %s", f.Left, f.Op, f.Right)
		}
	}
	return sb.String()
}

func portDefString(pd PortDef) string {
	if pd.IsBundle() {
		return bundleString(pd.Bundle)
	}
	return fmt.Sprintf("%s: %s %s", pd.Name, pd.Liveness, pd.Bitwidth)
}

func bundleString(b *Bundle) string {
	return fmt.Sprintf("%s[%s]: for<#%s> %s %s", b.Name, b.Typ.Len, b.Typ.Idx, b.Typ.Liveness, b.Typ.Bitwidth)
}

func (p *printer) commands(indent int, cmds []Command) {
	for _, c := range cmds {
		p.command(indent, c)
	}
}

func (p *printer) command(indent int, c Command) {
	switch c.Kind {
	case CmdInstance:
		in := c.Instance
		p.line(indent, "%s := new %s%s;", in.Name, in.Component, exprList(in.Bindings))
	case CmdInvoke:
		inv := c.Invoke
		times := make([]string, len(inv.AbstractVars))
		for i, t := range inv.AbstractVars {
			times[i] = t.String()
		}
		args := ""
		if inv.Ports != nil {
			ps := make([]string, len(inv.Ports))
			for i, pt := range inv.Ports {
				ps[i] = pt.String()
			}
			args = "(" + strings.Join(ps, ", ") + ")"
		}
		p.line(indent, "%s := %s<%s>%s;", inv.Name, inv.Instance, strings.Join(times, ", "), args)
	case CmdConnect:
		con := c.Connect
		if len(con.Guard) > 0 {
			gs := make([]string, len(con.Guard))
			for i, g := range con.Guard {
				gs[i] = g.String()
			}
			p.line(indent, "%s = %s ? %s;", con.Dst, strings.Join(gs, " | "), con.Src)
			return
		}
		p.line(indent, "%s = %s;", con.Dst, con.Src)
	case CmdForLoop:
		l := c.ForLoop
		p.line(indent, "for #%s in %s..%s {", l.Idx, l.Start, l.End)
		p.commands(indent+1, l.Body)
		p.line(indent, "}")
	case CmdIf:
		i := c.If
		p.line(indent, "if %s %s %s {", i.Cond.Left, i.Cond.Op, i.Cond.Right)
		p.commands(indent+1, i.Then)
		if len(i.Alt) > 0 {
			p.line(indent, "} else {")
			p.commands(indent+1, i.Alt)
		}
		p.line(indent, "}")
	case CmdFsm:
		f := c.Fsm
		p.line(indent, "fsm %s[%d](%s);", f.Name, f.States, f.Trigger)
	case CmdBundle:
		p.line(indent, "bundle %s;", bundleString(c.Bundle))
	case CmdFact:
		f := c.Fact
		kw := "assert"
		if f.Assume {
			kw = "assume"
		}
		p.line(indent, "%s %s %s %s;", kw, f.Left, f.Op, f.Right)
	default:
		p.line(indent, "<unknown command %d>;", c.Kind)
	}
}

func exprList(es []Expr) string {
	if len(es) == 0 {
		return ""
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
