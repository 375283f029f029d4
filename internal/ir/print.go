package ir

import (
	"fmt"
	"io"
	"strings"
)

// ExprString renders e using parameter names where known.
func (c *Component) ExprString(e ExprIdx) string {
	ex := c.Expr(e)
	switch ex.Kind {
	case ExprConcrete:
		return fmt.Sprintf("%d", ex.Value)
	case ExprParam:
		return c.ParamName(ex.Param)
	case ExprBin:
		return c.operand(ex.Lhs) + " " + ex.Op.String() + " " + c.operand(ex.Rhs)
	default:
		return "?"
	}
}

func (c *Component) operand(e ExprIdx) string {
	if c.Expr(e).Kind == ExprBin {
		return "(" + c.ExprString(e) + ")"
	}
	return c.ExprString(e)
}

// ParamName returns the source name of p, or a synthetic one.
func (c *Component) ParamName(p ParamIdx) string {
	if name := c.NameOf(c.Info(c.Param(p).Info).Name); name != "" {
		return "#" + name
	}
	return fmt.Sprintf("#p%d", p)
}

// EventName returns the source name of ev, or a synthetic one.
func (c *Component) EventName(ev EventIdx) string {
	if name := c.NameOf(c.Info(c.Event(ev).Info).Name); name != "" {
		return "'" + name
	}
	return fmt.Sprintf("'e%d", ev)
}

// PortName returns the source name of p, or a synthetic one.
func (c *Component) PortName(p PortIdx) string {
	if name := c.NameOf(c.Info(c.Port(p).Info).Name); name != "" {
		return name
	}
	return fmt.Sprintf("port%d", p)
}

// TimeString renders a time point as 'G+offset.
func (c *Component) TimeString(t TimeIdx) string {
	tm := c.Time(t)
	if v, ok := tm.Offset.AsConcrete(c); ok && v == 0 {
		return c.EventName(tm.Event)
	}
	return c.EventName(tm.Event) + "+" + c.operand(tm.Offset)
}

// RangeString renders r as @[start, end].
func (c *Component) RangeString(r Range) string {
	return "@[" + c.TimeString(r.Start) + ", " + c.TimeString(r.End) + "]"
}

// LivenessString renders l as for<#i>[N] @[start, end].
func (c *Component) LivenessString(l Liveness) string {
	var sb strings.Builder
	if len(l.Idxs) > 0 {
		names := make([]string, len(l.Idxs))
		for i, p := range l.Idxs {
			names[i] = c.ParamName(p)
		}
		sb.WriteString("for<" + strings.Join(names, ", ") + ">")
	}
	for _, n := range l.Lens {
		sb.WriteString("[" + c.ExprString(n) + "]")
	}
	sb.WriteString(" ")
	sb.WriteString(c.RangeString(l.Range))
	return sb.String()
}

// AccessString renders a port access.
func (c *Component) AccessString(a Access) string {
	var sb strings.Builder
	sb.WriteString(c.PortName(a.Port))
	for _, r := range a.Ranges {
		if UnitRange(c, r.Start, r.End) {
			sb.WriteString("{" + c.ExprString(r.Start) + "}")
			continue
		}
		sb.WriteString("{" + c.ExprString(r.Start) + ".." + c.ExprString(r.End) + "}")
	}
	return sb.String()
}

// Printer dumps components in a textual form.
type Printer struct {
	w      io.Writer
	ctx    *Context
	indent int
	err    error
}

// NewPrinter creates a printer. ctx is used to name instantiated components
// and may be nil.
func NewPrinter(w io.Writer, ctx *Context) *Printer {
	return &Printer{w: w, ctx: ctx}
}

// Dump writes every component of ctx.
func Dump(w io.Writer, ctx *Context) error {
	p := NewPrinter(w, ctx)
	for _, c := range ctx.Components() {
		if err := p.PrintComponent(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s"+format, append([]any{strings.Repeat("  ", p.indent)}, args...)...)
}

// PrintComponent prints a single component.
func (p *Printer) PrintComponent(c *Component) error {
	kw := "comp"
	if c.IsExtern {
		kw = "extern comp"
	}
	p.printf("%s %s {\n", kw, c.Name)
	p.indent++
	for idx, prm := range c.Params().All() {
		p.printf("param %s: %s;\n", c.ParamName(idx), prm.Owner)
	}
	for idx, ev := range c.Events().All() {
		iface := ""
		if ev.HasInterface {
			iface = " interface"
		}
		p.printf("event %s: %s%s;\n", c.EventName(idx), c.delayString(ev.Delay), iface)
	}
	for idx, port := range c.Ports().All() {
		p.printf("%s %s: %s %s;\n", port.Owner, c.PortName(idx), c.LivenessString(port.Live), c.ExprString(port.Width))
	}
	for idx, inst := range c.Instances().All() {
		args := make([]string, len(inst.Params))
		for i, a := range inst.Params {
			args[i] = c.ExprString(a)
		}
		p.printf("inst%d := %s[%s];\n", idx, p.compName(inst.Comp), strings.Join(args, ", "))
	}
	for idx, inv := range c.Invokes().All() {
		times := make([]string, len(inv.Events))
		for i, t := range inv.Events {
			times[i] = c.TimeString(t)
		}
		p.printf("inv%d := inst%d<%s>;\n", idx, inv.Inst, strings.Join(times, ", "))
	}
	p.printCmds(c, c.Cmds)
	for _, f := range c.Facts {
		p.printf("fact %s;\n", c.FactString(f))
	}
	p.indent--
	p.printf("}\n")
	return p.err
}

func (p *Printer) compName(idx CompIdx) string {
	if p.ctx == nil {
		return fmt.Sprintf("comp%d", idx)
	}
	return p.ctx.Get(idx).Name
}

func (c *Component) delayString(d TimeSub) string {
	switch d.Kind {
	case TimeSubUnit:
		return c.ExprString(d.Unit)
	case TimeSubSym:
		return "|" + c.TimeString(d.L) + " - " + c.TimeString(d.R) + "|"
	default:
		return "?"
	}
}

func (p *Printer) printCmds(c *Component, cmds []Command) {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case *InstCmd, *InvCmd, *BundleDef:
			// declarations are printed with the arenas
		case *Connect:
			p.printf("%s = %s;\n", c.AccessString(cmd.Dst), c.AccessString(cmd.Src))
		case *Loop:
			p.printf("for %s in %s..%s {\n", c.ParamName(cmd.Index), c.ExprString(cmd.Start), c.ExprString(cmd.End))
			p.indent++
			p.printCmds(c, cmd.Body)
			p.indent--
			p.printf("}\n")
		case *If:
			p.printf("if %s %s %s {\n", c.ExprString(cmd.Cond.Lhs), cmd.Cond.Op, c.ExprString(cmd.Cond.Rhs))
			p.indent++
			p.printCmds(c, cmd.Then)
			p.indent--
			p.printf("} else {\n")
			p.indent++
			p.printCmds(c, cmd.Alt)
			p.indent--
			p.printf("}\n")
		}
	}
}
