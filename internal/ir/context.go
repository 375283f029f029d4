package ir

import (
	"iter"

	"filament/internal/source"
)

// Context owns every component of a program together with the position
// table and name interner used by their Info entries.
type Context struct {
	Files   *source.FileSet
	Strings *source.Interner

	comps  Store[CompIdx, *Component]
	byName map[string]CompIdx
}

// NewContext creates an empty context. A nil FileSet gets a fresh one.
func NewContext(files *source.FileSet) *Context {
	if files == nil {
		files = source.NewFileSet()
	}
	return &Context{
		Files:   files,
		Strings: source.NewInterner(),
		byName:  make(map[string]CompIdx),
	}
}

// NewComponent creates a component that shares the context's name interner.
// It still has to be registered with Add.
func (ctx *Context) NewComponent(name string) *Component {
	return newComponent(name, ctx.Strings)
}

// Add registers comp and returns its handle.
func (ctx *Context) Add(comp *Component) CompIdx {
	idx := ctx.comps.Add(comp)
	ctx.byName[comp.Name] = idx
	return idx
}

// Next returns the handle the next Add will return.
func (ctx *Context) Next() CompIdx { return ctx.comps.Next() }

// Get returns the component for idx.
func (ctx *Context) Get(idx CompIdx) *Component {
	c, ok := ctx.comps.Lookup(idx)
	if !ok || c == nil {
		panic(&InternalError{Component: "<context>", Msg: "unknown component handle"})
	}
	return c
}

// Lookup finds a component by name.
func (ctx *Context) Lookup(name string) (CompIdx, bool) {
	idx, ok := ctx.byName[name]
	return idx, ok
}

// Components iterates over all components in insertion order.
func (ctx *Context) Components() iter.Seq2[CompIdx, *Component] {
	return ctx.comps.All()
}

// Len returns the number of components.
func (ctx *Context) Len() int { return ctx.comps.Len() }

// ForeignPort resolves a port owned by another component.
func (ctx *Context) ForeignPort(f Foreign[PortIdx]) Port {
	return ctx.Get(f.Owner).Port(f.Key)
}

// ForeignParam resolves a parameter owned by another component.
func (ctx *Context) ForeignParam(f Foreign[ParamIdx]) Param {
	return ctx.Get(f.Owner).Param(f.Key)
}

// ForeignEvent resolves an event owned by another component.
func (ctx *Context) ForeignEvent(f Foreign[EventIdx]) Event {
	return ctx.Get(f.Owner).Event(f.Key)
}
