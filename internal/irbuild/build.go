// Package irbuild builds the arena IR from a lowered core program.
//
// Components are built callees first so an instance can refer to the
// signature of the component it instantiates. Components in the same
// instantiation wave do not depend on each other and are built in
// parallel.
package irbuild

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/ir"
	"filament/internal/project/dag"
	"filament/internal/source"
	"filament/internal/trace"
)

// ErrDiagnostics is returned when Build reported errors to its reporter.
var ErrDiagnostics = errors.New("irbuild: program has errors")

type Options struct {
	// Jobs bounds the components built at once. Zero means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the diagnostics kept per component.
	MaxDiagnostics int
}

// callee is what users of a built component see of it.
type callee struct {
	idx    ir.CompIdx
	sig    *core.Signature
	params []ir.ParamIdx
	ports  map[core.Id]ir.PortIdx
}

// Build lowers ns into a fresh ir.Context that owns fs. Name resolution
// problems are reported to r and make Build return ErrDiagnostics.
func Build(ctx context.Context, ns *core.Namespace, fs *source.FileSet, opts Options, r diag.Reporter) (*ir.Context, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "irbuild", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = 100
	}

	bag := diag.NewBag(maxDiags)
	nodes := dag.Nodes(ns)
	idx := dag.BuildIndex(nodes)
	g := dag.BuildGraph(idx, nodes, diag.BagReporter{Bag: bag})
	topo := dag.ToposortKahn(g)
	dag.ReportCycles(idx, g, topo, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		forward(bag, r)
		return nil, ErrDiagnostics
	}

	sigs := ns.Signatures()
	bodies := make(map[core.Id][]core.Command, len(ns.Components))
	for i := range ns.Components {
		bodies[ns.Components[i].Sig.Name] = ns.Components[i].Body
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	out := ir.NewContext(fs)
	built := make(map[core.Id]*callee, len(idx.IDToName))
	for wave, batch := range topo.Batches {
		comps := make([]*ir.Component, len(batch))
		infos := make([]*callee, len(batch))
		bags := make([]*diag.Bag, len(batch))

		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(jobs)
		for i, id := range batch {
			node := g.Nodes[id]
			eg.Go(func() (err error) {
				if err := egctx.Err(); err != nil {
					return err
				}
				defer func() {
					if r := recover(); r != nil {
						ie, ok := r.(*ir.InternalError)
						if !ok {
							panic(r)
						}
						err = ie
					}
				}()
				cspan := trace.Begin(tracer, trace.ScopeModule, "component:"+string(node.Name), span.ID())
				bags[i] = diag.NewBag(maxDiags)
				cb := newCompBuilder(node.Name, sigs[node.Name], built, bags[i])
				cb.c.IsExtern = node.Extern
				cb.signature()
				if !node.Extern {
					cb.c.Cmds = cb.commands(bodies[node.Name])
				}
				comps[i], infos[i] = cb.c, cb.self()
				cspan.WithExtra("wave", strconv.Itoa(wave)).End("")
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		for i := range batch {
			bag.Merge(bags[i])
			infos[i].idx = out.Add(comps[i])
			built[core.Id(comps[i].Name)] = infos[i]
		}
	}

	forward(bag, r)
	if bag.HasErrors() {
		return nil, ErrDiagnostics
	}
	span.WithExtra("components", strconv.Itoa(out.Len()))
	return out, nil
}

// MustBuild is Build for tests and tools that start from a known-good
// program.
func MustBuild(ns *core.Namespace) *ir.Context {
	bag := diag.NewBag(100)
	ctx, err := Build(context.Background(), ns, nil, Options{Jobs: 1}, diag.BagReporter{Bag: bag})
	if err != nil {
		panic(fmt.Errorf("%w: %w", err, bag.Err()))
	}
	return ctx
}

func forward(bag *diag.Bag, r diag.Reporter) {
	if r == nil {
		return
	}
	bag.Sort()
	for _, d := range bag.Items() {
		r.Report(d)
	}
}
