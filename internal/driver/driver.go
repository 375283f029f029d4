// Package driver runs the lowering pipeline: decode the front-end program,
// eliminate signature bundles, check the result and optionally build the
// arena IR.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/ir"
	"filament/internal/irbuild"
	"filament/internal/observ"
	"filament/internal/passes"
	"filament/internal/project"
	"filament/internal/source"
	"filament/internal/trace"
)

type Options struct {
	// Jobs bounds per-component parallelism. Zero means GOMAXPROCS.
	Jobs int
	// Validate runs passes.ValidateNoSigBundles on the result.
	Validate bool
	// BuildIR also builds the arena IR from the lowered program.
	BuildIR bool
	// Cache, when set, short-circuits lowering of inputs seen before.
	Cache *DiskCache
	// Files resolves the spans of diagnostics. Nil gets a fresh set.
	Files *source.FileSet
	// MaxDiagnostics caps the diagnostics kept in Result.Diags.
	MaxDiagnostics int
	// CrashDump receives the trace ring after an internal error.
	CrashDump io.Writer
}

// Result of one Lower call. Program is nil when lowering failed.
type Result struct {
	Key     project.Digest
	Program *core.Namespace
	IR      *ir.Context
	Cached  bool
	Diags   *diag.Bag
	Timings observ.Report
}

// Lower decodes input and lowers it. User errors end up in Result.Diags
// and make Lower return an error; an internal error in the IR is recovered
// and returned as an error wrapping *ir.InternalError.
func Lower(ctx context.Context, input []byte, opts Options) (res *Result, err error) {
	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = 100
	}
	res = &Result{Key: project.HashBytes(input), Diags: diag.NewBag(maxDiags)}
	if opts.Files == nil {
		opts.Files = source.NewFileSet()
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "lower", trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)
	timer := observ.NewTimer()
	defer func() {
		res.Timings = timer.Report()
		span.WithExtra("cached", strconv.FormatBool(res.Cached)).End("")
	}()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ie, ok := r.(*ir.InternalError)
		if !ok {
			panic(r)
		}
		err = internal(ctx, res, ie, opts.CrashDump)
	}()

	var ns *core.Namespace
	if hit, ok, cerr := opts.Cache.Get(res.Key); cerr == nil && ok {
		ns = hit
		res.Cached = true
		trace.Point(tracer, trace.ScopeDriver, "cache", "hit "+res.Key.String()[:12], span.ID())
	}

	if ns == nil {
		var decoded *core.Namespace
		err = timer.Time("decode", func() error {
			var derr error
			decoded, derr = core.Unmarshal(input)
			return derr
		})
		if err != nil {
			res.Diags.Add(diag.NewError(diag.InvalidFile, source.Unknown, err.Error()))
			return res, err
		}

		err = timer.Time("bundle_elim", func() error {
			var perr error
			ns, perr = passes.BundleElim(ctx, decoded, passes.Options{Jobs: opts.Jobs})
			return perr
		})
		if err != nil {
			res.Diags.Add(passDiagnostic(err))
			return res, err
		}

		if opts.Validate {
			if err = timer.Time("validate", func() error { return passes.ValidateNoSigBundles(ns) }); err != nil {
				return res, internal(ctx, res, err, opts.CrashDump)
			}
		}

		if perr := opts.Cache.Put(res.Key, ns); perr != nil {
			res.Diags.Add(diag.New(diag.SevWarning, diag.WriteError, source.Unknown, "cannot write cache: "+perr.Error()))
		}
	}
	res.Program = ns

	if opts.BuildIR {
		err = timer.Time("irbuild", func() error {
			var berr error
			res.IR, berr = irbuild.Build(ctx, ns, opts.Files, irbuild.Options{Jobs: opts.Jobs, MaxDiagnostics: maxDiags}, diag.BagReporter{Bag: res.Diags})
			return berr
		})
		if err != nil {
			var ie *ir.InternalError
			if errors.As(err, &ie) {
				return res, internal(ctx, res, ie, opts.CrashDump)
			}
			res.Program = nil
			return res, err
		}
	}
	return res, nil
}

func passDiagnostic(err error) diag.Diagnostic {
	var pe *passes.Error
	if errors.As(err, &pe) {
		return diag.NewError(diag.Misc, pe.Pos, pe.Error())
	}
	return diag.NewError(diag.Misc, source.Unknown, err.Error())
}

// internal records an internal error, dumps the recent trace events and
// discards partial results.
func internal(ctx context.Context, res *Result, cause error, dump io.Writer) error {
	res.Program, res.IR = nil, nil
	res.Diags.Add(diag.NewError(diag.Internal, source.Unknown, cause.Error()))
	if dump != nil {
		if ring, ok := trace.Ring(trace.FromContext(ctx)); ok {
			_, _ = fmt.Fprintln(dump, "recent trace events:")
			_ = ring.Dump(dump, trace.FormatText)
		}
	}
	return fmt.Errorf("driver: %w", cause)
}
