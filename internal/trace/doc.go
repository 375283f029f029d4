// Package trace records what the lowering pipeline is doing and for how long.
//
// # Usage
//
//	filament lower --trace=- --trace-level=detail prog.msgpack
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (file or stderr)
//   - RingTracer: keeps the last events in memory for crash dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Levels off, error, phase, detail and debug choose which scopes are
// emitted. ScopeDriver covers a whole command, ScopePass one pass over the
// program, ScopeModule one component and ScopeNode a single command inside
// a component body. At level error nothing is streamed; the ring is only
// dumped when the driver recovers an internal error.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//	span := trace.Begin(t, trace.ScopePass, "bundle_elim", parentID)
//	defer span.End("")
package trace
