// Package diag defines the diagnostic model shared by every lowering stage.
//
// # Purpose
//
//   - Provide deterministic data structures for user-facing findings: names
//     that do not resolve, names bound twice, timing facts that could not be
//     proven, unreadable inputs and unwritable outputs.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does not format anything or touch IO. Rendering lives in
// internal/diagfmt; the driver decides when a bag aborts compilation.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short human oriented text.
//   - Primary span: the source.Span pointing at the issue. Generated code
//     carries source.Unknown.
//   - Notes: optional secondary spans, e.g. "previously bound here".
//
// Internal-consistency failures are not diagnostics. They panic with
// ir.InternalError and the driver turns them into a single Internal entry.
//
// # Emitting diagnostics
//
// Stages report through a Reporter. BagReporter collects into a Bag, and
// DedupReporter drops repeats of the same code, span and message, which
// happens when one undefined name is used many times.
package diag
