// Package trace is the logging and tracing layer of tmplcheck.
//
// Every phase of an analysis pass (reconcile, scan/analyze, resolve, scope
// dependency recording, type-check synthesis, diagnostic mapping) opens a span,
// and soft conditions that must not become user diagnostics (an abandoned check
// block, an unmapped checker diagnostic without an owner) are recorded as point
// events.
//
// # Usage
//
//	tmplcheck check --trace=- --trace-level=detail ./app
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes every event immediately (file or stderr)
//   - RingTracer: keeps the last N events for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits driver and pass boundaries, LevelDetail adds per-file events
// and soft warnings, LevelDebug adds per-declaration events.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "resolve", 0)
//	defer span.End("")
package trace
