// Package diag defines the diagnostic model shared by every analysis phase.
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string id
//     such as TPL2001 or TCB5001.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary – the canonical source.Span pointing to the issue.
//   - Notes – optional secondary spans for additional context.
//   - Template – set only for diagnostics reverse-mapped from a synthetic
//     type-check unit; it names the owning declaration and its file so that a
//     per-file query finds template diagnostics whose template lives elsewhere.
//
// Phases emit through a Reporter (SliceReporter, DedupReporter)
// and never format anything themselves; rendering lives in internal/diagfmt.
//
// Code ranges:
//
//	1xxx IO   resource and file loading
//	2xxx TPL  template syntax (fatal for the pass)
//	3xxx ANL  marker analysis
//	4xxx RES  scope resolution
//	5xxx TCB  template type-checking
//	6xxx OBS  observability
package diag
