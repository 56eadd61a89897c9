package transform

import (
	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
)

// State is the lifecycle position of a trait.
type State uint8

const (
	StatePending State = iota
	StateAnalyzed
	StateResolved
	StateSkipped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAnalyzed:
		return "analyzed"
	case StateResolved:
		return "resolved"
	case StateSkipped:
		return "skipped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Trait binds one declaration to the handler that detected it.
type Trait struct {
	Handler     Handler
	Marker      *reflection.Marker
	State       State
	Analysis    any
	Resolution  any
	Diagnostics []diag.Diagnostic
}

func (t *Trait) fail(ds []diag.Diagnostic) {
	t.Diagnostics = append(t.Diagnostics, ds...)
	t.State = StateErrored
}

// ClassRecord is what a pass knows about one marked declaration.
// Trait is nil when none of the declaration's markers names a handler.
type ClassRecord struct {
	Decl        *reflection.Declaration
	Trait       *Trait
	Diagnostics []diag.Diagnostic // scan problems: unknown or extra markers
}

// AllDiagnostics returns scan and trait diagnostics in that order.
func (r *ClassRecord) AllDiagnostics() []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), r.Diagnostics...)
	if r.Trait != nil {
		out = append(out, r.Trait.Diagnostics...)
	}
	return out
}

func hasErrors(ds []diag.Diagnostic) bool {
	for i := range ds {
		if ds[i].Severity >= diag.SevError {
			return true
		}
	}
	return false
}
