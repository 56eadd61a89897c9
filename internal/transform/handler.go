package transform

import (
	"tmplcheck/internal/diag"
	"tmplcheck/internal/partial"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/typecheck"
)

// Dependencies records file edges discovered by handlers.
type Dependencies interface {
	partial.DependencyRecorder
	AddResourceDependency(file, resource string)
}

// Env is what handlers may consult during one pass.
type Env struct {
	Host   *reflection.Host
	Eval   *partial.Evaluator
	Scopes *scope.Registry
	Deps   Dependencies
}

// Handler implements one marker kind. Analyze and Resolve report problems
// as diagnostics; a diagnostic of error severity moves the trait to the
// errored state. A non-nil error returned by Analyze aborts the pass; for
// template syntax errors it is a *StructuralParseError.
type Handler interface {
	// Name is the marker kind the handler owns.
	Name() string
	// Detect returns the marker that makes d a declaration of this kind.
	Detect(d *reflection.Declaration) (*reflection.Marker, bool)
	// Analyze returns a nil analysis without error diagnostics to decline
	// the declaration.
	Analyze(env *Env, d *reflection.Declaration, m *reflection.Marker) (any, []diag.Diagnostic, error)
	// Register publishes the analysis into env.Scopes. It runs for fresh and
	// carried records alike.
	Register(env *Env, d *reflection.Declaration, analysis any)
	Resolve(env *Env, d *reflection.Declaration, analysis any) (any, []diag.Diagnostic)
}

// TypeCheckHandler is a handler whose declarations own templates.
type TypeCheckHandler interface {
	Handler
	TypeCheck(c *typecheck.Context, d *reflection.Declaration, analysis, resolution any)
}
