package annotations

import (
	"fmt"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/source"
	"tmplcheck/internal/transform"
)

type moduleHandler struct{}

func (moduleHandler) Name() string { return "module" }

func (moduleHandler) Detect(d *reflection.Declaration) (*reflection.Marker, bool) {
	return d.Marker("module")
}

func (moduleHandler) Analyze(env *transform.Env, d *reflection.Declaration, m *reflection.Marker) (any, []diag.Diagnostic, error) {
	f := readFields(env, d, m, "Declarations", "Imports", "Exports")
	meta := &scope.ModuleMeta{
		Ref:          d.Ref(),
		Declarations: f.entries("Declarations"),
		Imports:      f.entries("Imports"),
		Exports:      f.entries("Exports"),
	}
	if f.failed() {
		return nil, f.diags, nil
	}
	return meta, f.diags, nil
}

func (moduleHandler) Register(env *transform.Env, _ *reflection.Declaration, analysis any) {
	env.Scopes.RegisterModule(analysis.(*scope.ModuleMeta))
}

// Resolve validates the module lists against the registry and returns the
// module's scopes.
func (moduleHandler) Resolve(env *transform.Env, d *reflection.Declaration, analysis any) (any, []diag.Diagnostic) {
	meta := analysis.(*scope.ModuleMeta)
	var ds []diag.Diagnostic
	unknown := make(map[source.Span]bool)
	for _, list := range [][]scope.Entry{meta.Declarations, meta.Imports, meta.Exports} {
		for _, e := range list {
			if e.Ref.File != "" {
				continue
			}
			unknown[e.Span] = true
			ds = append(ds, diag.NewError(diag.ResUnknownReference, e.Span,
				fmt.Sprintf("%s does not name a type declared in this module", e.Ref)))
		}
	}
	sc, problems := env.Scopes.ModuleScope(d.Key())
	for _, p := range problems {
		if unknown[p.Span] {
			continue
		}
		ds = append(ds, diag.NewError(p.Code, p.Span, p.Message))
	}
	return sc, ds
}
