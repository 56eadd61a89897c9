package annotations

import (
	"fmt"
	"go/token"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/transform"
)

type pipeHandler struct{}

func (pipeHandler) Name() string { return "pipe" }

func (pipeHandler) Detect(d *reflection.Declaration) (*reflection.Marker, bool) {
	return d.Marker("pipe")
}

func (pipeHandler) Analyze(env *transform.Env, d *reflection.Declaration, m *reflection.Marker) (any, []diag.Diagnostic, error) {
	f := readFields(env, d, m, "Name")
	v, ok := f.str("Name", true)
	if ok && !token.IsIdentifier(v.Str) {
		f.errorf(diag.AnlWrongValueType, v.Span, "pipe name %q is not an identifier", v.Str)
	}
	if f.failed() {
		return nil, f.diags, nil
	}
	return &scope.PipeMeta{Ref: d.Ref(), Name: v.Str, TypeParams: scope.TypeParamsOf(d.TypeParams())}, f.diags, nil
}

func (pipeHandler) Register(env *transform.Env, _ *reflection.Declaration, analysis any) {
	env.Scopes.RegisterPipe(analysis.(*scope.PipeMeta))
}

func (pipeHandler) Resolve(env *transform.Env, d *reflection.Declaration, _ any) (any, []diag.Diagnostic) {
	ds := multipleModules(env.Scopes, d)
	if !env.Host.HasMethod(d, "Transform") {
		ds = append(ds, diag.NewError(diag.ResPipeMissingTransform, d.NameSpan(),
			fmt.Sprintf("pipe %s has no Transform method", d.Name)))
	}
	return nil, ds
}
