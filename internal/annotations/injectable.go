package annotations

import (
	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/transform"
)

// InjectableAnalysis is the payload of an injectable trait.
type InjectableAnalysis struct {
	ProvidedIn string
}

type injectableHandler struct{}

func (injectableHandler) Name() string { return "injectable" }

func (injectableHandler) Detect(d *reflection.Declaration) (*reflection.Marker, bool) {
	return d.Marker("injectable")
}

func (injectableHandler) Analyze(env *transform.Env, d *reflection.Declaration, m *reflection.Marker) (any, []diag.Diagnostic, error) {
	f := readFields(env, d, m, "ProvidedIn")
	a := &InjectableAnalysis{}
	if v, ok := f.str("ProvidedIn", false); ok {
		switch v.Str {
		case "", "root", "platform", "any":
			a.ProvidedIn = v.Str
		default:
			f.errorf(diag.AnlInvalidProvidedIn, v.Span, "ProvidedIn must be \"root\", \"platform\" or \"any\", got %q", v.Str)
		}
	}
	if f.failed() {
		return nil, f.diags, nil
	}
	return a, f.diags, nil
}

func (injectableHandler) Register(*transform.Env, *reflection.Declaration, any) {}

func (injectableHandler) Resolve(*transform.Env, *reflection.Declaration, any) (any, []diag.Diagnostic) {
	return nil, nil
}
