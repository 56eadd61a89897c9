package annotations

import (
	"fmt"
	"go/ast"
	"strings"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/selector"
	"tmplcheck/internal/template"
	"tmplcheck/internal/transform"
)

var (
	directiveFields = []string{"Selector", "Inputs", "Outputs", "ExportAs"}
	componentFields = []string{"Selector", "Template", "TemplateURL", "Inputs", "Outputs", "ExportAs", "Inline"}
)

// DirectiveAnalysis is the payload of directive and component traits.
type DirectiveAnalysis struct {
	Meta *scope.DirectiveMeta
	// Component only.
	Template *template.Template
	Source   TemplateSource
	Resource string // TemplateURL resolved against the declaring file
	Inline   bool   // check block goes into a shadow of the declaring file
}

// ComponentResolution is the payload of a resolved component.
type ComponentResolution struct {
	Scope  *scope.CompilationScope
	Module string // key of the declaring module, empty for orphans
}

type directiveHandler struct {
	component bool
}

func (h *directiveHandler) Name() string {
	if h.component {
		return "component"
	}
	return "directive"
}

func (h *directiveHandler) Detect(d *reflection.Declaration) (*reflection.Marker, bool) {
	return d.Marker(h.Name())
}

func (h *directiveHandler) Analyze(env *transform.Env, d *reflection.Declaration, m *reflection.Marker) (any, []diag.Diagnostic, error) {
	allowed := directiveFields
	if h.component {
		allowed = componentFields
	}
	f := readFields(env, d, m, allowed...)
	if _, ok := d.Spec.Type.(*ast.StructType); !ok {
		f.errorf(diag.AnlNotStruct, d.NameSpan(), "%s %s must be a struct type", h.Name(), d.Name)
		return nil, f.diags, nil
	}
	meta := &scope.DirectiveMeta{
		Ref:         d.Ref(),
		IsComponent: h.component,
		TypeParams:  scope.TypeParamsOf(d.TypeParams()),
	}
	if v, ok := f.str("Selector", true); ok {
		sel, err := selector.Parse(v.Str)
		if err != nil {
			f.errorf(diag.AnlInvalidSelector, v.Span, "%v", err)
		}
		meta.Selector = sel
	}
	structFields := make(map[string]bool)
	for name := range d.Fields() {
		structFields[name] = true
	}
	meta.Inputs = f.bindings("Inputs", diag.AnlUnknownInput, structFields)
	meta.Outputs = f.bindings("Outputs", diag.AnlUnknownOutput, structFields)
	if v, ok := f.str("ExportAs", false); ok {
		meta.ExportAs = strings.TrimSpace(v.Str)
	}
	a := &DirectiveAnalysis{Meta: meta}
	if h.component {
		if err := loadTemplate(f, a); err != nil {
			return nil, nil, err
		}
		a.Inline = f.boolean("Inline") || !d.Exported() || d.Package == "main"
	}
	if f.failed() {
		return nil, f.diags, nil
	}
	return a, f.diags, nil
}

func (h *directiveHandler) Register(env *transform.Env, _ *reflection.Declaration, analysis any) {
	env.Scopes.RegisterDirective(analysis.(*DirectiveAnalysis).Meta)
}

func (h *directiveHandler) Resolve(env *transform.Env, d *reflection.Declaration, _ any) (any, []diag.Diagnostic) {
	ds := multipleModules(env.Scopes, d)
	if !h.component {
		return nil, ds
	}
	res := &ComponentResolution{Scope: env.Scopes.ScopeForComponent(d.Key())}
	if res.Scope.Module != nil {
		res.Module = res.Scope.Module.Ref.Key()
	}
	return res, ds
}

// multipleModules warns when more than one module declares d; the first
// module in key order provides the scope.
func multipleModules(reg *scope.Registry, d *reflection.Declaration) []diag.Diagnostic {
	mods := reg.DeclaringModules(d.Key())
	if len(mods) < 2 {
		return nil
	}
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Ref.String())
	}
	w := diag.NewWarning(diag.ResMultipleModules, d.NameSpan(),
		fmt.Sprintf("%s is declared by %s, using the scope of %s", d.Name, strings.Join(names, ", "), names[0]))
	for _, m := range mods {
		for _, e := range m.Declarations {
			if e.Ref.Key() == d.Key() {
				w = w.WithNote(e.Span, "declared by "+m.Ref.String())
			}
		}
	}
	return []diag.Diagnostic{w}
}
