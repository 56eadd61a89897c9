package annotations

import (
	"path/filepath"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/source"
	"tmplcheck/internal/template"
	"tmplcheck/internal/transform"
	"tmplcheck/internal/typecheck"
)

var syntaxCodes = map[template.ErrorKind]diag.Code{
	template.ErrExpression:         diag.TplInvalidExpression,
	template.ErrUnclosed:           diag.TplUnclosedElement,
	template.ErrMismatched:         diag.TplMismatchedClose,
	template.ErrInterpolation:      diag.TplUnterminatedInterpolation,
	template.ErrAttribute:          diag.TplUnterminatedAttribute,
	template.ErrMalformedAttr:      diag.TplMalformedAttribute,
	template.ErrMultipleStructural: diag.TplMultipleStructural,
	template.ErrInvalidStructural:  diag.TplInvalidStructural,
	template.ErrUnknownStructural:  diag.TplUnknownStructural,
}

// TemplateSource maps template offsets onto source spans. Templates that
// are not a verbatim copy of one literal map every offset onto Whole.
type TemplateSource struct {
	File   source.FileID
	Offset int // file offset of template offset 0
	Exact  bool
	Whole  source.Span
}

func (s TemplateSource) Span(r template.Range) source.Span {
	if !s.Exact {
		return s.Whole
	}
	return source.SpanOf(s.File, s.Offset+r.Start, s.Offset+r.End)
}

type componentHandler struct {
	directiveHandler
}

func (h *componentHandler) TypeCheck(c *typecheck.Context, d *reflection.Declaration, analysis, resolution any) {
	a := analysis.(*DirectiveAnalysis)
	r := resolution.(*ComponentResolution)
	c.AddTemplate(typecheck.BlockRequest{
		Decl:     d,
		Template: a.Template,
		Span:     a.Source.Span,
		Scope:    r.Scope,
		Inline:   a.Inline,
	})
}

// loadTemplate fills the template of a component. Syntax errors end the
// pass with a *transform.StructuralParseError.
func loadTemplate(f *fields, a *DirectiveAnalysis) error {
	hasText, hasURL := f.has("Template"), f.has("TemplateURL")
	switch {
	case hasText && hasURL:
		f.errorf(diag.AnlConflictingTemplate, f.m.KindSpan, "component %s sets both Template and TemplateURL", f.d.Name)
		return nil
	case !hasText && !hasURL:
		f.errorf(diag.AnlMissingField, f.m.KindSpan, "component %s needs Template or TemplateURL", f.d.Name)
		return nil
	}

	var text string
	if hasText {
		v, ok := f.str("Template", true)
		if !ok {
			return nil
		}
		text = v.Str
		a.Source = TemplateSource{Whole: v.Span}
		if o := v.Origin; o != nil && o.Exact {
			a.Source.File, a.Source.Offset, a.Source.Exact = o.File, o.Offset, true
		}
	} else {
		v, ok := f.str("TemplateURL", true)
		if !ok {
			return nil
		}
		path := v.Str
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.d.Dir, path)
		}
		path = filepath.ToSlash(filepath.Clean(path))
		a.Resource = path
		// recorded before reading so that creating a missing file re-analyzes
		if f.env.Deps != nil {
			f.env.Deps.AddResourceDependency(f.d.Path, path)
		}
		prog := f.env.Host.Program()
		data, err := prog.ReadResource(path)
		if err != nil {
			f.errorf(diag.IOResourceLoadError, v.Span, "cannot load template of %s: %v", f.d.Name, err)
			return nil
		}
		id := prog.FileSet().Ensure(path, data, source.FileResource)
		a.Source = TemplateSource{File: id, Exact: true, Whole: source.SpanOf(id, 0, len(data))}
		text = string(data)
	}

	tpl, errs := template.Parse(text)
	if len(errs) > 0 {
		ds := make([]diag.Diagnostic, 0, len(errs))
		for _, e := range errs {
			ds = append(ds, diag.NewError(syntaxCodes[e.Kind], a.Source.Span(e.Span), e.Msg))
		}
		return &transform.StructuralParseError{File: f.d.Path, Decl: f.d.Key(), Diagnostics: ds}
	}
	a.Template = tpl
	return nil
}
