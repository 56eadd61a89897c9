package annotations

import (
	"fmt"
	"strings"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/partial"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/source"
	"tmplcheck/internal/transform"
)

// fields reads marker keys and collects the problems found on the way.
type fields struct {
	env   *transform.Env
	d     *reflection.Declaration
	m     *reflection.Marker
	frame partial.Frame
	diags []diag.Diagnostic
}

func readFields(env *transform.Env, d *reflection.Declaration, m *reflection.Marker, allowed ...string) *fields {
	f := &fields{env: env, d: d, m: m, frame: partial.MarkerFrame(d, m)}
	if m.Args == nil {
		return f
	}
	for i, key := range m.Keys() {
		elt := m.Args.Elts[i]
		switch {
		case key == "":
			f.errorf(diag.AnlInvalidMarker, m.SpanOf(elt), "marker arguments must be written as Key: value")
		case !contains(allowed, key):
			f.warnf(diag.AnlUnknownField, m.SpanOf(elt), "%s markers have no field %s (known: %s)", m.Kind, key, strings.Join(allowed, ", "))
		}
	}
	return f
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fields) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	f.diags = append(f.diags, diag.NewError(code, sp, fmt.Sprintf(format, args...)))
}

func (f *fields) warnf(code diag.Code, sp source.Span, format string, args ...any) {
	f.diags = append(f.diags, diag.NewWarning(code, sp, fmt.Sprintf(format, args...)))
}

func (f *fields) failed() bool {
	for i := range f.diags {
		if f.diags[i].Severity >= diag.SevError {
			return true
		}
	}
	return false
}

func (f *fields) has(key string) bool {
	_, ok := f.m.Field(key)
	return ok
}

func (f *fields) value(key string) (partial.Value, bool) {
	expr, ok := f.m.Field(key)
	if !ok {
		return partial.Value{}, false
	}
	return f.env.Eval.Eval(f.frame, expr), true
}

// expect reports v unless it has kind k.
func (f *fields) expect(key string, v partial.Value, k partial.Kind) bool {
	switch v.Kind {
	case k:
		return true
	case partial.KindDynamic:
		f.errorf(diag.AnlDynamicValue, v.Span, "%s must be statically known: %s", key, v.Reason)
	default:
		f.errorf(diag.AnlWrongValueType, v.Span, "%s must be a %s, got %s", key, k, v.Kind)
	}
	return false
}

func (f *fields) str(key string, required bool) (partial.Value, bool) {
	v, ok := f.value(key)
	if !ok {
		if required {
			f.errorf(diag.AnlMissingField, f.m.KindSpan, "%s marker of %s needs %s", f.m.Kind, f.d.Name, key)
		}
		return partial.Value{}, false
	}
	if !f.expect(key, v, partial.KindString) {
		return partial.Value{}, false
	}
	return v, true
}

func (f *fields) boolean(key string) bool {
	v, ok := f.value(key)
	if !ok || !f.expect(key, v, partial.KindBool) {
		return false
	}
	return v.Bool
}

func (f *fields) list(key string, elem partial.Kind) []partial.Value {
	v, ok := f.value(key)
	if !ok || !f.expect(key, v, partial.KindList) {
		return nil
	}
	out := make([]partial.Value, 0, len(v.List))
	for _, e := range v.List {
		if f.expect(key+" element", e, elem) {
			out = append(out, e)
		}
	}
	return out
}

func (f *fields) entries(key string) []scope.Entry {
	vals := f.list(key, partial.KindRef)
	out := make([]scope.Entry, 0, len(vals))
	for _, v := range vals {
		out = append(out, scope.Entry{Ref: v.Ref, Span: v.Span})
	}
	return out
}

// bindings reads "Field" and "alias: Field" entries; every Field must be a
// field of the struct.
func (f *fields) bindings(key string, code diag.Code, structFields map[string]bool) []scope.Binding {
	var out []scope.Binding
	for _, v := range f.list(key, partial.KindString) {
		name, field := v.Str, v.Str
		if alias, target, ok := strings.Cut(v.Str, ":"); ok {
			name, field = strings.TrimSpace(alias), strings.TrimSpace(target)
		}
		if name == "" || field == "" {
			f.errorf(diag.AnlWrongValueType, v.Span, "%s entry %q must be \"Field\" or \"alias: Field\"", key, v.Str)
			continue
		}
		if !structFields[field] {
			f.errorf(code, v.Span, "%s has no field %s", f.d.Name, field)
			continue
		}
		out = append(out, scope.Binding{Name: name, Field: field})
	}
	return out
}
