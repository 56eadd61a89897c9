package annotations

import (
	"errors"
	"slices"
	"testing"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/host/gohost"
	"tmplcheck/internal/partial"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/source"
	"tmplcheck/internal/transform"
)

const uiSource = `package ui

//tmpl:component{Selector: "app-card", Template: "<b>{{Title}}</b><i [tip]='Title'></i>", Inputs: []string{"Title"}}
type Card struct {
	Title string
}

//tmpl:directive{Selector: "[tip]", Inputs: []string{"tip: Text"}, ExportAs: "tip"}
type Tooltip struct {
	Text string
}

//tmpl:pipe{Name: "upper"}
type Upper struct{}

func (Upper) Transform(s string) string { return s }

//tmpl:module{Declarations: []any{Card, Tooltip, Upper}, Exports: []any{Card}}
type Module struct{}
`

type edges struct {
	deps      []string
	resources []string
}

func (e *edges) AddDependency(from, to string) { e.deps = append(e.deps, from+" -> "+to) }

func (e *edges) AddResourceDependency(file, resource string) {
	e.resources = append(e.resources, file+" -> "+resource)
}

type pass struct {
	prog  *gohost.Program
	env   *transform.Env
	c     *transform.TraitCompiler
	edges *edges
	err   error
}

func analyze(t *testing.T, files, resources map[string]string) *pass {
	t.Helper()
	all := map[string]string{"go.mod": "module example.com/app\n"}
	for k, v := range files {
		all[k] = v
	}
	prog, err := gohost.New(gohost.Options{Root: "/work", Files: all, Resources: resources})
	if err != nil {
		t.Fatalf("gohost.New: %v", err)
	}
	h := reflection.NewHost(prog)
	e := &edges{}
	env := &transform.Env{Host: h, Eval: partial.NewEvaluator(h, e), Scopes: scope.NewRegistry(), Deps: e}
	p := &pass{prog: prog, env: env, c: transform.NewTraitCompiler(Handlers(), env, nil), edges: e}
	for _, f := range prog.SourceFiles() {
		p.c.Scan(f)
		if p.err = p.c.AnalyzeSync(f); p.err != nil {
			return p
		}
	}
	p.c.Resolve()
	return p
}

func (p *pass) trait(t *testing.T, file, name string) *transform.Trait {
	t.Helper()
	d, ok := p.env.Host.LookupType(file, name)
	if !ok {
		t.Fatalf("no declaration %s", name)
	}
	rec, ok := p.c.RecordFor(d)
	if !ok || rec.Trait == nil {
		t.Fatalf("no trait for %s", name)
	}
	return rec.Trait
}

func (p *pass) text(sp source.Span) string {
	f := p.prog.FileSet().Get(sp.File)
	return string(f.Content[sp.Start:sp.End])
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func TestHandlerOrder(t *testing.T) {
	var got []string
	for _, h := range Handlers() {
		got = append(got, h.Name())
	}
	want := []string{"component", "directive", "pipe", "injectable", "module"}
	if !slices.Equal(got, want) {
		t.Fatalf("handlers = %v, want %v", got, want)
	}
}

func TestAnalyzeAndResolve(t *testing.T) {
	p := analyze(t, map[string]string{"ui/card.go": uiSource}, nil)
	if p.err != nil {
		t.Fatalf("analysis failed: %v", p.err)
	}
	if ds := p.c.Diagnostics(); len(ds) != 0 {
		t.Fatalf("unexpected diagnostics %+v", ds)
	}
	card := p.trait(t, "/work/ui/card.go", "Card")
	if card.State != transform.StateResolved {
		t.Fatalf("Card state = %s", card.State)
	}
	a := card.Analysis.(*DirectiveAnalysis)
	if a.Inline || a.Template == nil || !a.Meta.IsComponent || a.Meta.Selector.String() != "app-card" {
		t.Fatalf("Card analysis = %+v", a)
	}
	if !slices.Equal(a.Meta.Inputs, []scope.Binding{{Name: "Title", Field: "Title"}}) {
		t.Fatalf("Card inputs = %+v", a.Meta.Inputs)
	}
	if got := p.text(a.Source.Span(a.Template.Nodes[0].NodeRange())); got != "<b>{{Title}}</b>" {
		t.Fatalf("first node maps onto %q", got)
	}
	res := card.Resolution.(*ComponentResolution)
	if res.Module != "/work/ui/card.go#Module" || len(res.Scope.Directives) != 2 || len(res.Scope.Pipes) != 1 {
		t.Fatalf("Card scope = %+v", res)
	}

	tip := p.trait(t, "/work/ui/card.go", "Tooltip").Analysis.(*DirectiveAnalysis)
	if field, ok := tip.Meta.Input("tip"); !ok || field != "Text" || tip.Meta.ExportAs != "tip" || tip.Template != nil {
		t.Fatalf("Tooltip analysis = %+v", tip.Meta)
	}
	mod := p.trait(t, "/work/ui/card.go", "Module")
	if sc := mod.Resolution.(*scope.ModuleScope); len(sc.Exported.Directives) != 1 || sc.Exported.Directives[0].Ref.Name != "Card" {
		t.Fatalf("Module exports = %+v", sc.Exported)
	}
}

func TestMarkerProblems(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		want  []diag.Code
		state transform.State
	}{
		{
			name:  "missing selector",
			src:   "//tmpl:component{Template: \"x\"}\ntype C struct{}\n",
			want:  []diag.Code{diag.AnlMissingField},
			state: transform.StateErrored,
		},
		{
			name:  "template and url",
			src:   "//tmpl:component{Selector: \"c\", Template: \"x\", TemplateURL: \"c.html\"}\ntype C struct{}\n",
			want:  []diag.Code{diag.AnlConflictingTemplate},
			state: transform.StateErrored,
		},
		{
			name:  "no template",
			src:   "//tmpl:component{Selector: \"c\"}\ntype C struct{}\n",
			want:  []diag.Code{diag.AnlMissingField},
			state: transform.StateErrored,
		},
		{
			name:  "unknown input",
			src:   "//tmpl:directive{Selector: \"[d]\", Inputs: []string{\"x: Missing\"}}\ntype D struct{ X int }\n",
			want:  []diag.Code{diag.AnlUnknownInput},
			state: transform.StateErrored,
		},
		{
			name:  "unknown output",
			src:   "//tmpl:directive{Selector: \"[d]\", Outputs: []string{\"Gone\"}}\ntype D struct{}\n",
			want:  []diag.Code{diag.AnlUnknownOutput},
			state: transform.StateErrored,
		},
		{
			name:  "dynamic selector",
			src:   "//tmpl:directive{Selector: pick()}\ntype D struct{}\n\nfunc pick() string { return \"d\" }\n",
			want:  []diag.Code{diag.AnlDynamicValue},
			state: transform.StateErrored,
		},
		{
			name:  "selector of the wrong type",
			src:   "//tmpl:directive{Selector: 1}\ntype D struct{}\n",
			want:  []diag.Code{diag.AnlWrongValueType},
			state: transform.StateErrored,
		},
		{
			name:  "invalid selector",
			src:   "//tmpl:directive{Selector: \"[d\"}\ntype D struct{}\n",
			want:  []diag.Code{diag.AnlInvalidSelector},
			state: transform.StateErrored,
		},
		{
			name:  "not a struct",
			src:   "//tmpl:directive{Selector: \"[d]\"}\ntype D int\n",
			want:  []diag.Code{diag.AnlNotStruct},
			state: transform.StateErrored,
		},
		{
			name:  "unknown field only warns",
			src:   "//tmpl:directive{Selector: \"[d]\", Color: \"red\"}\ntype D struct{}\n",
			want:  []diag.Code{diag.AnlUnknownField},
			state: transform.StateResolved,
		},
		{
			name:  "provided in",
			src:   "//tmpl:injectable{ProvidedIn: \"galaxy\"}\ntype S struct{}\n",
			want:  []diag.Code{diag.AnlInvalidProvidedIn},
			state: transform.StateErrored,
		},
		{
			name:  "pipe name",
			src:   "//tmpl:pipe{Name: \"to upper\"}\ntype P struct{}\n",
			want:  []diag.Code{diag.AnlWrongValueType},
			state: transform.StateErrored,
		},
		{
			name:  "pipe without transform",
			src:   "//tmpl:pipe{Name: \"upper\"}\ntype P struct{}\n",
			want:  []diag.Code{diag.ResPipeMissingTransform},
			state: transform.StateErrored,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := analyze(t, map[string]string{"a/a.go": "package a\n\n" + tc.src}, nil)
			if p.err != nil {
				t.Fatalf("analysis failed: %v", p.err)
			}
			recs := p.c.RecordsFor("/work/a/a.go")
			if len(recs) != 1 || recs[0].Trait == nil {
				t.Fatalf("records = %+v", recs)
			}
			tr := recs[0].Trait
			if got := codes(tr.Diagnostics); !slices.Equal(got, tc.want) || tr.State != tc.state {
				t.Fatalf("got %v in state %s, want %v in state %s", got, tr.State, tc.want, tc.state)
			}
		})
	}
}

func TestModuleProblems(t *testing.T) {
	src := `package ui

import "example.com/app/lib"

//tmpl:component{Selector: "app-card", Template: "<b></b>"}
type Card struct{}

type Plain struct{}

//tmpl:module{Declarations: []any{Card, Plain}, Imports: []any{Card, lib.Nope}}
type Module struct{}

//tmpl:module{Declarations: []any{Card}}
type Other struct{}
`
	p := analyze(t, map[string]string{"ui/ui.go": src, "lib/lib.go": "package lib\n"}, nil)
	if p.err != nil {
		t.Fatalf("analysis failed: %v", p.err)
	}
	mod := p.trait(t, "/work/ui/ui.go", "Module")
	want := []diag.Code{diag.ResUnknownReference, diag.ResNotDeclarable, diag.ResNotModule}
	if got := codes(mod.Diagnostics); !slices.Equal(got, want) || mod.State != transform.StateErrored {
		t.Fatalf("Module: got %v in state %s, want %v", got, mod.State, want)
	}
	if got := p.text(mod.Diagnostics[0].Primary); got != "lib.Nope" {
		t.Fatalf("unknown reference reported at %q", got)
	}
	card := p.trait(t, "/work/ui/ui.go", "Card")
	if got := codes(card.Diagnostics); !slices.Equal(got, []diag.Code{diag.ResMultipleModules}) || card.State != transform.StateResolved {
		t.Fatalf("Card: got %v in state %s", got, card.State)
	}
	if res := card.Resolution.(*ComponentResolution); res.Module != "/work/ui/ui.go#Module" {
		t.Fatalf("Card uses module %q, want the first one by key", res.Module)
	}
}

func TestTemplateSyntaxErrorEndsPass(t *testing.T) {
	src := "package ui\n\n//tmpl:component{Selector: \"c\", Template: \"<div><span></div>\"}\ntype C struct{}\n"
	p := analyze(t, map[string]string{"ui/c.go": src}, nil)
	var spe *transform.StructuralParseError
	if !errors.As(p.err, &spe) {
		t.Fatalf("got %v, want a structural parse error", p.err)
	}
	if len(spe.Diagnostics) != 1 || spe.Diagnostics[0].Code != diag.TplUnclosedElement {
		t.Fatalf("diagnostics = %+v", spe.Diagnostics)
	}
	if got := p.text(spe.Diagnostics[0].Primary); got != "span" {
		t.Fatalf("parse error reported at %q, want span", got)
	}
}

func TestTemplateURL(t *testing.T) {
	src := "package ui\n\n//tmpl:component{Selector: \"c\", TemplateURL: \"c.html\"}\ntype C struct{ Title string }\n"
	p := analyze(t, map[string]string{"ui/c.go": src}, map[string]string{"ui/c.html": "<b>{{ Title }}</b>"})
	if p.err != nil {
		t.Fatalf("analysis failed: %v", p.err)
	}
	a := p.trait(t, "/work/ui/c.go", "C").Analysis.(*DirectiveAnalysis)
	if a.Resource != "/work/ui/c.html" || !a.Source.Exact {
		t.Fatalf("analysis = %+v", a)
	}
	if f := p.prog.FileSet().Get(a.Source.File); f.Flags&source.FileResource == 0 {
		t.Fatalf("resource file %s is not flagged", f.Path)
	}
	if !slices.Equal(p.edges.resources, []string{"/work/ui/c.go -> /work/ui/c.html"}) {
		t.Fatalf("resource edges = %v", p.edges.resources)
	}

	missing := analyze(t, map[string]string{"ui/c.go": src}, nil)
	tr := missing.trait(t, "/work/ui/c.go", "C")
	if got := codes(tr.Diagnostics); !slices.Equal(got, []diag.Code{diag.IOResourceLoadError}) {
		t.Fatalf("missing resource: got %v", got)
	}
	if len(missing.edges.resources) != 1 {
		t.Fatalf("missing resource left no edge: %v", missing.edges.resources)
	}
}

func TestTemplateFromConstant(t *testing.T) {
	p := analyze(t, map[string]string{
		"ui/c.go":     "package ui\n\n//tmpl:component{Selector: \"c\", Template: cardTemplate}\ntype C struct{ Title string }\n",
		"ui/const.go": "package ui\n\nconst cardTemplate = \"<b>{{Title}}</b>\"\n",
	}, nil)
	if p.err != nil {
		t.Fatalf("analysis failed: %v", p.err)
	}
	a := p.trait(t, "/work/ui/c.go", "C").Analysis.(*DirectiveAnalysis)
	if got := p.text(a.Source.Span(a.Template.Nodes[0].NodeRange())); got != "<b>{{Title}}</b>" {
		t.Fatalf("template maps onto %q", got)
	}
	if !slices.Equal(p.edges.deps, []string{"/work/ui/c.go -> /work/ui/const.go"}) {
		t.Fatalf("dependency edges = %v", p.edges.deps)
	}
}

func TestPlacement(t *testing.T) {
	cases := []struct {
		name, src string
		inline    bool
	}{
		{"exported", "package ui\n\n//tmpl:component{Selector: \"c\", Template: \"x\"}\ntype C struct{}\n", false},
		{"unexported", "package ui\n\n//tmpl:component{Selector: \"c\", Template: \"x\"}\ntype c struct{}\n", true},
		{"opt in", "package ui\n\n//tmpl:component{Selector: \"c\", Template: \"x\", Inline: true}\ntype C struct{}\n", true},
		{"main", "package main\n\n//tmpl:component{Selector: \"c\", Template: \"x\"}\ntype C struct{}\n", true},
	}
	for _, tc := range cases {
		p := analyze(t, map[string]string{"ui/c.go": tc.src}, nil)
		recs := p.c.RecordsFor("/work/ui/c.go")
		if len(recs) != 1 || recs[0].Trait.Analysis == nil {
			t.Fatalf("%s: records = %+v", tc.name, recs)
		}
		if got := recs[0].Trait.Analysis.(*DirectiveAnalysis).Inline; got != tc.inline {
			t.Fatalf("%s: inline = %v, want %v", tc.name, got, tc.inline)
		}
	}
}
