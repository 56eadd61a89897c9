package driver

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/host/gohost"
	"tmplcheck/internal/trace"
	"tmplcheck/internal/transform"
	"tmplcheck/internal/typecheck"
)

const (
	counterSource = `package ui

//tmpl:directive{Selector: "[counter]", Inputs: []string{"count: Count"}}
type Counter struct {
	Count int
}

//tmpl:module{Declarations: []any{Counter}, Exports: []any{Counter}}
type Widgets struct{}
`
	cardSource = `package app

import "example.com/app/ui"

//tmpl:component{Selector: "app-card", Template: "<div counter [count]='Title'></div>"}
type Card struct {
	Title string
}

//tmpl:module{Declarations: []any{Card}, Imports: []any{ui.Widgets}}
type Module struct{}

var _ ui.Widgets
`
	helperSource = "package util\n\nfunc Twice(n int) int { return 2 * n }\n"
)

func load(t *testing.T, files, resources map[string]string) *gohost.Program {
	t.Helper()
	all := map[string]string{"go.mod": "module example.com/app\n\ngo 1.22\n"}
	for k, v := range files {
		all[k] = v
	}
	prog, err := gohost.New(gohost.Options{Root: "/work", Files: all, Resources: resources})
	if err != nil {
		t.Fatalf("gohost.New: %v", err)
	}
	return prog
}

func strict() Options {
	return Options{TypeCheck: typecheck.Options{StrictTemplates: true}}
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func record(t *testing.T, c *Compiler, file, name string) *transform.ClassRecord {
	t.Helper()
	for _, r := range c.Traits().RecordsFor(file) {
		if r.Decl.Name == name {
			return r
		}
	}
	t.Fatalf("no record for %s in %s", name, file)
	return nil
}

func TestStrictInputBindingMismatch(t *testing.T) {
	prog := load(t, map[string]string{"ui/counter.go": counterSource, "app/card.go": cardSource}, nil)
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	ds := c.Diagnostics("/work/app/card.go")
	if len(ds) != 1 || ds[0].Code != diag.TcbTypeError || ds[0].Template == nil {
		t.Fatalf("diagnostics = %+v, want one template type error", ds)
	}
	f := prog.FileSet().Get(ds[0].Primary.File)
	if f.Path != "/work/app/card.go" || string(f.Content[ds[0].Primary.Start:ds[0].Primary.End]) != "Title" {
		t.Fatalf("primary = %v, want the bound expression in card.go", ds[0].Primary)
	}
	if ds := c.Diagnostics("/work/ui/counter.go"); len(ds) != 0 {
		t.Fatalf("counter.go diagnostics = %+v", ds)
	}
	if len(c.TypeCheckFiles()) != 1 || c.Program() == prog {
		t.Fatalf("expected the synthetic program to be adopted")
	}
}

func TestDefaultModeLeavesBindingsUnchecked(t *testing.T) {
	prog := load(t, map[string]string{"ui/counter.go": counterSource, "app/card.go": cardSource}, nil)
	c := New(Options{})
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ds := c.AllDiagnostics(); len(ds) != 0 {
		t.Fatalf("unexpected diagnostics %+v", ds)
	}
}

func TestTypeCheckDisabled(t *testing.T) {
	off := false
	prog := load(t, map[string]string{"ui/counter.go": counterSource, "app/card.go": cardSource}, nil)
	c := New(Options{TypeCheck: typecheck.Options{TemplateTypeCheck: &off, StrictTemplates: true}})
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if c.Program() != prog || c.TypeCheckFiles() != nil || c.HasErrors() {
		t.Fatalf("nothing should be synthesized when checking is off")
	}
}

func TestStructuralParseErrorReportsOnlyParseDiagnostics(t *testing.T) {
	broken := `package app

//tmpl:component{Selector: "app-card", Template: "<div><b>{{ Title }}</div>"}
type Card struct {
	Title int
	Extra string
}

//tmpl:pipe{Name: "x y"}
type Bad struct{}
`
	prog := load(t, map[string]string{"app/card.go": broken}, nil)
	c := New(strict())
	err := c.Analyze(context.Background(), prog, nil)
	var spe *transform.StructuralParseError
	if !errors.As(err, &spe) {
		t.Fatalf("err = %v, want a structural parse error", err)
	}
	ds := c.Diagnostics("/work/app/card.go")
	if len(ds) == 0 {
		t.Fatalf("no parse diagnostics reported")
	}
	for _, d := range ds {
		if d.Template != nil || d.Code < diag.TplUnclosedElement || d.Code > diag.TplUnknownStructural {
			t.Fatalf("non-parse diagnostic after an aborted pass: %+v", d)
		}
	}
	if !c.HasErrors() {
		t.Fatalf("aborted pass must report errors")
	}
}

func TestDiagnosticsByOwningFile(t *testing.T) {
	card := `package app

import "example.com/app/ui"

//tmpl:component{Selector: "app-card", TemplateURL: "card.html", Colour: "red"}
type Card struct {
	Title string
}

//tmpl:module{Declarations: []any{Card}, Imports: []any{ui.Widgets}}
type Module struct{}

var _ ui.Widgets
`
	prog := load(t,
		map[string]string{"ui/counter.go": counterSource, "app/card.go": card},
		map[string]string{"app/card.html": "<p counter [count]=\"Title\"></p>"})
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	ds := c.Diagnostics("/work/app/card.go")
	got := codes(ds)
	slices.Sort(got)
	want := []diag.Code{diag.AnlUnknownField, diag.TcbTypeError}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("card.go codes = %v, want %v", got, want)
	}
	res := c.Diagnostics("/work/app/card.html")
	if len(res) != 1 || res[0].Code != diag.TcbTypeError {
		t.Fatalf("card.html diagnostics = %+v", res)
	}
	if n := len(c.AllDiagnostics()); n != 2 {
		t.Fatalf("all diagnostics = %d, want 2 without duplicates", n)
	}
}

func TestScopeEditsInvalidateComponents(t *testing.T) {
	files := map[string]string{"ui/counter.go": counterSource, "app/card.go": cardSource, "util/util.go": helperSource}
	prog := load(t, files, nil)
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	card := record(t, c, "/work/app/card.go", "Card")

	prog2 := prog.Update(map[string]string{"util/util.go": "package util\n\nfunc Twice(n int) int { return n + n }\n"})
	if err := c.Analyze(context.Background(), prog2, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := c.Incremental().Invalidated(); !slices.Equal(got, []string{"/work/util/util.go"}) {
		t.Fatalf("invalidated = %v, want only util.go", got)
	}
	if record(t, c, "/work/app/card.go", "Card") != card || !c.Traits().Adopted("/work/app/card.go") {
		t.Fatalf("unrelated edit replaced the Card record")
	}
	if ds := c.Diagnostics("/work/app/card.go"); len(ds) != 1 {
		t.Fatalf("carried component lost its template diagnostic: %+v", ds)
	}

	edited := `package ui

//tmpl:directive{Selector: "[counter]", Inputs: []string{"count: Count"}}
type Counter struct {
	Count string
}

//tmpl:module{Declarations: []any{Counter}, Exports: []any{Counter}}
type Widgets struct{}
`
	prog3 := prog2.Update(map[string]string{"ui/counter.go": edited})
	if err := c.Analyze(context.Background(), prog3, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !slices.Contains(c.Incremental().Invalidated(), "/work/app/card.go") {
		t.Fatalf("editing a scope member must invalidate the component, got %v", c.Incremental().Invalidated())
	}
	if record(t, c, "/work/app/card.go", "Card") == card {
		t.Fatalf("Card record survived a scope change")
	}
	if ds := c.Diagnostics("/work/app/card.go"); len(ds) != 0 {
		t.Fatalf("string input now accepts Title, got %+v", ds)
	}
}

// freshCodes analyzes prog from scratch and returns the sorted codes of file.
func freshCodes(t *testing.T, prog *gohost.Program, file string) []diag.Code {
	t.Helper()
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("fresh Analyze: %v", err)
	}
	got := codes(c.Diagnostics(file))
	slices.Sort(got)
	return got
}

func TestComponentJoiningModuleIsReanalyzed(t *testing.T) {
	orphan := `package app

//tmpl:component{Selector: "app-card", Template: "<div counter [count]='Title'></div>"}
type Card struct {
	Title string
}
`
	module := `package app

import "example.com/app/ui"

//tmpl:module{Imports: []any{ui.Widgets}}
type Module struct{}

var _ ui.Widgets
`
	prog := load(t, map[string]string{"ui/counter.go": counterSource, "app/card.go": orphan, "app/mod.go": module}, nil)
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ds := c.Diagnostics("/work/app/card.go"); len(ds) != 0 {
		t.Fatalf("orphan component has no directives in scope, got %+v", ds)
	}
	card := record(t, c, "/work/app/card.go", "Card")

	declared := strings.Replace(module, "{Imports:", "{Declarations: []any{Card}, Imports:", 1)
	prog2 := prog.Update(map[string]string{"app/mod.go": declared})
	if err := c.Analyze(context.Background(), prog2, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !slices.Contains(c.Incremental().Invalidated(), "/work/app/card.go") {
		t.Fatalf("new module member not invalidated, got %v", c.Incremental().Invalidated())
	}
	if c.Traits().Adopted("/work/app/card.go") || record(t, c, "/work/app/card.go", "Card") == card {
		t.Fatalf("Card kept the orphan scope of the previous pass")
	}
	got := codes(c.Diagnostics("/work/app/card.go"))
	slices.Sort(got)
	if want := freshCodes(t, prog2, "/work/app/card.go"); !slices.Equal(got, want) || len(want) != 1 {
		t.Fatalf("incremental codes = %v, fresh codes = %v, want one type error in both", got, want)
	}
}

func TestDeclarationAddedToExistingFileResolvesModule(t *testing.T) {
	module := `package app

//tmpl:module{Declarations: []any{Foo}}
type Module struct{}
`
	prog := load(t, map[string]string{"app/mod.go": module, "app/foo.go": "package app\n"}, nil)
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !c.HasErrors() {
		t.Fatalf("unknown declaration Foo must be reported, got %+v", c.AllDiagnostics())
	}

	foo := "package app\n\n//tmpl:directive{Selector: \"[foo]\"}\ntype Foo struct{}\n"
	prog2 := prog.Update(map[string]string{"app/foo.go": foo})
	if err := c.Analyze(context.Background(), prog2, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !slices.Contains(c.Incremental().Invalidated(), "/work/app/mod.go") {
		t.Fatalf("mod.go must follow edits of its package, got %v", c.Incremental().Invalidated())
	}
	got := codes(c.Diagnostics("/work/app/mod.go"))
	slices.Sort(got)
	if want := freshCodes(t, prog2, "/work/app/mod.go"); !slices.Equal(got, want) {
		t.Fatalf("incremental codes = %v, fresh codes = %v", got, want)
	}
	if c.HasErrors() {
		t.Fatalf("Foo exists now, got %+v", c.AllDiagnostics())
	}
}

func TestResourceEditInvalidatesComponent(t *testing.T) {
	card := `package app

//tmpl:component{Selector: "app-card", TemplateURL: "card.html"}
type Card struct {
	Title string
}
`
	prog := load(t, map[string]string{"app/card.go": card}, map[string]string{"app/card.html": "{{ Title }}"})
	c := New(strict())
	if err := c.Analyze(context.Background(), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ds := c.AllDiagnostics(); len(ds) != 0 {
		t.Fatalf("unexpected diagnostics %+v", ds)
	}
	prog2 := prog.UpdateResources(map[string]string{"app/card.html": "{{ Missing }}"})
	if err := c.Analyze(context.Background(), prog2, []string{"/work/app/card.html"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := c.Incremental().Invalidated(); !slices.Equal(got, []string{"/work/app/card.go"}) {
		t.Fatalf("invalidated = %v, want card.go", got)
	}
	ds := c.Diagnostics("/work/app/card.html")
	if len(ds) != 1 || ds[0].Code != diag.TcbTypeError {
		t.Fatalf("card.html diagnostics = %+v", ds)
	}
}

func TestTimingsAndTrace(t *testing.T) {
	prog := load(t, map[string]string{"ui/counter.go": counterSource, "app/card.go": cardSource}, nil)
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	c := New(Options{TypeCheck: typecheck.Options{StrictTemplates: true}, Timings: true})
	if err := c.Analyze(trace.WithTracer(context.Background(), ring), prog, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var phases []string
	for _, p := range c.Timer().Report().Phases {
		phases = append(phases, p.Name)
	}
	if want := []string{"reconcile", "analyze", "resolve", "typecheck"}; !slices.Equal(phases, want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	var begins []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin {
			begins = append(begins, ev.Name)
		}
	}
	if want := []string{"analyze", "reconcile", "analyze", "resolve", "typecheck"}; !slices.Equal(begins, want) {
		t.Fatalf("spans = %v, want %v", begins, want)
	}
}
