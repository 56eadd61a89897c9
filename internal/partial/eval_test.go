package partial

import (
	"testing"

	"tmplcheck/internal/host/gohost"
	"tmplcheck/internal/reflection"
)

type edgeLog [][2]string

func (l *edgeLog) AddDependency(from, to string) { *l = append(*l, [2]string{from, to}) }

const declSource = `package ui

import "example.com/app/lib"

//tmpl:component{Selector: prefix + "-card", Template: tpl, Count: 2 + 3, On: !false, Deps: []any{Base, lib.Dir}, Bad: f(), Loop: loop, Later: Later, Gone: lib.Gone}
type Card struct{}

type Base struct{}

const loop = loop2
const loop2 = loop
`

func evalFixture(t *testing.T) (*Evaluator, *reflection.Declaration, *reflection.Marker, *edgeLog) {
	t.Helper()
	prog, err := gohost.New(gohost.Options{Root: "/work", Files: map[string]string{
		"go.mod":      "module example.com/app\n",
		"ui/card.go":  declSource,
		"ui/const.go": "package ui\n\nconst prefix = \"app\"\n\nconst tpl = `<p>{{X}}</p>`\n",
		"lib/lib.go":  "package lib\n\ntype Dir struct{}\n",
	}})
	if err != nil {
		t.Fatal(err)
	}
	h := reflection.NewHost(prog)
	d := h.Declarations("/work/ui/card.go")[0]
	m, ok := d.Marker("component")
	if !ok || m.Args == nil {
		t.Fatalf("marker not parsed: %+v", m)
	}
	log := &edgeLog{}
	return NewEvaluator(h, log), d, m, log
}

func TestEvalMarkerFields(t *testing.T) {
	ev, d, m, log := evalFixture(t)
	frame := MarkerFrame(d, m)
	field := func(key string) Value {
		expr, ok := m.Field(key)
		if !ok {
			t.Fatalf("field %s missing", key)
		}
		return ev.Eval(frame, expr)
	}

	if v := field("Selector"); v.Kind != KindString || v.Str != "app-card" || v.Origin != nil {
		t.Fatalf("Selector = %+v, want concatenated string without origin", v)
	}
	tpl := field("Template")
	if tpl.Kind != KindString || tpl.Str != "<p>{{X}}</p>" {
		t.Fatalf("Template = %+v", tpl)
	}
	if tpl.Origin == nil || !tpl.Origin.Exact || tpl.Origin.Path != "/work/ui/const.go" {
		t.Fatalf("Template origin = %+v", tpl.Origin)
	}
	content := "package ui\n\nconst prefix = \"app\"\n\nconst tpl = `<p>{{X}}</p>`\n"
	if got := content[tpl.Origin.Offset : tpl.Origin.Offset+3]; got != "<p>" {
		t.Fatalf("origin offset points at %q", got)
	}
	if v := field("Count"); v.Kind != KindInt || v.Int != 5 {
		t.Fatalf("Count = %+v", v)
	}
	if v := field("On"); v.Kind != KindBool || !v.Bool {
		t.Fatalf("On = %+v", v)
	}
	deps := field("Deps")
	if deps.Kind != KindList || len(deps.List) != 2 {
		t.Fatalf("Deps = %+v", deps)
	}
	if r := deps.List[0].Ref; deps.List[0].Kind != KindRef || r.Name != "Base" || r.File != "/work/ui/card.go" || r.OwningModule != "" {
		t.Fatalf("local ref = %+v", deps.List[0])
	}
	if r := deps.List[1].Ref; r.OwningModule != "example.com/app/lib" || r.Dir != "/work/lib" || r.Package != "lib" {
		t.Fatalf("imported ref = %+v", r)
	}
	if v := field("Bad"); v.Kind != KindDynamic {
		t.Fatalf("call evaluated to %+v", v)
	}
	if v := field("Loop"); v.Kind != KindDynamic {
		t.Fatalf("constant cycle evaluated to %+v", v)
	}

	seen := map[[2]string]bool{}
	for _, e := range *log {
		seen[e] = true
	}
	if !seen[[2]string{"/work/ui/card.go", "/work/ui/const.go"}] {
		t.Fatalf("missing dependency edge, got %v", *log)
	}
}

func TestUnresolvedNamesDependOnTheirPackage(t *testing.T) {
	ev, d, m, log := evalFixture(t)
	frame := MarkerFrame(d, m)
	for _, key := range []string{"Later", "Gone"} {
		expr, _ := m.Field(key)
		if v := ev.Eval(frame, expr); key == "Later" && v.Kind != KindDynamic {
			t.Fatalf("%s = %+v, want dynamic", key, v)
		}
	}
	seen := map[[2]string]bool{}
	for _, e := range *log {
		seen[e] = true
	}
	for _, want := range [][2]string{
		{"/work/ui/card.go", "/work/ui/const.go"},
		{"/work/ui/card.go", "/work/lib/lib.go"},
	} {
		if !seen[want] {
			t.Fatalf("missing edge %v, got %v", want, *log)
		}
	}
	for _, e := range *log {
		if e[0] == e[1] {
			t.Fatalf("self edge recorded: %v", e)
		}
	}
}

func TestEvalSpanCoversExpression(t *testing.T) {
	ev, d, m, _ := evalFixture(t)
	expr, _ := m.Field("Count")
	v := ev.Eval(MarkerFrame(d, m), expr)
	if got := declSource[v.Span.Start:v.Span.End]; got != "2 + 3" {
		t.Fatalf("span covers %q, want 2 + 3", got)
	}
}
