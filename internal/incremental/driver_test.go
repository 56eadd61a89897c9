package incremental

import (
	"strings"
	"testing"

	"tmplcheck/internal/host/gohost"
)

type record struct{ file string }

type records map[string][]*record

func (r records) RecordsFor(file string) []*record { return r[file] }

func program(t *testing.T, files map[string]string) *gohost.Program {
	t.Helper()
	all := map[string]string{"go.mod": "module example.com/app\n"}
	for k, v := range files {
		all[k] = v
	}
	p, err := gohost.New(gohost.Options{Root: "/work", Files: all})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// firstPass runs a fake successful pass: a.go <- b.go, c.go independent.
func firstPass(t *testing.T) (*gohost.Program, *Driver[*record], records) {
	t.Helper()
	p := program(t, map[string]string{
		"a.go": "package app\n",
		"b.go": "package app\n",
		"c.go": "package app\n",
	})
	d := Fresh[*record](p)
	if len(d.Invalidated()) != 3 {
		t.Fatalf("fresh driver invalidated %v", d.Invalidated())
	}
	d.AddDependency("/work/b.go", "/work/a.go")
	d.AddResourceDependency("/work/c.go", "/work/c.html")
	recs := records{}
	for _, f := range p.SourceFiles() {
		recs[f] = []*record{{file: f}}
	}
	d.RecordSuccessfulAnalysis(recs)
	return p, d, recs
}

func TestReconcileCarriesUnrelatedFiles(t *testing.T) {
	p1, d1, recs := firstPass(t)
	p2 := p1.Update(map[string]string{"a.go": "package app\n\nvar X = 1\n"})
	d2 := Reconcile(p1, d1, p2, nil)

	if got := strings.Join(d2.Invalidated(), ","); got != "/work/a.go,/work/b.go" {
		t.Fatalf("invalidated = %s", got)
	}
	carried, ok := d2.PriorWorkFor("/work/c.go")
	if !ok || carried[0] != recs["/work/c.go"][0] {
		t.Fatalf("c.go record identity lost")
	}
	if _, ok := d2.PriorWorkFor("/work/b.go"); ok {
		t.Fatalf("dependent file reused prior work")
	}
	if got := strings.Join(d2.Graph().Resources("/work/c.go"), ","); got != "/work/c.html" {
		t.Fatalf("carried edges lost: %s", got)
	}
}

func TestReconcileUnchangedProgram(t *testing.T) {
	p1, d1, _ := firstPass(t)
	d2 := Reconcile(p1, d1, p1, nil)
	if inv := d2.Invalidated(); len(inv) != 0 {
		t.Fatalf("nothing changed but %v invalidated", inv)
	}
}

func TestReconcileResourceChange(t *testing.T) {
	p1, d1, _ := firstPass(t)
	d2 := Reconcile(p1, d1, p1, []string{"/work/c.html"})
	if got := strings.Join(d2.Invalidated(), ","); got != "/work/c.go" {
		t.Fatalf("invalidated = %s", got)
	}
}

func TestReconcileAccumulatesAcrossFailedPasses(t *testing.T) {
	p1, d1, _ := firstPass(t)
	p2 := p1.Update(map[string]string{"c.go": "package app\n\nvar Y = 2\n"})
	d2 := Reconcile(p1, d1, p2, []string{"/work/other.html"})
	// pass 2 aborts: no RecordSuccessfulAnalysis
	p3 := p2.Update(map[string]string{"a.go": "package app\n\nvar X = 1\n"})
	d3 := Reconcile(p2, d2, p3, nil)
	if got := strings.Join(d3.Invalidated(), ","); got != "/work/a.go,/work/b.go,/work/c.go" {
		t.Fatalf("invalidated = %s", got)
	}
	if !d3.pending.has("/work/other.html") {
		t.Fatalf("pending resource changes dropped")
	}
}

func TestReconcileFileSetChangeIsFull(t *testing.T) {
	p1, d1, _ := firstPass(t)
	p2 := p1.Update(map[string]string{"d.go": "package app\n"})
	d2 := Reconcile(p1, d1, p2, nil)
	if !d2.Full() || len(d2.Invalidated()) != 4 {
		t.Fatalf("adding a file must invalidate everything, got %v", d2.Invalidated())
	}
}

func TestShapeChanged(t *testing.T) {
	p1, d1, _ := firstPass(t)
	d1.graph.RecordShape("/work/a.go", [32]byte{1})
	d2 := Reconcile(p1, d1, p1, nil)
	d2.graph.RecordShape("/work/a.go", [32]byte{1})
	if d2.ShapeChanged("/work/a.go") {
		t.Fatalf("same digest reported as changed")
	}
	d2.graph.RecordShape("/work/a.go", [32]byte{2})
	if !d2.ShapeChanged("/work/a.go") {
		t.Fatalf("new digest not reported")
	}
}

func TestInvalidateCarriedFile(t *testing.T) {
	p1, d1, _ := firstPass(t)
	p2 := p1.Update(map[string]string{"c.go": "package app\n\nvar Y = 2\n"})
	d2 := Reconcile(p1, d1, p2, nil)
	if got := strings.Join(d2.Invalidated(), ","); got != "/work/c.go" {
		t.Fatalf("invalidated = %s", got)
	}

	added := d2.Invalidate("/work/a.go", "/work/c.go")
	if got := strings.Join(added, ","); got != "/work/a.go,/work/b.go" {
		t.Fatalf("added = %s, want a.go and its dependent b.go", got)
	}
	if _, ok := d2.PriorWorkFor("/work/a.go"); ok {
		t.Fatalf("late invalidated file reused prior work")
	}
	if deps := d2.Graph().Dependencies("/work/b.go"); len(deps) != 0 {
		t.Fatalf("carried edges of b.go survived: %v", deps)
	}
	if again := d2.Invalidate("/work/a.go"); len(again) != 0 {
		t.Fatalf("second Invalidate added %v", again)
	}
}
