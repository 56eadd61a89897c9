package imports

import (
	"errors"
	"testing"
)

type fakeResolver map[string]string

func (f fakeResolver) ResolveModule(importPath, _ string) (string, bool) {
	dir, ok := f[importPath]
	return dir, ok
}

func testEmitter() *Emitter {
	return NewEmitter(
		LocalStrategy{},
		AbsoluteStrategy{Resolver: fakeResolver{"example.com/app/ui": "/work/ui"}},
		RelativeStrategy{Root: "/work", ModulePath: "example.com/app"},
	)
}

func TestEmitterChain(t *testing.T) {
	gen := Context{Dir: "/work", Package: "tmpltypecheck", File: "/work/__tmpl_typecheck__.go"}
	cases := []struct {
		name string
		ref  Reference
		ctx  Context
		want Emitted
	}{
		{
			name: "local",
			ref:  Reference{Name: "cmp", Dir: "/work/ui", Package: "ui", File: "/work/ui/a.go"},
			ctx:  Context{Dir: "/work/ui", Package: "ui", File: "/work/ui/a__shadow.go"},
			want: Emitted{Name: "cmp"},
		},
		{
			name: "absolute",
			ref:  Reference{Name: "Button", Dir: "/work/ui", Package: "ui", OwningModule: "example.com/app/ui"},
			ctx:  gen,
			want: Emitted{ImportPath: "example.com/app/ui", Name: "Button"},
		},
		{
			name: "relative",
			ref:  Reference{Name: "App", Dir: "/work/pages/home", Package: "home"},
			ctx:  gen,
			want: Emitted{ImportPath: "example.com/app/pages/home", Name: "App"},
		},
		{
			name: "relative root package",
			ref:  Reference{Name: "App", Dir: "/work", Package: "app"},
			ctx:  gen,
			want: Emitted{ImportPath: "example.com/app", Name: "App"},
		},
		{
			name: "unresolvable module falls back to relative",
			ref:  Reference{Name: "Card", Dir: "/work/cards", Package: "cards", OwningModule: "example.com/app/cards"},
			ctx:  gen,
			want: Emitted{ImportPath: "example.com/app/cards", Name: "Card"},
		},
	}
	e := testEmitter()
	for _, c := range cases {
		got, err := e.Emit(c.ref, c.ctx)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestEmitterFailures(t *testing.T) {
	gen := Context{Dir: "/work", Package: "tmpltypecheck", File: "/work/__tmpl_typecheck__.go"}
	refs := []Reference{
		{Name: "hidden", Dir: "/work/ui", Package: "ui"},
		{Name: "Main", Dir: "/work/cmd", Package: "main"},
		{Name: "Out", Dir: "/elsewhere", Package: "out"},
		{Name: "Lost"},
	}
	e := testEmitter()
	for _, ref := range refs {
		_, err := e.Emit(ref, gen)
		var rre *ReferenceResolutionError
		if !errors.As(err, &rre) {
			t.Fatalf("%s: got %v, want ReferenceResolutionError", ref.Name, err)
		}
		if rre.Ref.Name != ref.Name {
			t.Fatalf("error names %s, want %s", rre.Ref.Name, ref.Name)
		}
	}
}

func TestImportManagerRollback(t *testing.T) {
	m := NewImportManager("i")
	if got := m.Qualify(Emitted{ImportPath: "a/b", Name: "T"}); got != "i0.T" {
		t.Fatalf("got %s, want i0.T", got)
	}
	mark := m.Mark()
	m.Alias("c/d")
	if got := m.Alias("a/b"); got != "i0" {
		t.Fatalf("alias reused as %s", got)
	}
	m.Rollback(mark)
	if n := len(m.Imports()); n != 1 {
		t.Fatalf("got %d imports after rollback, want 1", n)
	}
	if got := m.Alias("e/f"); got != "i1" {
		t.Fatalf("got %s, want i1", got)
	}
	if got := m.Qualify(Emitted{Name: "Local"}); got != "Local" {
		t.Fatalf("bare reference rendered as %s", got)
	}
}
