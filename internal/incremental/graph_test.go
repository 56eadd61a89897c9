package incremental

import (
	"strings"
	"testing"
)

func TestGraphInvalidated(t *testing.T) {
	g := NewGraph()
	g.AddDependency("b", "a")
	g.AddDependency("c", "b")
	g.AddDependency("e", "d")
	g.AddResourceDependency("f", "f.html")

	cases := []struct {
		changed   []string
		resources []string
		want      string
	}{
		{[]string{"a"}, nil, "a,b,c"},
		{[]string{"b"}, nil, "b,c"},
		{[]string{"d"}, nil, "d,e"},
		{nil, []string{"f.html"}, "f"},
		{[]string{"z"}, nil, "z"},
		{nil, nil, ""},
	}
	for _, c := range cases {
		got := strings.Join(g.Invalidated(c.changed, c.resources), ",")
		if got != c.want {
			t.Fatalf("Invalidated(%v, %v) = %s, want %s", c.changed, c.resources, got, c.want)
		}
	}
}

func TestTransitiveDependencyCopiesCurrentEdges(t *testing.T) {
	g := NewGraph()
	g.AddDependency("dir", "base")
	g.AddTransitiveDependency("mod", "dir")
	// edges added to dir later are not copied
	g.AddDependency("dir", "late")
	if got := strings.Join(g.Dependencies("mod"), ","); got != "base,dir" {
		t.Fatalf("mod deps = %s, want base,dir", got)
	}
	if got := strings.Join(g.Invalidated([]string{"base"}, nil), ","); got != "base,dir,mod" {
		t.Fatalf("invalidated = %s", got)
	}
}

func TestTransitiveResources(t *testing.T) {
	g := NewGraph()
	g.AddResourceDependency("cmp.go", "cmp.html")
	g.AddTransitiveResources("mod.go", "cmp.go")
	if got := strings.Join(g.Resources("mod.go"), ","); got != "cmp.html" {
		t.Fatalf("resources = %s", got)
	}
	if got := strings.Join(g.Invalidated(nil, []string{"cmp.html"}), ","); got != "cmp.go,mod.go" {
		t.Fatalf("invalidated = %s", got)
	}
}

func TestSelfEdgesIgnored(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a", "a")
	g.AddTransitiveDependency("a", "a")
	if deps := g.Dependencies("a"); len(deps) != 0 {
		t.Fatalf("self edges recorded: %v", deps)
	}
}
