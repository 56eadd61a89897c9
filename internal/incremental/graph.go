// Package incremental tracks file-level dependencies between analysis
// passes and decides which files can reuse the records of the previous
// successful pass.
package incremental

import "sort"

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type node struct {
	direct     set
	transitive set
	resources  set
	shape      [32]byte
	hasShape   bool
}

func newNode() *node {
	return &node{direct: set{}, transitive: set{}, resources: set{}}
}

// Graph holds three kinds of file edges (direct, transitive, resource) and
// a public-shape digest per file.
type Graph struct {
	nodes map[string]*node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

func (g *Graph) node(file string) *node {
	n, ok := g.nodes[file]
	if !ok {
		n = newNode()
		g.nodes[file] = n
	}
	return n
}

// AddDependency records that from must be re-analyzed whenever to changes.
func (g *Graph) AddDependency(from, to string) {
	if from == to {
		return
	}
	g.node(from).direct.add(to)
	g.node(to)
}

// AddTransitiveDependency records from -> to plus every dependency to has
// at the time of the call.
func (g *Graph) AddTransitiveDependency(from, to string) {
	if from == to {
		return
	}
	src := g.node(to)
	dst := g.node(from)
	dst.transitive.add(to)
	for dep := range src.direct {
		if dep != from {
			dst.transitive.add(dep)
		}
	}
	for dep := range src.transitive {
		if dep != from {
			dst.transitive.add(dep)
		}
	}
}

// AddResourceDependency records that file reads resource.
func (g *Graph) AddResourceDependency(file, resource string) {
	g.node(file).resources.add(resource)
}

// AddTransitiveResources gives container every resource of declFile.
func (g *Graph) AddTransitiveResources(container, declFile string) {
	src := g.node(declFile)
	dst := g.node(container)
	for r := range src.resources {
		dst.resources.add(r)
	}
}

// RecordShape stores the public-shape digest of a file.
func (g *Graph) RecordShape(file string, digest [32]byte) {
	n := g.node(file)
	n.shape, n.hasShape = digest, true
}

// Shape returns the recorded public-shape digest.
func (g *Graph) Shape(file string) ([32]byte, bool) {
	n, ok := g.nodes[file]
	if !ok || !n.hasShape {
		return [32]byte{}, false
	}
	return n.shape, true
}

// Dependencies lists direct and transitive dependencies of file.
func (g *Graph) Dependencies(file string) []string {
	n, ok := g.nodes[file]
	if !ok {
		return nil
	}
	all := set{}
	for d := range n.direct {
		all.add(d)
	}
	for d := range n.transitive {
		all.add(d)
	}
	return all.sorted()
}

// Resources lists the resources file depends on.
func (g *Graph) Resources(file string) []string {
	n, ok := g.nodes[file]
	if !ok {
		return nil
	}
	return n.resources.sorted()
}

// Files lists every file known to the graph.
func (g *Graph) Files() []string {
	out := make([]string, 0, len(g.nodes))
	for f := range g.nodes {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Invalidated closes the changed files over reverse edges of every kind
// and adds files that use a changed resource.
func (g *Graph) Invalidated(changed, changedResources []string) []string {
	reverse := make(map[string][]string)
	for file, n := range g.nodes {
		for dep := range n.direct {
			reverse[dep] = append(reverse[dep], file)
		}
		for dep := range n.transitive {
			reverse[dep] = append(reverse[dep], file)
		}
	}
	out := set{}
	work := append([]string(nil), changed...)
	if len(changedResources) > 0 {
		res := set{}
		for _, r := range changedResources {
			res.add(r)
		}
		for file, n := range g.nodes {
			for r := range n.resources {
				if _, hit := res[r]; hit {
					work = append(work, file)
					break
				}
			}
		}
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		if _, seen := out[f]; seen {
			continue
		}
		out.add(f)
		work = append(work, reverse[f]...)
	}
	return out.sorted()
}

// forget drops the outgoing edges and shape of file.
func (g *Graph) forget(file string) {
	if _, ok := g.nodes[file]; ok {
		g.nodes[file] = newNode()
	}
}

// copyNode carries one file's outgoing edges into another graph.
func (g *Graph) copyNode(file string, into *Graph) {
	n, ok := g.nodes[file]
	if !ok {
		return
	}
	dst := into.node(file)
	for d := range n.direct {
		dst.direct.add(d)
		into.node(d)
	}
	for d := range n.transitive {
		dst.transitive.add(d)
		into.node(d)
	}
	for r := range n.resources {
		dst.resources.add(r)
	}
	if n.hasShape {
		dst.shape, dst.hasShape = n.shape, true
	}
}
