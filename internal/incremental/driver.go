package incremental

import (
	"crypto/sha256"

	"tmplcheck/internal/host"
)

// WorkSource exposes the records produced by a finished pass.
type WorkSource[R any] interface {
	RecordsFor(file string) []R
}

type baseline[R any] struct {
	hashes    map[string][32]byte
	resources map[string][32]byte
	records   map[string][]R
	graph     *Graph
}

// Driver owns the graph of one pass and the baseline of the last
// successful pass.
type Driver[R any] struct {
	program     host.Program
	graph       *Graph
	lastGood    *baseline[R]
	prior       *baseline[R] // baseline this pass was reconciled against
	invalidated set
	pending     set // resources changed since lastGood
	succeeded   bool
	full        bool
}

// Fresh creates a driver for a first analysis: every file is invalidated.
func Fresh[R any](prog host.Program) *Driver[R] {
	d := &Driver[R]{
		program:     prog,
		graph:       NewGraph(),
		invalidated: set{},
		pending:     set{},
		full:        true,
	}
	for _, f := range prog.SourceFiles() {
		d.invalidated.add(f)
	}
	return d
}

// Reconcile derives the driver for newProg from the driver of the previous
// pass. Physical changes are computed against the last successful pass, so
// edits made during failed passes accumulate. Files outside the
// invalidation set keep their records and outgoing edges.
func Reconcile[R any](oldProg host.Program, old *Driver[R], newProg host.Program, changedResources []string) *Driver[R] {
	if old == nil || old.lastGood == nil {
		return Fresh[R](newProg)
	}
	base := old.lastGood
	baseHashes := base.hashes
	if old.succeeded && oldProg != nil {
		baseHashes = hashesOf(oldProg)
	}

	d := &Driver[R]{
		program:  newProg,
		graph:    NewGraph(),
		lastGood: base,
		prior:    base,
		pending:  set{},
	}
	if !old.succeeded {
		for r := range old.pending {
			d.pending.add(r)
		}
	}
	for _, r := range changedResources {
		d.pending.add(r)
	}

	cur := hashesOf(newProg)
	var changed []string
	structural := len(cur) != len(baseHashes)
	for f, h := range cur {
		prev, ok := baseHashes[f]
		if !ok {
			structural = true
		}
		if !ok || prev != h {
			changed = append(changed, f)
		}
	}

	d.invalidated = set{}
	if structural {
		// a file appeared or disappeared: scope membership may change anywhere
		d.full = true
		for f := range cur {
			d.invalidated.add(f)
		}
		return d
	}
	for _, f := range base.graph.Invalidated(changed, d.pending.sorted()) {
		if _, ok := cur[f]; ok {
			d.invalidated.add(f)
		}
	}
	for f := range cur {
		if _, inv := d.invalidated[f]; !inv {
			base.graph.copyNode(f, d.graph)
		}
	}
	return d
}

func hashesOf(prog host.Program) map[string][32]byte {
	out := make(map[string][32]byte)
	fs := prog.FileSet()
	for _, f := range prog.SourceFiles() {
		if u, ok := prog.SourceFile(f); ok {
			out[f] = fs.Get(u.File).Hash
		}
	}
	return out
}

// Program is the snapshot this driver was built for.
func (d *Driver[R]) Program() host.Program { return d.program }

// Graph is the graph being recorded by the current pass.
func (d *Driver[R]) Graph() *Graph { return d.graph }

// Full reports whether every file must be analyzed.
func (d *Driver[R]) Full() bool { return d.full }

// IsInvalidated reports whether file must be re-analyzed.
func (d *Driver[R]) IsInvalidated(file string) bool {
	_, ok := d.invalidated[file]
	return ok
}

// Invalidated lists the files to re-analyze.
func (d *Driver[R]) Invalidated() []string { return d.invalidated.sorted() }

// Invalidate moves carried files, and the files depending on them in the
// baseline graph, into the invalidation set. It returns the files that
// were carried until now; the caller must analyze those again.
func (d *Driver[R]) Invalidate(files ...string) []string {
	if d.prior == nil || len(files) == 0 {
		return nil
	}
	var added []string
	for _, f := range d.prior.graph.Invalidated(files, nil) {
		if d.invalidated.has(f) || !d.inProgram(f) {
			continue
		}
		d.invalidated.add(f)
		d.graph.forget(f)
		added = append(added, f)
	}
	return added
}

func (d *Driver[R]) inProgram(file string) bool {
	_, ok := d.program.SourceFile(file)
	return ok
}

// PriorWorkFor returns the records of a carried file.
func (d *Driver[R]) PriorWorkFor(file string) ([]R, bool) {
	if d.prior == nil || d.IsInvalidated(file) {
		return nil, false
	}
	recs, ok := d.prior.records[file]
	return recs, ok
}

// AddDependency, AddTransitiveDependency and AddTransitiveResources
// record edges for the current pass.
func (d *Driver[R]) AddDependency(from, to string) { d.graph.AddDependency(from, to) }

func (d *Driver[R]) AddTransitiveDependency(from, to string) {
	d.graph.AddTransitiveDependency(from, to)
}

func (d *Driver[R]) AddTransitiveResources(container, declFile string) {
	d.graph.AddTransitiveResources(container, declFile)
}

func (d *Driver[R]) AddResourceDependency(file, resource string) {
	d.graph.AddResourceDependency(file, resource)
}

// RecordSuccessfulAnalysis makes the current pass the baseline for the next
// reconciliation.
func (d *Driver[R]) RecordSuccessfulAnalysis(src WorkSource[R]) {
	b := &baseline[R]{
		hashes:    hashesOf(d.program),
		resources: make(map[string][32]byte),
		records:   make(map[string][]R),
		graph:     d.graph,
	}
	for _, f := range d.program.SourceFiles() {
		if recs := src.RecordsFor(f); len(recs) > 0 {
			b.records[f] = recs
		}
	}
	for _, f := range d.graph.Files() {
		for _, r := range d.graph.Resources(f) {
			if _, done := b.resources[r]; done {
				continue
			}
			if data, err := d.program.ReadResource(r); err == nil {
				b.resources[r] = sha256.Sum256(data)
			}
		}
	}
	d.lastGood = b
	d.succeeded = true
	d.pending = set{}
}

// Succeeded reports whether RecordSuccessfulAnalysis ran for this pass.
func (d *Driver[R]) Succeeded() bool { return d.succeeded }

// ShapeChanged reports whether a file's recorded public shape differs from
// the baseline; files without a baseline shape count as changed.
func (d *Driver[R]) ShapeChanged(file string) bool {
	now, ok := d.graph.Shape(file)
	if !ok || d.prior == nil {
		return true
	}
	prev, ok := d.prior.graph.Shape(file)
	return !ok || prev != now
}
