package incremental

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"tmplcheck/internal/host"
)

// baselineSchema changes whenever Baseline changes shape.
const baselineSchema uint16 = 1

// BaselineDir is the directory under the module root holding the baseline.
const BaselineDir = ".tmplcheck"

// Baseline is the persisted form of a successful pass.
type Baseline struct {
	Schema    uint16
	Files     map[string][]byte
	Resources map[string][]byte
	Nodes     map[string]BaselineNode
}

// BaselineNode is the persisted form of one graph node.
type BaselineNode struct {
	Direct     []string
	Transitive []string
	Resources  []string
	Shape      []byte `msgpack:",omitempty"`
}

// BaselinePath returns the baseline location for a module root.
func BaselinePath(root string) string {
	return filepath.Join(root, BaselineDir, "baseline.mp")
}

// Baseline exports the last successful pass; ok is false before the first one.
func (d *Driver[R]) Baseline() (*Baseline, bool) {
	b := d.lastGood
	if b == nil {
		return nil, false
	}
	out := &Baseline{
		Schema:    baselineSchema,
		Files:     make(map[string][]byte, len(b.hashes)),
		Resources: make(map[string][]byte, len(b.resources)),
		Nodes:     make(map[string]BaselineNode, len(b.graph.nodes)),
	}
	for f, h := range b.hashes {
		out.Files[f] = append([]byte(nil), h[:]...)
	}
	for r, h := range b.resources {
		out.Resources[r] = append([]byte(nil), h[:]...)
	}
	for f, n := range b.graph.nodes {
		bn := BaselineNode{
			Direct:     n.direct.sorted(),
			Transitive: n.transitive.sorted(),
			Resources:  n.resources.sorted(),
		}
		if n.hasShape {
			bn.Shape = append([]byte(nil), n.shape[:]...)
		}
		out.Nodes[f] = bn
	}
	return out, true
}

// SaveBaseline writes b atomically.
func SaveBaseline(path string, b *Baseline) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), path)
}

// LoadBaseline reads a baseline; ok is false when none exists or its
// schema is outdated.
func LoadBaseline(path string) (*Baseline, bool, error) {
	// #nosec G304 -- the path is derived from the module root
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var b Baseline
	if err := msgpack.NewDecoder(f).Decode(&b); err != nil {
		return nil, false, fmt.Errorf("decode baseline %s: %w", path, err)
	}
	if b.Schema != baselineSchema {
		return nil, false, nil
	}
	return &b, true, nil
}

func (b *Baseline) graph() *Graph {
	g := NewGraph()
	for f, bn := range b.Nodes {
		n := g.node(f)
		for _, d := range bn.Direct {
			n.direct.add(d)
		}
		for _, d := range bn.Transitive {
			n.transitive.add(d)
		}
		for _, r := range bn.Resources {
			n.resources.add(r)
		}
		if len(bn.Shape) == len(n.shape) {
			copy(n.shape[:], bn.Shape)
			n.hasShape = true
		}
	}
	return g
}

// Plan describes what a pass over prog would re-analyze.
type Plan struct {
	Changed          []string
	ChangedResources []string
	Invalidated      []string
	Carried          []string
	Full             bool
}

// Plan compares prog against the baseline without analyzing anything.
func (b *Baseline) Plan(prog host.Program) Plan {
	var p Plan
	cur := hashesOf(prog)
	changed := set{}
	for f, h := range cur {
		prev, ok := b.Files[f]
		if !ok {
			p.Full = true
		}
		if !ok || string(prev) != string(h[:]) {
			changed.add(f)
		}
	}
	for f := range b.Files {
		if _, ok := cur[f]; !ok {
			p.Full = true
		}
	}
	res := set{}
	for r, h := range b.Resources {
		data, err := prog.ReadResource(r)
		if err != nil {
			res.add(r)
			continue
		}
		if sum := sha256.Sum256(data); string(sum[:]) != string(h) {
			res.add(r)
		}
	}
	p.Changed = changed.sorted()
	p.ChangedResources = res.sorted()

	inv := set{}
	if p.Full {
		for f := range cur {
			inv.add(f)
		}
	} else {
		for _, f := range b.graph().Invalidated(p.Changed, p.ChangedResources) {
			if _, ok := cur[f]; ok {
				inv.add(f)
			}
		}
	}
	p.Invalidated = inv.sorted()
	for _, f := range prog.SourceFiles() {
		if _, ok := inv[f]; !ok {
			p.Carried = append(p.Carried, f)
		}
	}
	return p
}
