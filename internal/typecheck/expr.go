package typecheck

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ast/edge"
	"golang.org/x/tools/go/ast/inspector"

	"tmplcheck/internal/template"
)

// errOmit drops one statement; the rest of the block is still emitted.
var errOmit = errors.New("statement omitted")

type local struct {
	opaque bool
}

// locals is the chain of template variables visible in a view.
type locals struct {
	parent *locals
	names  map[string]local
}

func (l *locals) child() *locals {
	return &locals{parent: l, names: make(map[string]local)}
}

func (l *locals) declare(name string, opaque bool) {
	l.names[name] = local{opaque: opaque}
}

func (l *locals) lookup(name string) (local, bool) {
	for s := l; s != nil; s = s.parent {
		if v, ok := s.names[name]; ok {
			return v, true
		}
	}
	return local{}, false
}

type edit struct {
	start int // offsets into Code.Text
	end   int
	text  string
}

type identMap struct {
	start int // offsets into Code.Text, covering an edit at the same place
	end   int
	orig  template.Range
}

// rewrite renders code.Text[lo:hi] against the context: free identifiers
// become ctx members, package types and imported package names are
// qualified for the target file. Locals marked opaque make the whole
// snippet unusable.
func (b *builder) rewrite(code *template.Code, lo, hi int, ls *locals) (piece, error) {
	in := b.inspectorFor(code)
	var (
		edits []edit
		ids   []identMap
	)
	for c := range in.Root().Preorder((*ast.Ident)(nil)) {
		id := c.Node().(*ast.Ident)
		off := code.Local(id.Pos())
		if off < lo || off >= hi || id.Name == "_" {
			continue
		}
		end := off + len(id.Name)
		orig := template.Range{Start: code.Start + off, End: code.Start + end}
		kind, _ := c.ParentEdge()
		if kind == edge.SelectorExpr_Sel || kind == edge.KeyValueExpr_Key || defines(c) {
			continue
		}
		if v, ok := ls.lookup(id.Name); ok {
			if v.opaque {
				return piece{}, errOmit
			}
			ids = append(ids, identMap{start: off, end: end, orig: orig})
			continue
		}
		if kind == edge.SelectorExpr_X {
			if path, ok := b.fileImports[id.Name]; ok {
				edits = append(edits, edit{start: off, end: end, text: b.env.imports.Alias(path)})
				continue
			}
		}
		if types.Universe.Lookup(id.Name) != nil {
			continue
		}
		if typePosition(c) || kind == edge.CallExpr_Fun && b.isPackageType(id.Name) {
			name, ok, err := b.packageType(id.Name)
			if err != nil {
				return piece{}, err
			}
			if ok {
				edits = append(edits, edit{start: off, end: end, text: name})
				ids = append(ids, identMap{start: off, end: end, orig: orig})
			}
			continue
		}
		edits = append(edits, edit{start: off, end: off, text: "ctx."})
		ids = append(ids, identMap{start: off, end: end, orig: orig})
	}
	return b.apply(code, lo, hi, edits, ids), nil
}

// apply builds the rewritten text and its mappings. An insertion belongs
// to the identifier that follows it.
func (b *builder) apply(code *template.Code, lo, hi int, edits []edit, ids []identMap) piece {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	text := code.Text
	var out []byte
	newStart := make(map[int]int, len(edits))
	pos := lo
	for _, e := range edits {
		out = append(out, text[pos:e.start]...)
		newStart[e.start] = len(out)
		out = append(out, e.text...)
		pos = e.end
	}
	out = append(out, text[pos:hi]...)

	at := func(off int) int {
		delta := 0
		for _, e := range edits {
			if e.start >= off {
				break
			}
			delta += len(e.text) - (e.end - e.start)
		}
		return off - lo + delta
	}
	p := piece{text: string(out)}
	for _, id := range ids {
		start := at(id.start)
		if s, ok := newStart[id.start]; ok {
			start = s
		}
		end := at(id.end)
		for _, e := range edits {
			if e.start == id.start && e.end == id.end && e.end > e.start {
				end = start + len(e.text)
			} else if e.start == id.start && e.end == e.start {
				end = start + len(e.text) + (id.end - id.start)
			}
		}
		p.maps = append(p.maps, mapping{start: start, end: end, span: b.span(id.orig)})
	}
	whole := template.Range{Start: code.Start + lo, End: code.Start + hi}
	return covering(p, b.span(whole))
}

// defines reports whether the identifier is declared by its statement.
func defines(c inspector.Cursor) bool {
	kind, _ := c.ParentEdge()
	switch kind {
	case edge.AssignStmt_Lhs:
		as, ok := c.Parent().Node().(*ast.AssignStmt)
		return ok && as.Tok == token.DEFINE
	case edge.RangeStmt_Key, edge.RangeStmt_Value:
		rs, ok := c.Parent().Node().(*ast.RangeStmt)
		return ok && rs.Tok == token.DEFINE
	}
	return false
}

// typePosition reports whether the identifier is (part of) a type operand.
func typePosition(c inspector.Cursor) bool {
	for {
		kind, _ := c.ParentEdge()
		switch kind {
		case edge.CompositeLit_Type, edge.TypeAssertExpr_Type, edge.ArrayType_Elt,
			edge.MapType_Key, edge.MapType_Value, edge.ChanType_Value, edge.Field_Type:
			return true
		case edge.StarExpr_X, edge.ParenExpr_X, edge.IndexExpr_X, edge.IndexExpr_Index,
			edge.IndexListExpr_X, edge.IndexListExpr_Indices:
			c = c.Parent()
		default:
			return false
		}
	}
}

// declaredNames lists identifiers a header statement declares.
func declaredNames(s ast.Stmt) []*ast.Ident {
	as, ok := s.(*ast.AssignStmt)
	if !ok || as.Tok != token.DEFINE {
		return nil
	}
	var out []*ast.Ident
	for _, lhs := range as.Lhs {
		if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
			out = append(out, id)
		}
	}
	return out
}

func (b *builder) inspectorFor(code *template.Code) *inspector.Inspector {
	if in, ok := b.inspectors[code]; ok {
		return in
	}
	in := inspector.New([]*ast.File{code.File})
	b.inspectors[code] = in
	return in
}

// nodeRange returns local offsets of n inside its snippet.
func nodeRange(code *template.Code, n ast.Node) (int, int) {
	return code.Local(n.Pos()), code.Local(n.End())
}
